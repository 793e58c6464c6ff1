// Package lru implements the LRU eviction policy.
package lru

import "github.com/IvanBrykalov/shardstore/policy"

// lru is a classic "move-to-front" Least-Recently-Used policy.
// It delegates list manipulation to policy.Hooks provided by the storage.
type lru[K comparable] struct {
	h policy.Hooks[K]
}

type lruPolicy[K comparable] struct{}

// New returns a Policy factory that constructs LRU instances.
func New[K comparable]() policy.Policy[K] { return lruPolicy[K]{} }

// New implements policy.Policy by binding storage hooks.
func (lruPolicy[K]) New(h policy.Hooks[K]) policy.Recency[K] {
	return &lru[K]{h: h}
}

// OnAdd links the new key at MRU. LRU itself doesn't choose evictions;
// the storage enforces its capacity by trimming from Back.
func (p *lru[K]) OnAdd(k K) (evict K, ok bool) {
	p.h.PushFront(k)
	return evict, false
}

// OnGet promotes the key to MRU.
func (p *lru[K]) OnGet(k K) { p.h.MoveToFront(k) }

// OnUpdate promotes the key to MRU (updates are treated as recent use).
func (p *lru[K]) OnUpdate(k K) { p.h.MoveToFront(k) }

// OnRemove is a no-op for pure LRU.
func (p *lru[K]) OnRemove(K) {}
