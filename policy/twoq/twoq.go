// Package twoq implements the 2Q eviction policy.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/shardstore/policy"
)

// twoQ implements the 2Q eviction policy.
//
// Resident queues:
//   - A1in (younger queue): its own list + index by key; admits first-time entries
//   - Am   (mature queue):  keys not present in inIdx; ordering is driven by storage hooks
//
// Ghost A1out: keys only, tracks recently evicted A1in keys to give them
// a second chance (bypass A1in on re-admission).
type twoQ[K comparable] struct {
	h policy.Hooks[K]

	capIn    int
	capGhost int

	// A1in: MRU at Front() -> LRU at Back(); element.Value is K.
	inList *list.List
	inIdx  map[K]*list.Element

	// A1out (ghosts): MRU at Front() -> LRU at Back(); element.Value is K.
	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

// New constructs a 2Q policy factory.
// Common choices: capIn ≈ 25% of capacity; capGhost ≈ 50–100% of capacity.
func New[K comparable](capIn, capGhost int) policy.Policy[K] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy[K]{capIn: capIn, capGhost: capGhost}
}

type twoQPolicy[K comparable] struct {
	capIn    int
	capGhost int
}

func (p twoQPolicy[K]) New(h policy.Hooks[K]) policy.Recency[K] {
	return &twoQ[K]{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[K]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admission rules:
//   - A key found in ghosts bypasses A1in and is admitted straight to Am (MRU).
//   - Otherwise it enters A1in (and MRU of the storage list).
//   - If A1in overflows, its LRU key is returned to the storage for eviction.
func (q *twoQ[K]) OnAdd(k K) (evict K, ok bool) {
	if ge, found := q.ghostIdx[k]; found {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		q.h.PushFront(k)
		return evict, false
	}

	q.h.PushFront(k)
	q.inIdx[k] = q.inList.PushFront(k)

	if q.inList.Len() > q.capIn {
		if lruEl := q.inList.Back(); lruEl != nil {
			return lruEl.Value.(K), true
		}
	}
	return evict, false
}

// OnGet promotes a key out of A1in into Am and moves it to MRU.
func (q *twoQ[K]) OnGet(k K) {
	if el, found := q.inIdx[k]; found {
		q.inList.Remove(el)
		delete(q.inIdx, k)
	}
	q.h.MoveToFront(k)
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (q *twoQ[K]) OnUpdate(k K) { q.OnGet(k) }

// OnRemove remembers keys leaving A1in as ghosts. Removals from Am do not
// populate ghosts.
func (q *twoQ[K]) OnRemove(k K) {
	el, found := q.inIdx[k]
	if !found {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, k)

	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)

	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		if tail == nil {
			break
		}
		delete(q.ghostIdx, tail.Value.(K))
		q.ghostList.Remove(tail)
	}
}
