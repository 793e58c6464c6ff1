package storage

import (
	"fmt"
	"iter"
	"time"

	"github.com/IvanBrykalov/shardstore/policy"
	"github.com/IvanBrykalov/shardstore/policy/lru"
)

// item is an arena slot of the recency list. Neighbours are referenced by
// key, never by pointer: every link is resolved through the items map.
type item[K comparable, V any] struct {
	val     V
	created int64 // UnixNano of the last write

	prev, next       K
	hasPrev, hasNext bool
}

// LRUStorage is a leaf storage with recency-based and time-based eviction.
//
// Count eviction: once occupancy exceeds Capacity, the policy's
// least-recent key is evicted, so Create and Update never fail on capacity
// unless Capacity is 0, which rejects every write with ErrOutOfSpace.
// Time eviction is lazy: Read, Has and Swap remove an entry older than
// Retention and report it absent.
type LRUStorage[K comparable, V any] struct {
	items map[K]*item[K, V]

	// list ends: head is MRU, tail is LRU.
	head, tail       K
	hasHead, hasTail bool

	cap       int
	retention int64
	keys      KeyGenerator[K]

	pol     policy.Recency[K]
	opt     LRUOptions[K, V]
	clock   Clock
	metrics Metrics
}

// NewLRU constructs an LRUStorage. Defaults:
//   - nil Policy   -> LRU
//   - nil Clock    -> wall clock
//   - nil Metrics  -> NoopMetrics
//
// It panics on a negative capacity other than Unbounded.
func NewLRU[K comparable, V any](opt LRUOptions[K, V]) *LRUStorage[K, V] {
	if !validCapacity(opt.Capacity) {
		panic(fmt.Sprintf("storage: invalid capacity %d", opt.Capacity))
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K]()
	}
	if opt.Clock == nil {
		opt.Clock = wallClock{}
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	s := &LRUStorage[K, V]{
		items:   make(map[K]*item[K, V]),
		cap:     opt.Capacity,
		keys:    opt.KeyGen,
		opt:     opt,
		clock:   opt.Clock,
		metrics: opt.Metrics,
	}
	if opt.Retention > 0 {
		s.retention = int64(opt.Retention)
	}
	s.pol = opt.Policy.New(lruHooks[K, V]{s: s})
	bindKeyGen(opt.KeyGen, opt.DedupKeys, s.Has)
	return s
}

func (s *LRUStorage[K, V]) Entries() int  { return len(s.items) }
func (s *LRUStorage[K, V]) Capacity() int { return s.cap }
func (s *LRUStorage[K, V]) IsEmpty() bool { return len(s.items) == 0 }
func (s *LRUStorage[K, V]) IsFull() bool  { return isFull(len(s.items), s.cap) }

// Retention returns the configured retention window (NoRetention if disabled).
func (s *LRUStorage[K, V]) Retention() time.Duration { return time.Duration(s.retention) }

// Create stores v under a generated key, evicting by recency if needed.
// A zero-capacity storage holds nothing and fails with ErrOutOfSpace.
func (s *LRUStorage[K, V]) Create(v V) (K, error) {
	if s.cap == 0 {
		var zero K
		return zero, fmt.Errorf("create: capacity 0: %w", ErrOutOfSpace)
	}
	k, err := nextKey(s.keys)
	if err != nil {
		return k, err
	}
	s.put(k, v)
	return k, nil
}

// Read returns the value for k and promotes it according to the policy.
func (s *LRUStorage[K, V]) Read(k K) (V, bool) {
	it, ok := s.lookup(k)
	if !ok {
		s.metrics.Miss()
		var zero V
		return zero, false
	}
	s.pol.OnGet(k)
	s.metrics.Hit()
	return it.val, true
}

// Update inserts or replaces k→v and restarts its retention window. It
// fails only on a zero-capacity storage.
func (s *LRUStorage[K, V]) Update(k K, v V) error {
	if s.cap == 0 {
		return fmt.Errorf("update %v: capacity 0: %w", k, ErrOutOfSpace)
	}
	s.put(k, v)
	return nil
}

func (s *LRUStorage[K, V]) Delete(k K) error {
	if _, ok := s.items[k]; !ok {
		return nil
	}
	s.pol.OnRemove(k)
	s.unlink(k)
	delete(s.items, k)
	s.metrics.Size(len(s.items))
	return nil
}

// Has reports presence without promoting k. A stale entry is removed.
func (s *LRUStorage[K, V]) Has(k K) bool {
	_, ok := s.lookup(k)
	return ok
}

// Clear drops every entry and resets policy state.
func (s *LRUStorage[K, V]) Clear() {
	s.items = make(map[K]*item[K, V])
	var zero K
	s.head, s.tail = zero, zero
	s.hasHead, s.hasTail = false, false
	s.pol = s.opt.Policy.New(lruHooks[K, V]{s: s})
	s.metrics.Size(0)
}

// Swap exchanges the values (and their ages) of k1 and k2. Recency
// positions are left untouched.
func (s *LRUStorage[K, V]) Swap(k1, k2 K) error {
	a, ok := s.lookup(k1)
	if !ok {
		return keyNotFound("swap", k1)
	}
	b, ok := s.lookup(k2)
	if !ok {
		return keyNotFound("swap", k2)
	}
	a.val, b.val = b.val, a.val
	a.created, b.created = b.created, a.created
	return nil
}

// All yields entries from most to least recently used. Stale entries are
// skipped but not removed.
func (s *LRUStorage[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		now := s.clock.NowUnixNano()
		k, ok := s.head, s.hasHead
		for ok {
			it := s.items[k]
			if !s.expiredAt(it, now) && !yield(k, it.val) {
				return
			}
			k, ok = it.next, it.hasNext
		}
	}
}

// -------------------- internals --------------------

func (s *LRUStorage[K, V]) put(k K, v V) {
	now := s.clock.NowUnixNano()
	if it, ok := s.items[k]; ok {
		it.val = v
		it.created = now
		s.pol.OnUpdate(k)
		s.enforceCapacity()
		return
	}

	s.items[k] = &item[K, V]{val: v, created: now}
	if ev, ok := s.pol.OnAdd(k); ok && ev != k {
		s.evict(ev, EvictPolicy)
	}
	s.enforceCapacity()
}

// lookup returns the live item for k, evicting it first if it is stale.
func (s *LRUStorage[K, V]) lookup(k K) (*item[K, V], bool) {
	it, ok := s.items[k]
	if !ok {
		return nil, false
	}
	if s.expiredAt(it, s.clock.NowUnixNano()) {
		s.evict(k, EvictTTL)
		return nil, false
	}
	return it, true
}

func (s *LRUStorage[K, V]) expiredAt(it *item[K, V], now int64) bool {
	return s.retention > 0 && now-it.created > s.retention
}

func (s *LRUStorage[K, V]) evict(k K, reason EvictReason) {
	it, ok := s.items[k]
	if !ok {
		return
	}
	s.pol.OnRemove(k)
	s.unlink(k)
	delete(s.items, k)
	s.metrics.Evict(reason)
	s.metrics.Size(len(s.items))
	if cb := s.opt.OnEvict; cb != nil {
		cb(k, it.val, reason)
	}
}

func (s *LRUStorage[K, V]) enforceCapacity() {
	if s.cap != Unbounded {
		for len(s.items) > s.cap && s.hasTail {
			s.evict(s.tail, EvictPolicy)
		}
	}
	s.metrics.Size(len(s.items))
}

// pushFront links k at MRU.
func (s *LRUStorage[K, V]) pushFront(k K) {
	it := s.items[k]
	var zero K
	it.prev, it.hasPrev = zero, false
	it.next, it.hasNext = s.head, s.hasHead
	if s.hasHead {
		h := s.items[s.head]
		h.prev, h.hasPrev = k, true
	}
	s.head, s.hasHead = k, true
	if !s.hasTail {
		s.tail, s.hasTail = k, true
	}
}

// unlink detaches k from the list; its map slot is left to the caller.
func (s *LRUStorage[K, V]) unlink(k K) {
	it := s.items[k]
	if it.hasPrev {
		p := s.items[it.prev]
		p.next, p.hasNext = it.next, it.hasNext
	} else {
		s.head, s.hasHead = it.next, it.hasNext
	}
	if it.hasNext {
		n := s.items[it.next]
		n.prev, n.hasPrev = it.prev, it.hasPrev
	} else {
		s.tail, s.hasTail = it.prev, it.hasPrev
	}
	var zero K
	it.prev, it.next = zero, zero
	it.hasPrev, it.hasNext = false, false
}

func (s *LRUStorage[K, V]) moveToFront(k K) {
	if s.hasHead && s.head == k {
		return
	}
	s.unlink(k)
	s.pushFront(k)
}

// -------------------- policy hooks --------------------

// lruHooks adapts the storage's list operations to policy.Hooks.
type lruHooks[K comparable, V any] struct{ s *LRUStorage[K, V] }

func (h lruHooks[K, V]) MoveToFront(k K) { h.s.moveToFront(k) }
func (h lruHooks[K, V]) PushFront(k K)   { h.s.pushFront(k) }
func (h lruHooks[K, V]) Remove(k K)      { h.s.unlink(k) }
func (h lruHooks[K, V]) Back() (K, bool) { return h.s.tail, h.s.hasTail }
func (h lruHooks[K, V]) Len() int        { return len(h.s.items) }

var _ Storage[string, int] = (*LRUStorage[string, int])(nil)
