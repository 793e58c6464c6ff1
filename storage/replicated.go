package storage

import (
	"fmt"
	"iter"
	"log/slog"
)

// ReplicatedStorage mirrors writes across an ordered list of members and
// serves reads from the first one (the primary).
//
// Writes are applied member by member. The first failure aborts the
// operation and is returned; writes already applied to earlier members are
// NOT rolled back, so a failed write may leave replicas diverged. Reads do
// not fail over when the primary lacks a key.
type ReplicatedStorage[K comparable, V any] struct {
	members []Storage[K, V]
	keys    KeyGenerator[K]
	checker CapacityChecker[K]
	log     *slog.Logger
}

// NewReplicated builds a replica set. No members -> ErrNotAvailableStorage.
func NewReplicated[K comparable, V any](members []Storage[K, V], opt ReplicatedOptions[K]) (*ReplicatedStorage[K, V], error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("replicated storage: %w", ErrNotAvailableStorage)
	}
	for i, m := range members {
		if m == nil {
			return nil, fmt.Errorf("replicated storage: member %d is nil: %w", i, ErrInvalidConfiguration)
		}
	}
	r := &ReplicatedStorage[K, V]{
		members: append([]Storage[K, V](nil), members...),
		keys:    opt.KeyGen,
		log:     loggerOrDiscard(opt.Logger),
	}
	r.checker = NewCapacityChecker[K](r)
	bindKeyGen(opt.KeyGen, opt.DedupKeys, r.Has)
	return r, nil
}

// Primary returns the member serving reads.
func (r *ReplicatedStorage[K, V]) Primary() Storage[K, V] { return r.members[0] }

// Members returns all replicas, primary first.
func (r *ReplicatedStorage[K, V]) Members() []Storage[K, V] {
	return append([]Storage[K, V](nil), r.members...)
}

func (r *ReplicatedStorage[K, V]) Entries() int       { return r.Primary().Entries() }
func (r *ReplicatedStorage[K, V]) IsEmpty() bool      { return r.Primary().IsEmpty() }
func (r *ReplicatedStorage[K, V]) Has(k K) bool       { return r.Primary().Has(k) }
func (r *ReplicatedStorage[K, V]) Read(k K) (V, bool) { return r.Primary().Read(k) }

// Capacity is the smallest bounded member capacity; a write must fit in
// every replica. Unbounded if no member is bounded.
func (r *ReplicatedStorage[K, V]) Capacity() int {
	capacity := Unbounded
	for _, m := range r.members {
		mc := m.Capacity()
		if mc != Unbounded && (capacity == Unbounded || mc < capacity) {
			capacity = mc
		}
	}
	return capacity
}

func (r *ReplicatedStorage[K, V]) IsFull() bool {
	for _, m := range r.members {
		if m.IsFull() {
			return true
		}
	}
	return false
}

// Create draws one key and writes the value under it on every member.
func (r *ReplicatedStorage[K, V]) Create(v V) (K, error) {
	var zero K
	if r.keys == nil {
		return zero, ErrMissingKeyGenerator
	}
	if err := r.checker.CheckForCreate(); err != nil {
		return zero, err
	}
	k, err := r.keys.Get()
	if err != nil {
		return zero, err
	}
	if err := r.each("create", func(m Storage[K, V]) error { return m.Update(k, v) }); err != nil {
		return zero, err
	}
	return k, nil
}

func (r *ReplicatedStorage[K, V]) Update(k K, v V) error {
	return r.each("update", func(m Storage[K, V]) error { return m.Update(k, v) })
}

func (r *ReplicatedStorage[K, V]) Delete(k K) error {
	return r.each("delete", func(m Storage[K, V]) error { return m.Delete(k) })
}

func (r *ReplicatedStorage[K, V]) Swap(k1, k2 K) error {
	return r.each("swap", func(m Storage[K, V]) error { return m.Swap(k1, k2) })
}

func (r *ReplicatedStorage[K, V]) Clear() {
	for _, m := range r.members {
		m.Clear()
	}
}

// All iterates the primary.
func (r *ReplicatedStorage[K, V]) All() iter.Seq2[K, V] { return r.Primary().All() }

// each applies fn to every member in order and stops at the first failure.
func (r *ReplicatedStorage[K, V]) each(op string, fn func(Storage[K, V]) error) error {
	for i, m := range r.members {
		if err := fn(m); err != nil {
			if i > 0 {
				r.log.Warn("replica set left inconsistent", "op", op, "applied", i, "members", len(r.members), "err", err)
			}
			return fmt.Errorf("replicated %s: member %d: %w", op, i, err)
		}
	}
	return nil
}

var _ Storage[string, int] = (*ReplicatedStorage[string, int])(nil)
