package storage

import (
	"fmt"
	"iter"
	"log/slog"
)

// ClusteredStorage shards entries across an ordered list of members with
// capacity-aware placement.
//
// Placement fills bounded members in order; at most one unbounded member is
// allowed and it must be last, where it absorbs overflow. Lookups scan each
// member's Has in order; there is no routing table.
type ClusteredStorage[K comparable, V any] struct {
	members []Storage[K, V]
	keys    KeyGenerator[K]
	checker CapacityChecker[K]
	log     *slog.Logger
}

// NewClustered validates members and builds the cluster.
//   - no members                       -> ErrNotAvailableStorage
//   - an unbounded member that is not last -> ErrInvalidConfiguration
func NewClustered[K comparable, V any](members []Storage[K, V], opt ClusteredOptions[K]) (*ClusteredStorage[K, V], error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("clustered storage: %w", ErrNotAvailableStorage)
	}
	for i, m := range members {
		if m == nil {
			return nil, fmt.Errorf("clustered storage: member %d is nil: %w", i, ErrInvalidConfiguration)
		}
		if m.Capacity() == Unbounded && i != len(members)-1 {
			return nil, fmt.Errorf("clustered storage: unbounded member %d of %d must be last: %w",
				i, len(members), ErrInvalidConfiguration)
		}
	}
	c := &ClusteredStorage[K, V]{
		members: append([]Storage[K, V](nil), members...),
		keys:    opt.KeyGen,
		log:     loggerOrDiscard(opt.Logger),
	}
	c.checker = NewCapacityChecker[K](c)
	bindKeyGen(opt.KeyGen, opt.DedupKeys, c.Has)
	return c, nil
}

// Members returns the members in placement order.
func (c *ClusteredStorage[K, V]) Members() []Storage[K, V] {
	return append([]Storage[K, V](nil), c.members...)
}

// Entries is the sum of member entries.
func (c *ClusteredStorage[K, V]) Entries() int {
	n := 0
	for _, m := range c.members {
		n += m.Entries()
	}
	return n
}

// Capacity is the sum of bounded capacities, or Unbounded with an
// unbounded tail member.
func (c *ClusteredStorage[K, V]) Capacity() int {
	total := 0
	for _, m := range c.members {
		mc := m.Capacity()
		if mc == Unbounded {
			return Unbounded
		}
		total += mc
	}
	return total
}

func (c *ClusteredStorage[K, V]) IsEmpty() bool {
	for _, m := range c.members {
		if !m.IsEmpty() {
			return false
		}
	}
	return true
}

func (c *ClusteredStorage[K, V]) IsFull() bool {
	return c.placement() == nil
}

// Create draws a key from the cluster's generator and places the entry
// in the first member with room. A key some member already holds is
// overwritten there, as a leaf storage would.
func (c *ClusteredStorage[K, V]) Create(v V) (K, error) {
	var zero K
	if c.keys == nil {
		return zero, ErrMissingKeyGenerator
	}
	if err := c.checker.CheckForCreate(); err != nil {
		return zero, err
	}
	k, err := c.keys.Get()
	if err != nil {
		return zero, err
	}
	// A repeated key stays with the member that owns it.
	if err := c.Update(k, v); err != nil {
		return zero, err
	}
	return k, nil
}

func (c *ClusteredStorage[K, V]) Read(k K) (V, bool) {
	if m := c.owner(k); m != nil {
		return m.Read(k)
	}
	var zero V
	return zero, false
}

// Update writes through the owning member; an absent key is placed like
// a Create.
func (c *ClusteredStorage[K, V]) Update(k K, v V) error {
	if m := c.owner(k); m != nil {
		return m.Update(k, v)
	}
	return c.place(k, v)
}

// Delete removes k from its owner. Absent keys are a no-op.
func (c *ClusteredStorage[K, V]) Delete(k K) error {
	if m := c.owner(k); m != nil {
		return m.Delete(k)
	}
	return nil
}

func (c *ClusteredStorage[K, V]) Has(k K) bool { return c.owner(k) != nil }

func (c *ClusteredStorage[K, V]) Clear() {
	for _, m := range c.members {
		m.Clear()
	}
}

// Swap exchanges two values, possibly held by different members. Each
// value is rewritten through its owner, which never fails on capacity.
func (c *ClusteredStorage[K, V]) Swap(k1, k2 K) error {
	m1 := c.owner(k1)
	if m1 == nil {
		return keyNotFound("swap", k1)
	}
	m2 := c.owner(k2)
	if m2 == nil {
		return keyNotFound("swap", k2)
	}
	if m1 == m2 {
		return m1.Swap(k1, k2)
	}
	v1, _ := m1.Read(k1)
	v2, _ := m2.Read(k2)
	if err := m1.Update(k1, v2); err != nil {
		return err
	}
	return m2.Update(k2, v1)
}

// All yields the entries of each member in placement order.
func (c *ClusteredStorage[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, m := range c.members {
			for k, v := range m.All() {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// owner returns the first member reporting k, or nil.
func (c *ClusteredStorage[K, V]) owner(k K) Storage[K, V] {
	for _, m := range c.members {
		if m.Has(k) {
			return m
		}
	}
	return nil
}

// placement returns the first non-full bounded member, falling back to the
// unbounded tail; nil when every member is full.
func (c *ClusteredStorage[K, V]) placement() Storage[K, V] {
	for _, m := range c.members {
		if m.Capacity() != Unbounded && !m.IsFull() {
			return m
		}
	}
	if tail := c.members[len(c.members)-1]; tail.Capacity() == Unbounded {
		return tail
	}
	return nil
}

func (c *ClusteredStorage[K, V]) place(k K, v V) error {
	m := c.placement()
	if m == nil {
		return fmt.Errorf("clustered place %v: all %d members full: %w", k, len(c.members), ErrOutOfSpace)
	}
	if err := m.Update(k, v); err != nil {
		return err
	}
	c.log.Debug("entry placed", "key", k, "capacity", m.Capacity(), "entries", m.Entries())
	return nil
}

var _ Storage[string, int] = (*ClusteredStorage[string, int])(nil)
