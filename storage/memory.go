package storage

import (
	"fmt"
	"iter"
)

// MemoryStorage is a map-backed leaf storage.
type MemoryStorage[K comparable, V any] struct {
	m       map[K]V
	cap     int
	keys    KeyGenerator[K]
	checker CapacityChecker[K]
}

// NewMemory constructs a MemoryStorage. It panics on a negative capacity
// other than Unbounded.
func NewMemory[K comparable, V any](opt MemoryOptions[K]) *MemoryStorage[K, V] {
	if !validCapacity(opt.Capacity) {
		panic(fmt.Sprintf("storage: invalid capacity %d", opt.Capacity))
	}
	hint := opt.Capacity
	if hint == Unbounded {
		hint = 0
	}
	s := &MemoryStorage[K, V]{
		m:    make(map[K]V, hint),
		cap:  opt.Capacity,
		keys: opt.KeyGen,
	}
	s.checker = NewCapacityChecker[K](s)
	bindKeyGen(opt.KeyGen, opt.DedupKeys, s.Has)
	return s
}

func (s *MemoryStorage[K, V]) Entries() int  { return len(s.m) }
func (s *MemoryStorage[K, V]) Capacity() int { return s.cap }
func (s *MemoryStorage[K, V]) IsEmpty() bool { return len(s.m) == 0 }
func (s *MemoryStorage[K, V]) IsFull() bool  { return isFull(len(s.m), s.cap) }

// Create stores v under a freshly generated key.
func (s *MemoryStorage[K, V]) Create(v V) (K, error) {
	if err := s.checker.CheckForCreate(); err != nil {
		var zero K
		return zero, err
	}
	k, err := nextKey(s.keys)
	if err != nil {
		return k, err
	}
	s.m[k] = v
	return k, nil
}

func (s *MemoryStorage[K, V]) Read(k K) (V, bool) {
	v, ok := s.m[k]
	return v, ok
}

func (s *MemoryStorage[K, V]) Update(k K, v V) error {
	if err := s.checker.CheckForUpdate(k); err != nil {
		return err
	}
	s.m[k] = v
	return nil
}

func (s *MemoryStorage[K, V]) Delete(k K) error {
	delete(s.m, k)
	return nil
}

func (s *MemoryStorage[K, V]) Has(k K) bool {
	_, ok := s.m[k]
	return ok
}

func (s *MemoryStorage[K, V]) Clear() { clear(s.m) }

func (s *MemoryStorage[K, V]) Swap(k1, k2 K) error {
	v1, ok := s.m[k1]
	if !ok {
		return keyNotFound("swap", k1)
	}
	v2, ok := s.m[k2]
	if !ok {
		return keyNotFound("swap", k2)
	}
	s.m[k1], s.m[k2] = v2, v1
	return nil
}

// All ranges over the map; order is unspecified.
func (s *MemoryStorage[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for k, v := range s.m {
			if !yield(k, v) {
				return
			}
		}
	}
}

var _ Storage[string, int] = (*MemoryStorage[string, int])(nil)
