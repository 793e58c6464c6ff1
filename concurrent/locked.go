// Package concurrent makes storages safe for use by multiple goroutines.
//
// The storages of package storage do no locking of their own. Locked puts
// one mutex in front of a storage; Sharded partitions the key space over
// several storages, each behind its own lock, so unrelated keys do not
// contend:
//
//	st, _ := concurrent.NewSharded(func(int) (storage.Storage[string, []byte], error) {
//	    return storage.NewLRU(storage.LRUOptions[string, []byte]{Capacity: 1024}), nil
//	}, concurrent.Options[string, []byte]{Shards: 16, KeyGen: uuids})
//
// Reads take the exclusive lock too: an LRU read promotes the entry and may
// expire it.
package concurrent

import (
	"iter"
	"sync"

	"github.com/IvanBrykalov/shardstore/storage"
)

// Locked serializes every call to the wrapped storage.
type Locked[K comparable, V any] struct {
	mu sync.Mutex
	st storage.Storage[K, V] // guarded by mu
}

// NewLocked wraps st. st must not be used directly afterwards.
func NewLocked[K comparable, V any](st storage.Storage[K, V]) *Locked[K, V] {
	return &Locked[K, V]{st: st}
}

// Do runs fn with the lock held, making a sequence of calls atomic.
// fn must not retain st or call back into l.
func (l *Locked[K, V]) Do(fn func(st storage.Storage[K, V]) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.st)
}

func (l *Locked[K, V]) Entries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Entries()
}

func (l *Locked[K, V]) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Capacity()
}

func (l *Locked[K, V]) Create(v V) (K, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Create(v)
}

func (l *Locked[K, V]) Read(k K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Read(k)
}

func (l *Locked[K, V]) Update(k K, v V) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Update(k, v)
}

func (l *Locked[K, V]) Delete(k K) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Delete(k)
}

func (l *Locked[K, V]) Has(k K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Has(k)
}

func (l *Locked[K, V]) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.IsEmpty()
}

func (l *Locked[K, V]) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.IsFull()
}

func (l *Locked[K, V]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.Clear()
}

func (l *Locked[K, V]) Swap(k1, k2 K) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.Swap(k1, k2)
}

// All yields a snapshot taken under the lock; the caller may mutate l
// while iterating.
func (l *Locked[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range l.snapshot() {
			if !yield(e.k, e.v) {
				return
			}
		}
	}
}

type entry[K comparable, V any] struct {
	k K
	v V
}

func (l *Locked[K, V]) snapshot() []entry[K, V] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entry[K, V], 0, l.st.Entries())
	for k, v := range l.st.All() {
		out = append(out, entry[K, V]{k, v})
	}
	return out
}

var _ storage.Storage[string, int] = (*Locked[string, int])(nil)
