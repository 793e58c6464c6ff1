package concurrent

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/IvanBrykalov/shardstore/internal/singleflight"
	"github.com/IvanBrykalov/shardstore/internal/util"
	"github.com/IvanBrykalov/shardstore/storage"
)

// ErrNoLoader is returned by ReadOrLoad when no Loader was configured.
var ErrNoLoader = errors.New("concurrent: no Loader provided")

// Options configures a Sharded storage.
//   - Shards <= 0 -> 2*GOMAXPROCS; always rounded up to a power of two
//   - nil Hash    -> util.HashKey (xxHash64)
type Options[K comparable, V any] struct {
	Shards int

	// KeyGen assigns keys in Create. It is called without any shard lock
	// held, so it must be safe for concurrent Get (keygen.NewSequential,
	// keygen.NewUUID without a duplicate test).
	KeyGen storage.KeyGenerator[K]

	Hash func(K) uint64

	// Loader fills misses in ReadOrLoad.
	Loader func(ctx context.Context, k K) (V, error)
}

// Sharded spreads keys over independent storages by hash. Each shard has
// its own lock; operations on different shards run in parallel.
//
// Aggregates (Entries, Capacity, IsEmpty, IsFull) visit the shards one
// after another and are not an atomic snapshot under concurrent writes.
type Sharded[K comparable, V any] struct {
	shards []*Locked[K, V]
	hash   func(K) uint64
	opt    Options[K, V]

	sf singleflight.Group[K, V]
}

// NewSharded builds one storage per shard with build(i). A nil storage or a
// build error aborts construction.
func NewSharded[K comparable, V any](build func(i int) (storage.Storage[K, V], error), opt Options[K, V]) (*Sharded[K, V], error) {
	n := util.ShardCount(opt.Shards)
	if opt.Hash == nil {
		opt.Hash = util.HashKey[K]
	}
	s := &Sharded[K, V]{
		shards: make([]*Locked[K, V], n),
		hash:   opt.Hash,
		opt:    opt,
	}
	for i := range n {
		st, err := build(i)
		if err != nil {
			return nil, fmt.Errorf("concurrent: build shard %d: %w", i, err)
		}
		if st == nil {
			return nil, fmt.Errorf("concurrent: shard %d is nil: %w", i, storage.ErrNotAvailableStorage)
		}
		s.shards[i] = NewLocked(st)
	}
	return s, nil
}

// Shards returns the number of shards.
func (s *Sharded[K, V]) Shards() int { return len(s.shards) }

func (s *Sharded[K, V]) Entries() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Entries()
	}
	return n
}

// Capacity is the sum of shard capacities, or Unbounded if any shard is.
func (s *Sharded[K, V]) Capacity() int {
	total := 0
	for _, sh := range s.shards {
		c := sh.Capacity()
		if c == storage.Unbounded {
			return storage.Unbounded
		}
		total += c
	}
	return total
}

// Create assigns a key and stores v in the shard the key hashes to. The
// shard's own Update rules apply: a full bounded shard rejects the entry
// with ErrOutOfSpace even while other shards have room.
func (s *Sharded[K, V]) Create(v V) (K, error) {
	var zero K
	if s.opt.KeyGen == nil {
		return zero, storage.ErrMissingKeyGenerator
	}
	k, err := s.opt.KeyGen.Get()
	if err != nil {
		return zero, err
	}
	if err := s.shardFor(k).Update(k, v); err != nil {
		return zero, err
	}
	return k, nil
}

func (s *Sharded[K, V]) Read(k K) (V, bool)    { return s.shardFor(k).Read(k) }
func (s *Sharded[K, V]) Update(k K, v V) error { return s.shardFor(k).Update(k, v) }
func (s *Sharded[K, V]) Delete(k K) error      { return s.shardFor(k).Delete(k) }
func (s *Sharded[K, V]) Has(k K) bool          { return s.shardFor(k).Has(k) }

func (s *Sharded[K, V]) IsEmpty() bool {
	for _, sh := range s.shards {
		if !sh.IsEmpty() {
			return false
		}
	}
	return true
}

// IsFull reports whether every shard is full.
func (s *Sharded[K, V]) IsFull() bool {
	for _, sh := range s.shards {
		if !sh.IsFull() {
			return false
		}
	}
	return true
}

func (s *Sharded[K, V]) Clear() {
	for _, sh := range s.shards {
		sh.Clear()
	}
}

// Swap exchanges two values atomically. Keys on different shards lock both
// shards in index order.
func (s *Sharded[K, V]) Swap(k1, k2 K) error {
	i, j := s.index(k1), s.index(k2)
	if i == j {
		return s.shards[i].Swap(k1, k2)
	}
	a, b := s.shards[i], s.shards[j]
	if i < j {
		a.mu.Lock()
		b.mu.Lock()
	} else {
		b.mu.Lock()
		a.mu.Lock()
	}
	defer a.mu.Unlock()
	defer b.mu.Unlock()

	v1, ok := a.st.Read(k1)
	if !ok {
		return &storage.KeyError{Op: "swap", Key: k1, Err: storage.ErrKeyNotFound}
	}
	v2, ok := b.st.Read(k2)
	if !ok {
		return &storage.KeyError{Op: "swap", Key: k2, Err: storage.ErrKeyNotFound}
	}
	if err := a.st.Update(k1, v2); err != nil {
		return err
	}
	return b.st.Update(k2, v1)
}

// All yields each shard's snapshot in shard order.
func (s *Sharded[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, sh := range s.shards {
			for k, v := range sh.All() {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// ReadOrLoad returns the value for k; on a miss it calls Options.Loader and
// stores the result. Concurrent misses on the same key share one load.
func (s *Sharded[K, V]) ReadOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := s.Read(k); ok {
		return v, nil
	}
	if s.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	v, _, err := s.sf.Do(ctx, k, func(ctx context.Context) (V, error) {
		// A previous flight may have stored it already.
		if v, ok := s.Read(k); ok {
			return v, nil
		}
		v, err := s.opt.Loader(ctx, k)
		if err != nil {
			var zero V
			return zero, err
		}
		if err := s.Update(k, v); err != nil {
			var zero V
			return zero, fmt.Errorf("concurrent: store loaded value: %w", err)
		}
		return v, nil
	})
	return v, err
}

func (s *Sharded[K, V]) index(k K) int { return util.ShardIndex(s.hash(k), len(s.shards)) }

func (s *Sharded[K, V]) shardFor(k K) *Locked[K, V] { return s.shards[s.index(k)] }

var _ storage.Storage[string, int] = (*Sharded[string, int])(nil)
