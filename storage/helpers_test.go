package storage_test

import (
	"iter"
	"testing"
	"time"

	"github.com/IvanBrykalov/shardstore/keygen"
	"github.com/IvanBrykalov/shardstore/storage"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t }
func (f *fakeClock) set(d time.Duration) { f.t = int64(d) }

// seqKeys returns a sequential generator starting at 0.
func seqKeys(t *testing.T) *keygen.Generator[int64] {
	t.Helper()
	g, err := keygen.NewSequential(0, 1<<40)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// listKeys hands out the given keys in order.
func listKeys(keys ...string) *keygen.Generator[string] {
	i := 0
	return keygen.New(func() (string, error) {
		k := keys[i%len(keys)]
		i++
		return k, nil
	})
}

func memory(capacity int) *storage.MemoryStorage[int64, string] {
	return storage.NewMemory[int64, string](storage.MemoryOptions[int64]{Capacity: capacity})
}

// countingStorage wraps a storage and counts the calls that reach it.
type countingStorage[K comparable, V any] struct {
	storage.Storage[K, V]
	reads, updates, deletes int
}

func (c *countingStorage[K, V]) Read(k K) (V, bool) {
	c.reads++
	return c.Storage.Read(k)
}

func (c *countingStorage[K, V]) Update(k K, v V) error {
	c.updates++
	return c.Storage.Update(k, v)
}

func (c *countingStorage[K, V]) Delete(k K) error {
	c.deletes++
	return c.Storage.Delete(k)
}

// failingStorage rejects every write.
type failingStorage[K comparable, V any] struct {
	storage.Storage[K, V]
	err error
}

func (f *failingStorage[K, V]) Update(K, V) error { return f.err }
func (f *failingStorage[K, V]) Delete(K) error    { return f.err }

func collect[K comparable, V any](seq iter.Seq2[K, V]) map[K]V {
	out := make(map[K]V)
	for k, v := range seq {
		out[k] = v
	}
	return out
}

// checkBound asserts the capacity invariant of a bounded storage.
func checkBound[K comparable, V any](t *testing.T, s storage.Storage[K, V]) {
	t.Helper()
	if c := s.Capacity(); c != storage.Unbounded && s.Entries() > c {
		t.Fatalf("entries %d exceed capacity %d", s.Entries(), c)
	}
}
