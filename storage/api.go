package storage

import "iter"

// Unbounded is the Capacity sentinel for a storage without an entry limit.
const Unbounded = -1

// Storage is the uniform CRUD + iteration contract implemented by every
// backing strategy in this package (leaf and composite alike).
//
// Storages are NOT safe for concurrent use. Callers that share a storage
// between goroutines must serialize access themselves.
type Storage[K comparable, V any] interface {
	// Entries returns the number of resident entries.
	Entries() int

	// Capacity returns the entry limit, or Unbounded.
	Capacity() int

	// Create stores v under a key produced by the storage's KeyGenerator.
	// Returns ErrMissingKeyGenerator if none is configured and
	// ErrOutOfSpace if the storage is full.
	Create(v V) (K, error)

	// Read returns the value for k and a presence flag.
	Read(k K) (V, bool)

	// Update inserts or replaces k→v. It fails with ErrOutOfSpace only when
	// the storage is full and k is not already present.
	Update(k K, v V) error

	// Delete removes k. Deleting an absent key is a no-op.
	// Composite storages surface member failures through the error.
	Delete(k K) error

	// Has reports whether k is present.
	Has(k K) bool

	IsEmpty() bool
	IsFull() bool

	// Clear removes every entry. The storage stays usable.
	Clear()

	// Swap exchanges the values stored under k1 and k2.
	// Returns ErrKeyNotFound if either key is absent.
	Swap(k1, k2 K) error

	// All returns a lazy, finite sequence of entries. Order is unspecified
	// unless the implementation documents one. Mutating the storage while
	// ranging over the sequence is undefined behavior.
	All() iter.Seq2[K, V]
}

// KeyGenerator produces keys for Storage.Create.
// See package keygen for implementations.
type KeyGenerator[K comparable] interface {
	Get() (K, error)
}

// DuplicateTester is implemented by generators that can retry candidates
// rejected by a predicate. Storages bind it to their own Has when key
// deduplication is requested.
type DuplicateTester[K comparable] interface {
	SetDuplicateTest(isDuplicate func(K) bool)
}

// bindKeyGen attaches the owner's Has as duplicate test when dedup is set
// and the generator supports it.
func bindKeyGen[K comparable](g KeyGenerator[K], dedup bool, has func(K) bool) {
	if g == nil || !dedup {
		return
	}
	if dt, ok := g.(DuplicateTester[K]); ok {
		dt.SetDuplicateTest(has)
	}
}

// nextKey draws a key from g or reports a missing generator.
func nextKey[K comparable](g KeyGenerator[K]) (K, error) {
	if g == nil {
		var zero K
		return zero, ErrMissingKeyGenerator
	}
	return g.Get()
}

// isFull reports whether entries reached a bounded capacity.
func isFull(entries, capacity int) bool {
	return capacity != Unbounded && entries >= capacity
}
