// Package storage provides a uniform keyed-storage contract and a family of
// interchangeable implementations that compose into trees.
//
// Design
//
//   - Contract: every storage implements Storage[K, V] (Create, Read,
//     Update, Delete, Swap, Has, Clear, size queries and a lazy All
//     iterator), so a composite can hold any other storage as a member.
//
//   - Leaves: MemoryStorage is a map with an optional entry bound.
//     LRUStorage adds recency and age eviction: over capacity the least
//     recently used entry goes (policy package, LRU by default, 2Q
//     available); entries older than Retention expire lazily on access.
//
//   - Composites: CachedStorage fronts an authoritative superset with a
//     fast subset and populates it on create, read and update as
//     configured. ClusteredStorage places new entries in the first member
//     with room, with at most one unbounded member as the overflow tail.
//     ReplicatedStorage fans every write out to all members in order and
//     reads from the first; a failing member aborts the write without
//     rolling back earlier members.
//
//   - Keys: storages that auto-assign keys own a KeyGenerator (package
//     keygen). With DedupKeys the generator's duplicate test is bound to the
//     owning storage's Has.
//
//   - Capacity: CapacityChecker centralizes the bound. Create fails with
//     ErrOutOfSpace on a full storage; Update fails only when the storage is
//     full and the key is new. Capacity Unbounded disables the bound.
//
//   - Errors: sentinel errors matched with errors.Is; KeyError carries the
//     operation and key.
//
//   - Concurrency: storages do no locking. Share one between goroutines
//     through package concurrent, or serialize access yourself.
//
// Basic usage
//
//	ids, _ := keygen.NewSequential(1, math.MaxInt64)
//	m := storage.NewMemory[int64, string](storage.MemoryOptions[int64]{Capacity: 100, KeyGen: ids})
//	k, err := m.Create("v")
//	if err != nil {
//	    return err
//	}
//	v, ok := m.Read(k)
//
// A tiered tree
//
//	lru := storage.NewLRU(storage.LRUOptions[int64, string]{Capacity: 64, Retention: time.Minute})
//	cluster, _ := storage.NewClustered([]storage.Storage[int64, string]{
//	    storage.NewMemory[int64, string](storage.MemoryOptions[int64]{Capacity: 1000}),
//	    storage.NewMemory[int64, string](storage.MemoryOptions[int64]{Capacity: storage.Unbounded}),
//	}, storage.ClusteredOptions[int64]{KeyGen: ids, DedupKeys: true})
//	tiered, _ := storage.NewCached[int64, string](lru, cluster, storage.CachedOptions{CacheOnRead: true})
//
// Trees can also be described in YAML (package config) and built by
// package registry.
package storage
