// Package policy defines the recency policies that order LRUStorage
// entries for eviction.
package policy

// Hooks expose O(1) operations over the storage's recency list. The list is
// indexed by key: nodes reference their neighbours by key, so a policy never
// holds node pointers. Implementations are provided by the storage.
//
// Important: hooks manage only the list; the storage owns the key->item map.
type Hooks[K comparable] interface {
	// MoveToFront promotes k to most-recently-used.
	MoveToFront(k K)
	// PushFront links k at MRU (used on admission).
	PushFront(k K)
	// Remove unlinks k from the list.
	Remove(k K)
	// Back returns the least-recently-used key, if any.
	Back() (K, bool)
	// Len returns the number of linked keys.
	Len() int
}

// Recency is a policy instance bound to one storage's hooks.
//
// Semantics:
//   - OnAdd may return an eviction candidate (e.g., LRU of a probation queue).
//     The storage evicts that key and subsequently calls OnRemove for it.
//   - OnGet/OnUpdate typically promote the key (e.g., move to MRU).
//   - OnRemove is a notification to update policy-internal state
//     (e.g., maintain ghost queues). The storage performs actual deletion.
type Recency[K comparable] interface {
	OnAdd(k K) (evict K, ok bool)
	OnGet(k K)
	OnUpdate(k K)
	OnRemove(k K)
}

// Policy is a factory that creates Recency instances bound to a storage's hooks.
type Policy[K comparable] interface {
	New(Hooks[K]) Recency[K]
}
