package storage

import "fmt"

// capacityOwner is the view of a storage a CapacityChecker needs.
type capacityOwner[K comparable] interface {
	Capacity() int
	IsFull() bool
	Has(k K) bool
}

// CapacityChecker enforces the max-size policy of its owning storage on the
// create and update paths. Updates to existing keys never fail on capacity.
type CapacityChecker[K comparable] struct {
	owner capacityOwner[K]
}

// NewCapacityChecker binds a checker to owner.
func NewCapacityChecker[K comparable](owner capacityOwner[K]) CapacityChecker[K] {
	return CapacityChecker[K]{owner: owner}
}

// CheckForCreate fails with ErrOutOfSpace if the owner is full.
func (c CapacityChecker[K]) CheckForCreate() error {
	if c.owner.IsFull() {
		return fmt.Errorf("create: capacity %d reached: %w", c.owner.Capacity(), ErrOutOfSpace)
	}
	return nil
}

// CheckForUpdate fails with ErrOutOfSpace only if the owner is full and k
// is not already present.
func (c CapacityChecker[K]) CheckForUpdate(k K) error {
	if c.owner.IsFull() && !c.owner.Has(k) {
		return fmt.Errorf("update %v: capacity %d reached: %w", k, c.owner.Capacity(), ErrOutOfSpace)
	}
	return nil
}
