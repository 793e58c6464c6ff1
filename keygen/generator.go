// Package keygen manufactures keys for storages that auto-assign them.
//
// A Generator draws candidates from a supplier. With a duplicate test
// configured it retries up to a bounded number of times, discarding
// candidates the test rejects, and fails with storage.ErrNoKeyGenerated once
// the budget is spent.
//
// Concurrency: only the sequential supplier is safe for concurrent Get.
// For the random variants the draw → test → accept loop is not atomic with
// respect to a storage mutated by another goroutine, so duplicates remain
// possible under concurrent use.
package keygen

import (
	"fmt"

	"github.com/IvanBrykalov/shardstore/storage"
)

// DefaultRetries is the retry bound used when none is configured.
const DefaultRetries = 10

// Generator produces keys of type K.
type Generator[K comparable] struct {
	supply      func() (K, error)
	isDuplicate func(K) bool
	retries     int
}

// Option configures a Generator.
type Option[K comparable] func(*Generator[K])

// WithDuplicateTest sets the predicate that rejects a candidate key.
func WithDuplicateTest[K comparable](isDuplicate func(K) bool) Option[K] {
	return func(g *Generator[K]) { g.isDuplicate = isDuplicate }
}

// WithRetries sets how many candidates are drawn before giving up.
// Values below 1 are ignored.
func WithRetries[K comparable](n int) Option[K] {
	return func(g *Generator[K]) {
		if n > 0 {
			g.retries = n
		}
	}
}

// New wraps supply into a Generator.
func New[K comparable](supply func() (K, error), opts ...Option[K]) *Generator[K] {
	g := &Generator[K]{supply: supply, retries: DefaultRetries}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get returns the next key. Supplier errors are returned as is and never
// retried.
func (g *Generator[K]) Get() (K, error) {
	if g.isDuplicate == nil {
		return g.supply()
	}
	for range g.retries {
		k, err := g.supply()
		if err != nil {
			return k, err
		}
		if !g.isDuplicate(k) {
			return k, nil
		}
	}
	var zero K
	return zero, fmt.Errorf("keygen: %d candidates rejected: %w", g.retries, storage.ErrNoKeyGenerated)
}

// SetDuplicateTest replaces the duplicate test. Storages call it to bind
// their own Has when key deduplication is requested.
func (g *Generator[K]) SetDuplicateTest(isDuplicate func(K) bool) { g.isDuplicate = isDuplicate }

// Retries returns the retry bound.
func (g *Generator[K]) Retries() int { return g.retries }

var (
	_ storage.KeyGenerator[string]    = (*Generator[string])(nil)
	_ storage.DuplicateTester[string] = (*Generator[string])(nil)
)
