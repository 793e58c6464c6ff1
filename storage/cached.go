package storage

import (
	"fmt"
	"iter"
	"log/slog"
)

// CachedStorage fronts an authoritative superset storage with a fast,
// possibly partial subset storage.
//
// The superset is the source of truth for existence, count and capacity;
// the subset only ever holds copies. Which paths populate the subset is
// governed by CachedOptions.
type CachedStorage[K comparable, V any] struct {
	subset   Storage[K, V]
	superset Storage[K, V]

	opt     CachedOptions
	metrics Metrics
	log     *slog.Logger
}

// NewCached composes subset over superset.
func NewCached[K comparable, V any](subset, superset Storage[K, V], opt CachedOptions) (*CachedStorage[K, V], error) {
	if subset == nil || superset == nil {
		return nil, fmt.Errorf("cached storage needs both tiers: %w", ErrNotAvailableStorage)
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &CachedStorage[K, V]{
		subset:   subset,
		superset: superset,
		opt:      opt,
		metrics:  opt.Metrics,
		log:      loggerOrDiscard(opt.Logger),
	}, nil
}

// Subset returns the fast tier.
func (c *CachedStorage[K, V]) Subset() Storage[K, V] { return c.subset }

// Superset returns the authoritative tier.
func (c *CachedStorage[K, V]) Superset() Storage[K, V] { return c.superset }

func (c *CachedStorage[K, V]) Entries() int  { return c.superset.Entries() }
func (c *CachedStorage[K, V]) Capacity() int { return c.superset.Capacity() }
func (c *CachedStorage[K, V]) IsEmpty() bool { return c.superset.IsEmpty() }
func (c *CachedStorage[K, V]) IsFull() bool  { return c.superset.IsFull() }
func (c *CachedStorage[K, V]) Has(k K) bool  { return c.superset.Has(k) }

// Create lets the superset assign the key, then optionally caches the pair.
func (c *CachedStorage[K, V]) Create(v V) (K, error) {
	k, err := c.superset.Create(v)
	if err != nil {
		return k, err
	}
	if c.opt.CacheOnCreate {
		c.populate("create", k, v)
	}
	return k, nil
}

// Read serves from the subset when possible. On a miss it reads the
// superset and, with CacheOnRead, copies the result into the subset.
func (c *CachedStorage[K, V]) Read(k K) (V, bool) {
	if v, ok := c.subset.Read(k); ok {
		c.metrics.Hit()
		return v, true
	}
	c.metrics.Miss()

	v, ok := c.superset.Read(k)
	if ok && c.opt.CacheOnRead {
		c.populate("read", k, v)
	}
	return v, ok
}

// Update always writes the superset and mirrors to the subset with CacheOnUpdate.
func (c *CachedStorage[K, V]) Update(k K, v V) error {
	if err := c.superset.Update(k, v); err != nil {
		return err
	}
	if c.opt.CacheOnUpdate {
		c.populate("update", k, v)
	} else {
		// a stale copy would shadow the new value on the next Read
		c.invalidate(k)
	}
	return nil
}

// Delete removes k from both tiers.
func (c *CachedStorage[K, V]) Delete(k K) error {
	if err := c.superset.Delete(k); err != nil {
		return err
	}
	c.invalidate(k)
	return nil
}

// Clear clears both tiers.
func (c *CachedStorage[K, V]) Clear() {
	c.subset.Clear()
	c.superset.Clear()
}

// Swap swaps in the superset and drops both keys from the subset.
func (c *CachedStorage[K, V]) Swap(k1, k2 K) error {
	if err := c.superset.Swap(k1, k2); err != nil {
		return err
	}
	c.invalidate(k1)
	c.invalidate(k2)
	return nil
}

// All iterates the superset.
func (c *CachedStorage[K, V]) All() iter.Seq2[K, V] { return c.superset.All() }

// populate copies k→v into the subset. Failures (e.g. a bounded subset that
// does not evict) are logged and otherwise ignored.
func (c *CachedStorage[K, V]) populate(op string, k K, v V) {
	if err := c.subset.Update(k, v); err != nil {
		c.log.Debug("subset population skipped", "op", op, "key", k, "err", err)
	}
}

func (c *CachedStorage[K, V]) invalidate(k K) {
	if err := c.subset.Delete(k); err != nil {
		c.log.Warn("subset invalidation failed", "key", k, "err", err)
	}
}

var _ Storage[string, int] = (*CachedStorage[string, int])(nil)
