package storage

import (
	"log/slog"
	"time"

	"github.com/IvanBrykalov/shardstore/policy"
)

// EvictReason explains why an entry was removed without a Delete call.
type EvictReason int

const (
	// EvictPolicy: removed by the recency policy to respect Capacity.
	EvictPolicy EvictReason = iota
	// EvictTTL: expired by retention (lazy eviction on access).
	EvictTTL
)

// Metrics exposes storage-level observability hooks.
// NoopMetrics is used when none is configured.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

type wallClock struct{}

func (wallClock) NowUnixNano() int64 { return time.Now().UnixNano() }

// NoRetention disables time-based expiry in LRUStorage.
const NoRetention time.Duration = 0

// MemoryOptions configures a MemoryStorage.
type MemoryOptions[K comparable] struct {
	// Capacity is the entry limit. Unbounded disables it; 0 is a valid
	// (always full) bound.
	Capacity int

	// KeyGen produces keys for Create. Nil makes Create fail.
	KeyGen KeyGenerator[K]
	// DedupKeys binds KeyGen's duplicate test to this storage's Has.
	DedupKeys bool
}

// LRUOptions configures an LRUStorage. Zero values are safe apart from
// Capacity, which must be set (Unbounded disables count eviction).
//   - nil Policy   => LRU
//   - nil Clock    => time.Now()
//   - nil Metrics  => NoopMetrics
type LRUOptions[K comparable, V any] struct {
	// Capacity bounds the entry count; Unbounded disables count eviction.
	// 0 is valid but rejects every write with ErrOutOfSpace.
	Capacity int

	// Retention is the maximum age of an entry measured from its last
	// write. NoRetention disables time-based expiry.
	Retention time.Duration

	// Policy orders entries for eviction (LRU/2Q). Nil => LRU.
	Policy policy.Policy[K]

	KeyGen    KeyGenerator[K]
	DedupKeys bool

	Metrics Metrics
	// OnEvict is called for every policy or retention eviction.
	OnEvict func(k K, v V, reason EvictReason)

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}

// CachedOptions selects which paths populate the subset tier.
type CachedOptions struct {
	CacheOnCreate bool
	CacheOnRead   bool
	CacheOnUpdate bool

	// Metrics receives Hit/Miss for subset lookups.
	Metrics Metrics
	Logger  *slog.Logger
}

// ClusteredOptions configures a ClusteredStorage.
type ClusteredOptions[K comparable] struct {
	KeyGen    KeyGenerator[K]
	DedupKeys bool
	Logger    *slog.Logger
}

// ReplicatedOptions configures a ReplicatedStorage.
type ReplicatedOptions[K comparable] struct {
	KeyGen    KeyGenerator[K]
	DedupKeys bool
	Logger    *slog.Logger
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

func validCapacity(c int) bool { return c >= 0 || c == Unbounded }
