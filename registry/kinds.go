package registry

import (
	"fmt"
	"math"

	"github.com/IvanBrykalov/shardstore/config"
	"github.com/IvanBrykalov/shardstore/keygen"
	"github.com/IvanBrykalov/shardstore/policy"
	"github.com/IvanBrykalov/shardstore/policy/lru"
	"github.com/IvanBrykalov/shardstore/policy/twoq"
	"github.com/IvanBrykalov/shardstore/storage"
)

// Storage kind tags.
const (
	KindMemory     = "memory"
	KindLRU        = "lru"
	KindCached     = "cached"
	KindClustered  = "clustered"
	KindReplicated = "replicated"
)

// Key-generator kind tags.
const (
	KeyGenUUID       = "uuid"
	KeyGenString     = "string"
	KeyGenRandom     = "random"
	KeyGenSequential = "sequential"
)

// Recency policy tags of LRU storages.
const (
	PolicyLRU = "lru"
	Policy2Q  = "2q"
)

// 2Q queue sizes used when the storage is unbounded.
const (
	defaultTwoQIn    = 256
	defaultTwoQGhost = 512
)

// defaultStringLength is used when a string keygen sets no length.
const defaultStringLength = 16

// NewStringKeyed returns a registry for string keys with the uuid and
// string key-generator kinds.
//
//	uuid:   max is the rendered length (0, 32 or 36)
//	string: min..max is the length range (defaults to 16)
func NewStringKeyed[V any](opts ...Option[string, V]) *Registry[string, V] {
	r := New(opts...)
	r.RegisterKeyGen(KeyGenUUID, func(cfg config.KeyGen) (storage.KeyGenerator[string], error) {
		return keygen.NewUUID(int(cfg.Max), keygen.WithRetries[string](cfg.Retries))
	})
	r.RegisterKeyGen(KeyGenString, func(cfg config.KeyGen) (storage.KeyGenerator[string], error) {
		lo, hi := int(cfg.Min), int(cfg.Max)
		if lo == 0 {
			lo = defaultStringLength
		}
		if hi == 0 {
			hi = lo
		}
		return keygen.NewRandomString(lo, hi, keygen.WithRetries[string](cfg.Retries))
	})
	return r
}

// NewInt64Keyed returns a registry for int64 keys with the random and
// sequential key-generator kinds.
//
//	random:     uniform over [min, max)
//	sequential: min, min+1, ... up to max inclusive; max 0 means no ceiling
func NewInt64Keyed[V any](opts ...Option[int64, V]) *Registry[int64, V] {
	r := New(opts...)
	r.RegisterKeyGen(KeyGenRandom, func(cfg config.KeyGen) (storage.KeyGenerator[int64], error) {
		return keygen.NewRandom(cfg.Min, cfg.Max, keygen.WithRetries[int64](cfg.Retries))
	})
	r.RegisterKeyGen(KeyGenSequential, func(cfg config.KeyGen) (storage.KeyGenerator[int64], error) {
		ceiling := cfg.Max
		if ceiling == 0 {
			ceiling = math.MaxInt64
		}
		return keygen.NewSequential(cfg.Min, ceiling, keygen.WithRetries[int64](cfg.Retries))
	})
	return r
}

func dedup(cfg config.Storage) bool { return cfg.KeyGen != nil && cfg.KeyGen.Dedup }

func buildMemory[K comparable, V any](r *Registry[K, V], cfg config.Storage) (storage.Storage[K, V], error) {
	kg, err := r.KeyGen(cfg.KeyGen)
	if err != nil {
		return nil, err
	}
	return storage.NewMemory[K, V](storage.MemoryOptions[K]{
		Capacity:  cfg.Bound(),
		KeyGen:    kg,
		DedupKeys: dedup(cfg),
	}), nil
}

func buildLRU[K comparable, V any](r *Registry[K, V], cfg config.Storage) (storage.Storage[K, V], error) {
	kg, err := r.KeyGen(cfg.KeyGen)
	if err != nil {
		return nil, err
	}
	pol, err := recencyPolicy[K](cfg.Policy, cfg.Bound())
	if err != nil {
		return nil, err
	}
	return storage.NewLRU(storage.LRUOptions[K, V]{
		Capacity:  cfg.Bound(),
		Retention: cfg.Retention,
		Policy:    pol,
		KeyGen:    kg,
		DedupKeys: dedup(cfg),
		Metrics:   r.metrics,
		Clock:     r.clock,
	}), nil
}

func recencyPolicy[K comparable](tag string, capacity int) (policy.Policy[K], error) {
	switch tag {
	case "", PolicyLRU:
		return lru.New[K](), nil
	case Policy2Q:
		in, ghost := defaultTwoQIn, defaultTwoQGhost
		if capacity != storage.Unbounded {
			in, ghost = capacity/4, capacity/2
		}
		return twoq.New[K](in, ghost), nil
	default:
		return nil, fmt.Errorf("unknown policy %q: %w", tag, storage.ErrInvalidConfiguration)
	}
}

func buildCached[K comparable, V any](r *Registry[K, V], cfg config.Storage) (storage.Storage[K, V], error) {
	if cfg.Subset == nil || cfg.Superset == nil {
		return nil, fmt.Errorf("cached storage needs a subset and a superset: %w", storage.ErrInvalidConfiguration)
	}
	// This node owns read metrics; the subset keeps the Size gauge.
	subset, err := r.scoped(withoutReads(r.metrics)).build(*cfg.Subset)
	if err != nil {
		return nil, err
	}
	superset, err := r.scoped(onlyEvictions(r.metrics)).build(*cfg.Superset)
	if err != nil {
		return nil, err
	}
	return storage.NewCached(subset, superset, storage.CachedOptions{
		CacheOnCreate: cfg.CacheOnCreate,
		CacheOnRead:   cfg.CacheOnRead,
		CacheOnUpdate: cfg.CacheOnUpdate,
		Metrics:       r.metrics,
		Logger:        r.logger,
	})
}

func (r *Registry[K, V]) members(cfg config.Storage) ([]storage.Storage[K, V], storage.KeyGenerator[K], error) {
	kg, err := r.KeyGen(cfg.KeyGen)
	if err != nil {
		return nil, nil, err
	}
	// A read may visit several members, so none of them counts reads.
	mr := r.scoped(onlyEvictions(r.metrics))
	ms := make([]storage.Storage[K, V], 0, len(cfg.Members))
	for i, mc := range cfg.Members {
		m, err := mr.build(mc)
		if err != nil {
			return nil, nil, fmt.Errorf("member %d: %w", i, err)
		}
		ms = append(ms, m)
	}
	return ms, kg, nil
}

func buildClustered[K comparable, V any](r *Registry[K, V], cfg config.Storage) (storage.Storage[K, V], error) {
	ms, kg, err := r.members(cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewClustered(ms, storage.ClusteredOptions[K]{
		KeyGen:    kg,
		DedupKeys: dedup(cfg),
		Logger:    r.logger,
	})
}

func buildReplicated[K comparable, V any](r *Registry[K, V], cfg config.Storage) (storage.Storage[K, V], error) {
	ms, kg, err := r.members(cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewReplicated(ms, storage.ReplicatedOptions[K]{
		KeyGen:    kg,
		DedupKeys: dedup(cfg),
		Logger:    r.logger,
	})
}
