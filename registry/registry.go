// Package registry maps kind tags to constructor closures and builds
// storage trees from config descriptors.
//
// A Registry is populated once at start-up. Nothing is looked up by type
// name at run time: every kind a descriptor may name must have been
// registered explicitly, and unknown tags fail with
// storage.ErrInvalidConfiguration.
package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/IvanBrykalov/shardstore/config"
	"github.com/IvanBrykalov/shardstore/storage"
)

// StorageFactory builds one storage node. Factories of composite kinds call
// r.Build for their members.
type StorageFactory[K comparable, V any] func(r *Registry[K, V], cfg config.Storage) (storage.Storage[K, V], error)

// KeyGenFactory builds a key generator from its descriptor.
type KeyGenFactory[K comparable] func(cfg config.KeyGen) (storage.KeyGenerator[K], error)

// Registry holds the storage and key-generator kinds known to a builder.
type Registry[K comparable, V any] struct {
	storages map[string]StorageFactory[K, V]
	keygens  map[string]KeyGenFactory[K]

	metrics storage.Metrics
	clock   storage.Clock
	logger  *slog.Logger
}

// Option configures a Registry.
type Option[K comparable, V any] func(*Registry[K, V])

// WithMetrics wires m into the storages the registry builds. Each read is
// observed once, by the outermost LRU or cached node; inner nodes report
// evictions only.
func WithMetrics[K comparable, V any](m storage.Metrics) Option[K, V] {
	return func(r *Registry[K, V]) { r.metrics = m }
}

// WithClock sets the time source of LRU storages (tests).
func WithClock[K comparable, V any](c storage.Clock) Option[K, V] {
	return func(r *Registry[K, V]) { r.clock = c }
}

// WithLogger sets the logger handed to composite storages.
func WithLogger[K comparable, V any](l *slog.Logger) Option[K, V] {
	return func(r *Registry[K, V]) { r.logger = l }
}

// New returns a registry with the built-in storage kinds (memory, lru,
// cached, clustered, replicated) and no key-generator kinds.
func New[K comparable, V any](opts ...Option[K, V]) *Registry[K, V] {
	r := &Registry[K, V]{
		storages: make(map[string]StorageFactory[K, V]),
		keygens:  make(map[string]KeyGenFactory[K]),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.RegisterStorage(KindMemory, buildMemory[K, V])
	r.RegisterStorage(KindLRU, buildLRU[K, V])
	r.RegisterStorage(KindCached, buildCached[K, V])
	r.RegisterStorage(KindClustered, buildClustered[K, V])
	r.RegisterStorage(KindReplicated, buildReplicated[K, V])
	return r
}

// RegisterStorage adds or replaces a storage kind.
func (r *Registry[K, V]) RegisterStorage(kind string, f StorageFactory[K, V]) {
	r.storages[kind] = f
}

// RegisterKeyGen adds or replaces a key-generator kind.
func (r *Registry[K, V]) RegisterKeyGen(kind string, f KeyGenFactory[K]) {
	r.keygens[kind] = f
}

// StorageKinds lists the registered storage tags, sorted.
func (r *Registry[K, V]) StorageKinds() []string {
	return slices.Sorted(maps.Keys(r.storages))
}

// KeyGenKinds lists the registered key-generator tags, sorted.
func (r *Registry[K, V]) KeyGenKinds() []string {
	return slices.Sorted(maps.Keys(r.keygens))
}

// Build validates cfg and constructs the storage tree it describes.
func (r *Registry[K, V]) Build(cfg config.Storage) (storage.Storage[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return r.build(cfg)
}

func (r *Registry[K, V]) build(cfg config.Storage) (storage.Storage[K, V], error) {
	f, ok := r.storages[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("registry: unknown storage kind %q (known: %v): %w",
			cfg.Kind, r.StorageKinds(), storage.ErrInvalidConfiguration)
	}
	s, err := f(r, cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: build %s: %w", cfg.Kind, err)
	}
	return s, nil
}

// KeyGen builds the generator described by cfg; a nil descriptor yields a
// nil generator.
func (r *Registry[K, V]) KeyGen(cfg *config.KeyGen) (storage.KeyGenerator[K], error) {
	if cfg == nil {
		return nil, nil
	}
	f, ok := r.keygens[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("registry: unknown keygen kind %q (known: %v): %w",
			cfg.Kind, r.KeyGenKinds(), storage.ErrInvalidConfiguration)
	}
	return f(*cfg)
}

// Metrics returns the metrics sink for the node being built (may be nil).
// Inside a composite factory it is already narrowed for that member.
func (r *Registry[K, V]) Metrics() storage.Metrics { return r.metrics }

// Clock returns the clock handed to LRU storages (may be nil).
func (r *Registry[K, V]) Clock() storage.Clock { return r.clock }

// Logger returns the logger handed to composite storages (may be nil).
func (r *Registry[K, V]) Logger() *slog.Logger { return r.logger }
