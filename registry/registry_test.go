package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/shardstore/config"
	"github.com/IvanBrykalov/shardstore/registry"
	"github.com/IvanBrykalov/shardstore/storage"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowUnixNano() int64 { return f.t }

func TestBuild_Default(t *testing.T) {
	t.Parallel()

	r := registry.NewStringKeyed[string]()
	s, err := r.Build(config.Default())
	require.NoError(t, err)

	cached, ok := s.(*storage.CachedStorage[string, string])
	require.True(t, ok, "root is %T", s)
	assert.Equal(t, 1024, cached.Subset().Capacity())

	cluster, ok := cached.Superset().(*storage.ClusteredStorage[string, string])
	require.True(t, ok, "superset is %T", cached.Superset())
	assert.Len(t, cluster.Members(), 3)
	assert.Equal(t, storage.Unbounded, s.Capacity())

	k, err := s.Create("v")
	require.NoError(t, err)
	assert.Len(t, k, 36)
	assert.True(t, cached.Subset().Has(k), "cache_on_create populates the subset")

	v, ok := s.Read(k)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestBuild_ClusterSpillsInOrder(t *testing.T) {
	t.Parallel()

	doc := `
kind: clustered
keygen: {kind: sequential, min: 100, dedup: true}
members:
  - {kind: memory, capacity: 1}
  - {kind: lru, capacity: 1}
  - {kind: memory}
`
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	s, err := registry.NewInt64Keyed[string]().Build(cfg)
	require.NoError(t, err)
	cluster := s.(*storage.ClusteredStorage[int64, string])

	for _, want := range []int64{100, 101, 102, 103} {
		k, err := s.Create("v")
		require.NoError(t, err)
		assert.Equal(t, want, k)
	}
	ms := cluster.Members()
	assert.True(t, ms[0].Has(100))
	assert.True(t, ms[1].Has(101))
	assert.Equal(t, 2, ms[2].Entries(), "overflow lands on the unbounded tail")
	assert.Equal(t, 4, s.Entries())
}

func TestBuild_ReplicatedLRURetention(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	r := registry.NewInt64Keyed[string](registry.WithClock[int64, string](clk))
	cfg := config.Storage{
		Kind:   registry.KindReplicated,
		KeyGen: &config.KeyGen{Kind: registry.KeyGenRandom, Min: 1, Max: 1 << 30, Dedup: true},
		Members: []config.Storage{
			{Kind: registry.KindLRU, Capacity: config.Capacity(8), Retention: time.Second},
			{Kind: registry.KindLRU, Capacity: config.Capacity(8), Retention: time.Second, Policy: registry.Policy2Q},
		},
	}
	s, err := r.Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Capacity())

	k, err := s.Create("v")
	require.NoError(t, err)
	assert.True(t, s.Has(k))

	clk.t = int64(2 * time.Second)
	assert.False(t, s.Has(k), "entry older than retention is gone")
}

func TestBuild_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Storage
	}{
		{name: "unknown kind", cfg: config.Storage{Kind: "disk"}},
		{name: "missing kind", cfg: config.Storage{}},
		{
			name: "unknown keygen",
			cfg:  config.Storage{Kind: registry.KindMemory, KeyGen: &config.KeyGen{Kind: registry.KeyGenSequential}},
		},
		{name: "unknown policy", cfg: config.Storage{Kind: registry.KindLRU, Policy: "arc"}},
		{name: "cached without tiers", cfg: config.Storage{Kind: registry.KindCached}},
		{
			name: "bad uuid length",
			cfg:  config.Storage{Kind: registry.KindMemory, KeyGen: &config.KeyGen{Kind: registry.KeyGenUUID, Max: 12}},
		},
		{
			name: "unbounded member before the tail",
			cfg: config.Storage{Kind: registry.KindClustered, Members: []config.Storage{
				{Kind: registry.KindMemory},
				{Kind: registry.KindMemory, Capacity: config.Capacity(2)},
			}},
		},
		{
			name: "nested unknown kind",
			cfg: config.Storage{Kind: registry.KindReplicated, Members: []config.Storage{
				{Kind: registry.KindMemory}, {Kind: "tape"},
			}},
		},
	}
	r := registry.NewStringKeyed[int]()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.cfg)
			assert.ErrorIs(t, err, storage.ErrInvalidConfiguration)
		})
	}

	_, err := registry.NewInt64Keyed[int]().Build(config.Storage{Kind: registry.KindReplicated})
	assert.ErrorIs(t, err, storage.ErrNotAvailableStorage, "replica set without members")
}

func TestRegistry_CustomKinds(t *testing.T) {
	t.Parallel()

	r := registry.New[string, int]()
	assert.Equal(t, []string{"cached", "clustered", "lru", "memory", "replicated"}, r.StorageKinds())
	assert.Empty(t, r.KeyGenKinds())

	built := 0
	r.RegisterStorage("counted", func(_ *registry.Registry[string, int], cfg config.Storage) (storage.Storage[string, int], error) {
		built++
		return storage.NewMemory[string, int](storage.MemoryOptions[string]{Capacity: cfg.Bound()}), nil
	})

	s, err := r.Build(config.Storage{Kind: "counted", Capacity: config.Capacity(2)})
	require.NoError(t, err)
	assert.Equal(t, 1, built)
	assert.Equal(t, 2, s.Capacity())

	_, err = s.Create(1)
	assert.ErrorIs(t, err, storage.ErrMissingKeyGenerator)
}

func TestNewStringKeyed_StringLengths(t *testing.T) {
	t.Parallel()

	r := registry.NewStringKeyed[int]()
	kg, err := r.KeyGen(&config.KeyGen{Kind: registry.KeyGenString, Min: 4, Max: 8})
	require.NoError(t, err)
	for range 50 {
		k, err := kg.Get()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(k), 4)
		assert.LessOrEqual(t, len(k), 8)
	}

	kg, err = r.KeyGen(&config.KeyGen{Kind: registry.KeyGenString})
	require.NoError(t, err)
	k, err := kg.Get()
	require.NoError(t, err)
	assert.Len(t, k, 16)

	kg, err = r.KeyGen(nil)
	require.NoError(t, err)
	assert.Nil(t, kg)
}

type countingMetrics struct {
	hits, misses int
	evicts       map[storage.EvictReason]int
	size         int
}

func (m *countingMetrics) Hit()  { m.hits++ }
func (m *countingMetrics) Miss() { m.misses++ }
func (m *countingMetrics) Evict(r storage.EvictReason) {
	if m.evicts == nil {
		m.evicts = make(map[storage.EvictReason]int)
	}
	m.evicts[r]++
}
func (m *countingMetrics) Size(n int) { m.size = n }

// A cached tree over LRU tiers observes each read once; the gauge follows
// the cached entries and subset evictions still count.
func TestBuild_MetricsObserveEachReadOnce(t *testing.T) {
	t.Parallel()

	doc := `
kind: cached
cache_on_create: true
subset: {kind: lru, capacity: 4}
superset:
  kind: clustered
  keygen: {kind: uuid, dedup: true}
  members:
    - {kind: lru, capacity: 8}
    - {kind: memory}
`
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	m := &countingMetrics{}
	s, err := registry.NewStringKeyed[string](registry.WithMetrics[string, string](m)).Build(cfg)
	require.NoError(t, err)

	k, err := s.Create("v")
	require.NoError(t, err)
	_, ok := s.Read(k)
	require.True(t, ok)
	_, ok = s.Read("missing")
	require.False(t, ok)

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.size)

	for range 4 {
		_, err := s.Create("w")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, m.evicts[storage.EvictPolicy], "subset eviction")
	assert.Equal(t, 4, m.size, "gauge tracks the subset")
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
}

// A lone LRU owns its read metrics.
func TestBuild_MetricsRootLRU(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{}
	r := registry.New[string, int](registry.WithMetrics[string, int](m))
	s, err := r.Build(config.Storage{Kind: registry.KindLRU, Capacity: config.Capacity(1)})
	require.NoError(t, err)

	require.NoError(t, s.Update("a", 1))
	_, _ = s.Read("a")
	require.NoError(t, s.Update("b", 2))
	_, _ = s.Read("a")

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, 1, m.evicts[storage.EvictPolicy])
	assert.Equal(t, 1, m.size)
}
