package storage_test

import (
	"errors"
	"testing"
	"time"

	"github.com/IvanBrykalov/shardstore/policy/twoq"
	"github.com/IvanBrykalov/shardstore/storage"
)

type recordingMetrics struct {
	hits, misses int
	evicts       map[storage.EvictReason]int
	size         int
}

func (m *recordingMetrics) Hit()  { m.hits++ }
func (m *recordingMetrics) Miss() { m.misses++ }
func (m *recordingMetrics) Evict(r storage.EvictReason) {
	if m.evicts == nil {
		m.evicts = make(map[storage.EvictReason]int)
	}
	m.evicts[r]++
}
func (m *recordingMetrics) Size(n int) { m.size = n }

// Capacity 2, retention 1s: "a" at t=0, "b" at t=1ms, "c" at t=2ms evicts
// "a" by recency.
func TestLRU_EvictsByRecency(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{
		Capacity:  2,
		Retention: 1000 * time.Millisecond,
		Clock:     clk,
		KeyGen:    listKeys("a", "b", "c"),
	})

	for i, want := range []string{"a", "b", "c"} {
		clk.set(time.Duration(i) * time.Millisecond)
		k, err := s.Create(i)
		if err != nil || k != want {
			t.Fatalf("create %d: got %q err=%v", i, k, err)
		}
	}
	if s.Has("a") {
		t.Fatal("a must be evicted")
	}
	if !s.Has("b") || !s.Has("c") {
		t.Fatal("b and c must be present")
	}
	if s.Entries() != 2 {
		t.Fatalf("want 2 entries, got %d", s.Entries())
	}
}

// Reading an entry promotes it; the other one becomes the eviction victim.
func TestLRU_ReadPromotes(t *testing.T) {
	t.Parallel()

	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{Capacity: 2})
	_ = s.Update("a", 1)
	_ = s.Update("b", 2)
	if _, ok := s.Read("a"); !ok {
		t.Fatal("expect hit for a")
	}
	_ = s.Update("c", 3)

	if s.Has("b") {
		t.Fatal("b must be evicted")
	}
	if !s.Has("a") || !s.Has("c") {
		t.Fatal("a (promoted) and c must survive")
	}
}

// Has does not promote.
func TestLRU_HasDoesNotPromote(t *testing.T) {
	t.Parallel()

	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{Capacity: 2})
	_ = s.Update("a", 1)
	_ = s.Update("b", 2)
	_ = s.Has("a")
	_ = s.Update("c", 3)
	if s.Has("a") {
		t.Fatal("a must be evicted: Has must not promote")
	}
}

// A stale entry is removed on read and reported absent afterwards.
func TestLRU_RetentionLazyExpiry(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	m := &recordingMetrics{}
	var evicted []string
	s := storage.NewLRU[string, string](storage.LRUOptions[string, string]{
		Capacity:  storage.Unbounded,
		Retention: 100 * time.Millisecond,
		Clock:     clk,
		Metrics:   m,
		OnEvict: func(k, _ string, r storage.EvictReason) {
			if r == storage.EvictTTL {
				evicted = append(evicted, k)
			}
		},
	})
	_ = s.Update("x", "v")

	clk.set(100 * time.Millisecond)
	if _, ok := s.Read("x"); !ok {
		t.Fatal("entry at exactly the retention age must still be present")
	}

	clk.set(101 * time.Millisecond)
	if _, ok := s.Read("x"); ok {
		t.Fatal("expired entry must read as absent")
	}
	if s.Has("x") {
		t.Fatal("expired entry must be gone")
	}
	if s.Entries() != 0 {
		t.Fatalf("expired entry must be removed, entries=%d", s.Entries())
	}
	if len(evicted) != 1 || m.evicts[storage.EvictTTL] != 1 {
		t.Fatalf("want one TTL eviction, got %v / %v", evicted, m.evicts)
	}
	if m.hits != 1 || m.misses != 1 {
		t.Fatalf("want 1 hit and 1 miss, got %d/%d", m.hits, m.misses)
	}
}

// Update restarts the retention window.
func TestLRU_UpdateRefreshesAge(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{
		Capacity:  4,
		Retention: 10 * time.Millisecond,
		Clock:     clk,
	})
	_ = s.Update("k", 1)
	clk.set(8 * time.Millisecond)
	_ = s.Update("k", 2)
	clk.set(15 * time.Millisecond)
	if v, ok := s.Read("k"); !ok || v != 2 {
		t.Fatalf("refreshed entry must be readable, got %d ok=%v", v, ok)
	}
}

func TestLRU_NoRetentionNeverExpires(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{
		Capacity:  storage.Unbounded,
		Retention: storage.NoRetention,
		Clock:     clk,
	})
	for i := range 100 {
		_ = s.Update(string(rune('a'+i%26))+string(rune('A'+i/26)), i)
	}
	clk.set(24 * time.Hour)
	if s.Entries() != 100 {
		t.Fatalf("unbounded storage must keep all entries, got %d", s.Entries())
	}
	if !s.Has("aA") {
		t.Fatal("entries must not expire with retention disabled")
	}
}

func TestLRU_Swap(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{
		Capacity:  4,
		Retention: 10 * time.Millisecond,
		Clock:     clk,
	})
	_ = s.Update("a", 1)
	clk.set(5 * time.Millisecond)
	_ = s.Update("b", 2)
	if err := s.Swap("a", "b"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Read("a"); v != 2 {
		t.Fatalf("want 2, got %d", v)
	}

	// "b" now carries a's age (created at 0) and expires first.
	clk.set(12 * time.Millisecond)
	if err := s.Swap("a", "b"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("want ErrKeyNotFound for expired key, got %v", err)
	}
	if err := s.Swap("a", "zzz"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("want ErrKeyNotFound, got %v", err)
	}
}

// All yields MRU first and skips stale entries.
func TestLRU_AllRecencyOrder(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{
		Capacity:  storage.Unbounded,
		Retention: 10 * time.Millisecond,
		Clock:     clk,
	})
	_ = s.Update("old", 0)
	clk.set(5 * time.Millisecond)
	_ = s.Update("a", 1)
	_ = s.Update("b", 2)
	_ = s.Update("c", 3)
	_, _ = s.Read("a")

	clk.set(12 * time.Millisecond)
	var got []string
	for k := range s.All() {
		got = append(got, k)
	}
	want := []string{"a", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestLRU_DeleteAndClear(t *testing.T) {
	t.Parallel()

	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{Capacity: 3})
	_ = s.Update("a", 1)
	_ = s.Update("b", 2)
	_ = s.Update("c", 3)
	_ = s.Delete("b")
	_ = s.Delete("nope")
	_ = s.Update("d", 4)
	if !s.Has("a") || !s.Has("c") || !s.Has("d") {
		t.Fatal("delete must free a slot without evicting")
	}
	s.Clear()
	if !s.IsEmpty() {
		t.Fatal("storage must be empty after Clear")
	}
	_ = s.Update("e", 5)
	if v, ok := s.Read("e"); !ok || v != 5 {
		t.Fatal("storage must stay usable after Clear")
	}
}

// A 2Q policy protects a re-read entry from a scan of new keys.
func TestLRU_TwoQPolicy(t *testing.T) {
	t.Parallel()

	s := storage.NewLRU[string, int](storage.LRUOptions[string, int]{
		Capacity: 4,
		Policy:   twoq.New[string](1, 4),
	})
	_ = s.Update("hot", 0)
	_, _ = s.Read("hot") // promoted out of A1in
	for _, k := range []string{"s1", "s2", "s3", "s4", "s5"} {
		_ = s.Update(k, 1)
		if s.Entries() > s.Capacity() {
			t.Fatalf("entries %d exceed capacity", s.Entries())
		}
	}
	if !s.Has("hot") {
		t.Fatal("hot entry must survive the scan under 2Q")
	}
}

// Capacity 0 holds nothing: writes fail instead of evicting themselves.
func TestLRU_ZeroCapacityRejectsWrites(t *testing.T) {
	t.Parallel()

	s := storage.NewLRU(storage.LRUOptions[int64, int]{Capacity: 0, KeyGen: seqKeys(t)})
	if _, err := s.Create(1); !errors.Is(err, storage.ErrOutOfSpace) {
		t.Fatalf("Create: want ErrOutOfSpace, got %v", err)
	}
	if err := s.Update(7, 1); !errors.Is(err, storage.ErrOutOfSpace) {
		t.Fatalf("Update: want ErrOutOfSpace, got %v", err)
	}
	if !s.IsEmpty() || s.Has(7) {
		t.Fatal("zero-capacity storage must stay empty")
	}
}
