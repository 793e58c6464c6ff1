package lru

import (
	"testing"

	"github.com/IvanBrykalov/shardstore/policy"
)

// --- test doubles ---

type mockHooks[K comparable] struct {
	pushFrontCnt   int
	moveToFrontCnt int
	removeCnt      int

	lastPush K
	lastMove K
}

func (h *mockHooks[K]) MoveToFront(k K) { h.moveToFrontCnt++; h.lastMove = k }
func (h *mockHooks[K]) PushFront(k K)   { h.pushFrontCnt++; h.lastPush = k }
func (h *mockHooks[K]) Remove(K)        { h.removeCnt++ }
func (h *mockHooks[K]) Back() (K, bool) {
	var zero K
	return zero, false
}
func (h *mockHooks[K]) Len() int { return 0 }

var _ policy.Hooks[int] = (*mockHooks[int])(nil)

// --- tests ---

// OnAdd should push the key to MRU and never propose an eviction.
func TestLRU_OnAdd_PushFrontAndNoEvict(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)

	if ev, ok := p.OnAdd("k1"); ok {
		t.Fatalf("OnAdd must not return evict candidate for LRU, got %q", ev)
	}
	if h.pushFrontCnt != 1 || h.lastPush != "k1" {
		t.Fatalf("OnAdd must call PushFront exactly once with the key")
	}
	if h.moveToFrontCnt != 0 || h.removeCnt != 0 {
		t.Fatalf("OnAdd must not call MoveToFront/Remove")
	}
}

// OnGet and OnUpdate should promote the key to MRU.
func TestLRU_OnGetOnUpdate_MoveToFront(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)

	p.OnGet("k2")
	p.OnUpdate("k3")

	if h.moveToFrontCnt != 2 || h.lastMove != "k3" {
		t.Fatalf("OnGet/OnUpdate must each call MoveToFront once")
	}
	if h.pushFrontCnt != 0 || h.removeCnt != 0 {
		t.Fatalf("OnGet/OnUpdate must not call PushFront/Remove")
	}
}

// OnRemove is a no-op for pure LRU.
func TestLRU_OnRemove_NoOp(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string]{}
	p := New[string]().New(h)
	p.OnRemove("k4")

	if h.pushFrontCnt != 0 || h.moveToFrontCnt != 0 || h.removeCnt != 0 {
		t.Fatalf("OnRemove for LRU must be no-op (no hooks should be called)")
	}
}
