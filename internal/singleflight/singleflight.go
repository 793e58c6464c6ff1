// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"sync"
)

// Group runs at most one load per key at a time. Callers arriving while a
// load is in flight wait for its result instead of starting their own.
//
// A waiter whose ctx ends returns ctx.Err() but does not cancel the load;
// the loader sees only the ctx of the caller that started it.
type Group[K comparable, V any] struct {
	mu       sync.Mutex
	inflight map[K]*flight[V] // guarded by mu
}

type flight[V any] struct {
	done    chan struct{} // closed after val and err are set
	val     V
	err     error
	waiters int // guarded by Group.mu
}

// Do returns the result of load for key, running load only if no other
// call for key is in flight. shared reports whether the result was also
// handed to other callers.
func (g *Group[K, V]) Do(ctx context.Context, key K, load func(context.Context) (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[K]*flight[V])
	}
	if f, ok := g.inflight[key]; ok {
		f.waiters++
		g.mu.Unlock()
		select {
		case <-f.done:
			return f.val, true, f.err
		case <-ctx.Done():
			var zero V
			return zero, true, ctx.Err()
		}
	}
	f := &flight[V]{done: make(chan struct{})}
	g.inflight[key] = f
	g.mu.Unlock()

	f.val, f.err = load(ctx)
	close(f.done)

	g.mu.Lock()
	delete(g.inflight, key)
	shared = f.waiters > 0
	g.mu.Unlock()
	return f.val, shared, f.err
}

// InFlight reports how many keys are currently loading.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
