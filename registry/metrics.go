package registry

import "github.com/IvanBrykalov/shardstore/storage"

// A built tree reports into one metrics sink, and each read must be
// observed once. The outermost node that counts reads owns Hit and Miss:
// the root LRU, or the outermost cached node. Nodes below it report
// evictions only, except a cached node's subset, which also drives the
// Size gauge so it tracks the cached entries.

// noReads forwards Evict and Size and drops Hit and Miss.
type noReads struct{ storage.Metrics }

func (noReads) Hit()  {}
func (noReads) Miss() {}

// evictionsOnly forwards Evict and drops the rest.
type evictionsOnly struct{ storage.Metrics }

func (evictionsOnly) Hit()     {}
func (evictionsOnly) Miss()    {}
func (evictionsOnly) Size(int) {}

// withoutReads narrows m to drop Hit and Miss. It never widens a scope
// that already drops Size.
func withoutReads(m storage.Metrics) storage.Metrics {
	switch m.(type) {
	case nil, noReads, evictionsOnly:
		return m
	}
	return noReads{m}
}

// onlyEvictions narrows m to Evict alone.
func onlyEvictions(m storage.Metrics) storage.Metrics {
	switch w := m.(type) {
	case nil, evictionsOnly:
		return m
	case noReads:
		return evictionsOnly{w.Metrics}
	}
	return evictionsOnly{m}
}

// scoped returns a view of r that hands m to the storages it builds. Kinds
// stay shared with r.
func (r *Registry[K, V]) scoped(m storage.Metrics) *Registry[K, V] {
	c := *r
	c.metrics = m
	return &c
}
