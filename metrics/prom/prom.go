// Package prom reports the reads, evictions and occupancy of a storage tree
// to Prometheus.
//
// The registry hands one sink to a whole tree and lets a single node count
// each read, so one Adapter per tree (or per shard, told apart by a const
// label) gives exact totals.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/shardstore/storage"
)

// Label values of shardstore_*_reads_total{result}.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Label values of shardstore_*_evictions_total{reason}.
const (
	ReasonPolicy    = "policy"
	ReasonRetention = "retention"
)

// Adapter is a storage.Metrics backed by Prometheus collectors. The label
// children are resolved once in New, so recording never looks up labels.
type Adapter struct {
	hit, miss          prometheus.Counter
	byPolicy, byExpiry prometheus.Counter
	resident           prometheus.Gauge
}

// New registers the collectors under ns_sub_* on reg (nil means the
// default registerer) and returns the adapter. It panics on a duplicate
// registration, so call it once per label set.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: ns, Subsystem: sub, Name: name, Help: help, ConstLabels: constLabels}
	}

	reads := prometheus.NewCounterVec(prometheus.CounterOpts(
		opts("reads_total", "Reads of the tree, by whether the serving tier held the key.")),
		[]string{"result"})
	evictions := prometheus.NewCounterVec(prometheus.CounterOpts(
		opts("evictions_total", "Entries an LRU tier dropped on its own, by cause.")),
		[]string{"reason"})
	resident := prometheus.NewGauge(prometheus.GaugeOpts(
		opts("resident_entries", "Entries held by the fastest LRU tier.")))
	reg.MustRegister(reads, evictions, resident)

	return &Adapter{
		hit:      reads.WithLabelValues(ResultHit),
		miss:     reads.WithLabelValues(ResultMiss),
		byPolicy: evictions.WithLabelValues(ReasonPolicy),
		byExpiry: evictions.WithLabelValues(ReasonRetention),
		resident: resident,
	}
}

func (a *Adapter) Hit()  { a.hit.Inc() }
func (a *Adapter) Miss() { a.miss.Inc() }

// Evict counts a capacity eviction or a lazy expiry.
func (a *Adapter) Evict(r storage.EvictReason) {
	if r == storage.EvictTTL {
		a.byExpiry.Inc()
		return
	}
	a.byPolicy.Inc()
}

func (a *Adapter) Size(entries int) { a.resident.Set(float64(entries)) }

var _ storage.Metrics = (*Adapter)(nil)
