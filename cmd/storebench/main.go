// Command storebench builds a storage tree from a YAML descriptor, runs a
// synthetic create/read/update workload against it and exposes Prometheus
// metrics and pprof.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/shardstore/concurrent"
	"github.com/IvanBrykalov/shardstore/config"
	"github.com/IvanBrykalov/shardstore/keygen"
	pmet "github.com/IvanBrykalov/shardstore/metrics/prom"
	"github.com/IvanBrykalov/shardstore/registry"
	"github.com/IvanBrykalov/shardstore/storage"
)

func main() {
	// ---- Flags ----
	var (
		cfgPath  = flag.String("config", "", "storage descriptor (YAML); empty = built-in default tree")
		dump     = flag.Bool("dump", false, "print the effective descriptor and exit")
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		maxOps   = flag.Uint64("ops", 0, "stop after this many operations (0 = duration only)")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		updPct   = flag.Int("updates", 10, "update percentage of the non-read share [0..100]")
		zipfS    = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew over created keys)")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
		preload  = flag.Int("preload", 1000, "entries created before the run")
		shards   = flag.Int("shards", 1, "partition keys over this many trees (1 = one locked tree, 0 = auto)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", "", "serve Prometheus metrics at addr (e.g. :8080); empty = disabled")
	)
	flag.Parse()
	if *zipfS <= 1 {
		log.Fatalf("zipf_s must be > 1, got %v", *zipfS)
	}

	// ---- Descriptor ----
	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	if *dump {
		out, err := config.Marshal(cfg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(string(out))
		return
	}

	// ---- pprof / Prometheus (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}
	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics: serving at %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	// ---- Build storage ----
	st, err := build(shardRegistry, cfg, *shards)
	if err != nil {
		log.Fatalf("build storage: %v", err)
	}
	b := &bench{st: st}

	for i := range *preload {
		if _, err := b.create("p" + strconv.Itoa(i)); err != nil {
			log.Fatalf("preload: %v", err)
		}
	}

	// ---- Load generation ----
	workersN := max(*workers, 1)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := range workersN {
		g.Go(func() error {
			// Each worker gets its own RNG (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewPCG(*seed, uint64(w)*9973))
			for ctx.Err() == nil {
				if *maxOps > 0 && b.total.Load() >= *maxOps {
					return nil
				}
				if err := b.step(r, *readPct, *updPct, *zipfS); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("workload stopped: %v", err)
	}
	elapsed := time.Since(start)

	// ---- Report ----
	ops := b.total.Load()
	readsN, hitsN := b.reads.Load(), b.hits.Load()
	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}
	fmt.Printf("workers=%d shards=%d dur=%v seed=%d\n", workersN, *shards, elapsed, *seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  creates=%d  updates=%d  rejected=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, b.creates.Load(), b.updates.Load(), b.rejected.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, readsN-hitsN, hitRate)
	fmt.Printf("Entries()=%d Capacity()=%d\n", st.Entries(), st.Capacity())
}

// shardRegistry returns the registry for one tree. Each tree reports under
// its own shard label so the entries gauges do not overwrite each other.
func shardRegistry(shard int) *registry.Registry[string, string] {
	m := pmet.New(nil, "shardstore", "bench", prometheus.Labels{"shard": strconv.Itoa(shard)})
	return registry.NewStringKeyed[string](registry.WithMetrics[string, string](m))
}

// build makes the descriptor's tree safe for the workers: one locked tree,
// or one tree per shard with keys assigned by the sharded layer.
func build(reg func(shard int) *registry.Registry[string, string], cfg config.Storage, shards int) (storage.Storage[string, string], error) {
	if shards == 1 {
		st, err := reg(0).Build(cfg)
		if err != nil {
			return nil, err
		}
		return concurrent.NewLocked(st), nil
	}
	ids, err := keygen.NewUUID(keygen.UUIDHexLength)
	if err != nil {
		return nil, err
	}
	return concurrent.NewSharded(func(i int) (storage.Storage[string, string], error) {
		return reg(i).Build(cfg)
	}, concurrent.Options[string, string]{Shards: shards, KeyGen: ids})
}

// bench drives a concurrency-safe storage and counts what the workers did.
type bench struct {
	st storage.Storage[string, string]

	mu   sync.Mutex
	keys []string // created keys, Zipf-sampled for reads and updates; guarded by mu

	total, reads, hits, creates, updates, rejected atomic.Uint64
}

func (b *bench) create(v string) (string, error) {
	k, err := b.st.Create(v)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.keys = append(b.keys, k)
	b.mu.Unlock()
	b.creates.Add(1)
	return k, nil
}

func (b *bench) pick(r *rand.Rand, s float64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch len(b.keys) {
	case 0:
		return "", false
	case 1:
		return b.keys[0], true
	}
	z := rand.NewZipf(r, s, 1, uint64(len(b.keys)-1))
	// Most recent keys are the hottest.
	return b.keys[len(b.keys)-1-int(z.Uint64())], true
}

func (b *bench) step(r *rand.Rand, readPct, updPct int, s float64) error {
	b.total.Add(1)
	switch {
	case r.IntN(100) < readPct:
		b.reads.Add(1)
		k, ok := b.pick(r, s)
		if !ok {
			return nil
		}
		if _, ok := b.st.Read(k); ok {
			b.hits.Add(1)
		}
		return nil
	case r.IntN(100) < updPct:
		k, ok := b.pick(r, s)
		if !ok {
			return nil
		}
		b.updates.Add(1)
		return b.st.Update(k, "u"+strconv.Itoa(r.Int()))
	default:
		if _, err := b.create("c" + strconv.Itoa(r.Int())); err != nil {
			// A full tree rejects creates; keep reading and updating.
			b.rejected.Add(1)
		}
		return nil
	}
}
