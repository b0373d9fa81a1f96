// Package scanner coordinates parallel extension scans: each item is
// resolved from the cache when possible and scanned remotely otherwise,
// with all persistent writes funnelled through the cache's serialized
// writer path.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/extscan-toolkit/extscan-runner/pkg/cache"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
	"github.com/extscan-toolkit/extscan-runner/pkg/remote"
)

const defaultWorkers = 3

// Item identifies one locally installed extension to scan.
type Item struct {
	Publisher string
	Name      string
	Version   string
}

// ExtensionID returns the marketplace identifier for the item.
func (it Item) ExtensionID() string {
	return it.Publisher + "." + it.Name
}

func (it Item) cacheKey() cache.Key {
	return cache.Key{ExtensionID: it.ExtensionID(), Version: it.Version}
}

// ItemOutcome is the per-item result of a run. Every input item produces
// exactly one outcome; failures are data here, never panics or errors.
type ItemOutcome struct {
	Item      Item
	Kind      remote.OutcomeKind
	Result    *remote.ScanResult
	Reason    string
	FromCache bool
}

// RunStats aggregates a run. CacheHits + FreshScans + Errors always
// equals Total; not-found items count as errors since they produced no
// result.
type RunStats struct {
	Total      int64 `json:"total"`
	CacheHits  int64 `json:"cache_hits"`
	FreshScans int64 `json:"fresh_scans"`
	Errors     int64 `json:"errors"`
}

// Cache is the subset of the cache manager the orchestrator needs.
type Cache interface {
	Get(key cache.Key, maxAge time.Duration) (*remote.ScanResult, bool)
	Save(key cache.Key, result *remote.ScanResult) error
}

// Scanner is the subset of the remote client the orchestrator needs.
type Scanner interface {
	Scan(ctx context.Context, publisher, name string) remote.Outcome
}

// Options tunes a run.
type Options struct {
	// MaxAge is the oldest cache entry still served as a hit.
	// Negative means entries never expire.
	MaxAge time.Duration
	// ForceRefresh skips cache reads so every item is rescanned.
	ForceRefresh bool
}

// Orchestrator fans items out across a bounded worker pool.
// Dependencies are injected so tests can substitute fakes.
type Orchestrator struct {
	cache  Cache
	client Scanner
	opts   Options
	log    observability.Logger
}

// New creates an orchestrator.
func New(c Cache, client Scanner, opts Options, log observability.Logger) *Orchestrator {
	if log == nil {
		log = observability.Nop()
	}
	return &Orchestrator{cache: c, client: client, opts: opts, log: log}
}

// Run scans every item using the given number of concurrent workers and
// returns one outcome per item, in input order. One item's failure never
// aborts the batch. Workers outside 1..len(items) are clamped; zero
// means the default of 3.
func (o *Orchestrator) Run(ctx context.Context, items []Item, workers int) ([]ItemOutcome, RunStats) {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(items) && len(items) > 0 {
		workers = len(items)
	}

	runID := uuid.NewString()
	log := o.log.With(observability.String("run_id", runID))
	log.Info("starting scan run",
		observability.Int("items", len(items)),
		observability.Int("workers", workers))

	// Workers write disjoint indices, so the result slice needs no lock
	// and the output is already in input order.
	outcomes := make([]ItemOutcome, len(items))

	var hits, fresh, failures atomic.Int64
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = o.processItem(ctx, log, items[idx], &hits, &fresh, &failures)
			}
		}()
	}

	for idx := range items {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	stats := RunStats{
		Total:      int64(len(items)),
		CacheHits:  hits.Load(),
		FreshScans: fresh.Load(),
		Errors:     failures.Load(),
	}
	log.Info("scan run complete",
		observability.Int("cache_hits", int(stats.CacheHits)),
		observability.Int("fresh_scans", int(stats.FreshScans)),
		observability.Int("errors", int(stats.Errors)))
	return outcomes, stats
}

// processItem resolves one item: cache hit, fresh scan, or failure.
func (o *Orchestrator) processItem(ctx context.Context, log observability.Logger, item Item, hits, fresh, failures *atomic.Int64) ItemOutcome {
	if !o.opts.ForceRefresh {
		if result, ok := o.cache.Get(item.cacheKey(), o.opts.MaxAge); ok {
			hits.Add(1)
			return ItemOutcome{
				Item:      item,
				Kind:      remote.OutcomeSuccess,
				Result:    result,
				FromCache: true,
			}
		}
	}

	outcome := o.client.Scan(ctx, item.Publisher, item.Name)
	switch outcome.Kind {
	case remote.OutcomeSuccess:
		fresh.Add(1)
		// Failed scans are never persisted; only this success path
		// reaches the writer.
		if err := o.cache.Save(item.cacheKey(), outcome.Result); err != nil {
			log.Error("failed to persist scan result",
				observability.String("extension", item.ExtensionID()),
				observability.Err(err))
		}
	default:
		failures.Add(1)
		log.Warn("scan failed",
			observability.String("extension", item.ExtensionID()),
			observability.String("kind", outcome.Kind.String()),
			observability.String("reason", outcome.Reason))
	}

	return ItemOutcome{
		Item:   item,
		Kind:   outcome.Kind,
		Result: outcome.Result,
		Reason: outcome.Reason,
	}
}
