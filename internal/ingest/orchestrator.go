// Package ingest orchestrates concurrent feed ingestion: fan-out to source
// adapters, merge, deduplicate, and batched storage writes.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
	"github.com/couchcryptid/hazard-atlas/internal/observability"
)

// Source is a hazard feed adapter. Fetch must respect ctx cancellation;
// errors are isolated per source by the orchestrator, never fatal to a run.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (domain.FetchResult, error)
}

// MarkerStore receives the merged, deduplicated batch.
type MarkerStore interface {
	Put(ctx context.Context, markers []domain.Marker) int
}

// Archiver receives raw provider payloads, fire-and-forget.
type Archiver interface {
	Archive(ctx context.Context, source, runID string, payload []byte)
}

var errIngestNotRun = errors.New("no ingestion run has completed yet")

// Report is the per-source outcome of one ingestion run.
type Report struct {
	Source string   `json:"source"`
	Count  int      `json:"count"`
	Errors []string `json:"errors,omitempty"`
}

// Orchestrator runs all sources concurrently and funnels their markers into
// storage. Total run latency tracks the slowest source, not the sum, and one
// provider's outage never blocks the others.
type Orchestrator struct {
	sources       []Source
	store         MarkerStore
	archiver      Archiver // nil disables archival
	cache         *Cache
	sourceTimeout time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
	ready         atomic.Bool
}

// New creates an Orchestrator. archiver may be nil.
func New(sources []Source, store MarkerStore, archiver Archiver, cache *Cache,
	sourceTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		sources:       sources,
		store:         store,
		archiver:      archiver,
		cache:         cache,
		sourceTimeout: sourceTimeout,
		logger:        logger,
		metrics:       metrics,
	}
}

// CheckReadiness returns nil once at least one ingestion run has completed.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errIngestNotRun
	}
	return nil
}

// Run executes one fetch-merge-store cycle and reports per-source outcomes.
// It never returns an error: failures surface in the reports and logs.
func (o *Orchestrator) Run(ctx context.Context) []Report {
	runID := uuid.NewString()
	start := time.Now()

	o.metrics.IngestRunning.Set(1)
	defer o.metrics.IngestRunning.Set(0)
	o.logger.Info("ingestion run started", "run_id", runID, "sources", len(o.sources))

	results := o.fetchAll(ctx)

	reports := make([]Report, len(o.sources))
	seen := make(map[string]struct{})
	var merged []domain.Marker

	// Merge in adapter-invocation order so duplicate ids resolve
	// first-occurrence-wins deterministically.
	for i, src := range o.sources {
		res := results[i]
		reports[i] = Report{Source: src.Name()}

		if res.err != nil {
			reports[i].Errors = append(reports[i].Errors, res.err.Error())
			o.metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
			o.logger.Warn("source fetch failed", "run_id", runID, "source", src.Name(), "error", res.err)
			continue
		}
		o.metrics.SourceFetches.WithLabelValues(src.Name(), "success").Inc()

		for _, m := range res.result.Markers {
			if _, dup := seen[m.ID]; dup {
				o.metrics.MarkersDeduped.Inc()
				continue
			}
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
			reports[i].Count++
		}

		if o.archiver != nil && res.result.Raw != nil {
			o.archiver.Archive(ctx, src.Name(), runID, res.result.Raw)
		}
	}

	written := 0
	if len(merged) > 0 {
		written = o.store.Put(ctx, merged)
		o.metrics.MarkersIngested.Add(float64(written))
	}

	o.cache.Invalidate()
	o.ready.Store(true)
	o.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("ingestion run finished",
		"run_id", runID, "merged", len(merged), "written", written,
		"duration", time.Since(start).Round(time.Millisecond))

	return reports
}

// LiveMarkers is the fast path used when persistence is unavailable: fetch
// all sources in parallel, silently drop per-source failures, and serve the
// merged set from a short-TTL cache so providers are not re-hit per request.
func (o *Orchestrator) LiveMarkers(ctx context.Context) []domain.Marker {
	if markers, ok := o.cache.Get(); ok {
		o.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return markers
	}
	o.metrics.CacheLookups.WithLabelValues("miss").Inc()

	results := o.fetchAll(ctx)

	seen := make(map[string]struct{})
	var merged []domain.Marker
	for i := range o.sources {
		if results[i].err != nil {
			continue
		}
		for _, m := range results[i].result.Markers {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}

	o.cache.Set(merged)
	return merged
}

type fetchOutcome struct {
	result domain.FetchResult
	err    error
}

// fetchAll invokes every source concurrently, each under its own bounded
// timeout. A stalled provider burns only its own deadline.
func (o *Orchestrator) fetchAll(ctx context.Context) []fetchOutcome {
	results := make([]fetchOutcome, len(o.sources))

	var wg sync.WaitGroup
	for i, src := range o.sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
			defer cancel()

			res, err := src.Fetch(fetchCtx)
			results[i] = fetchOutcome{result: res, err: err}
		}()
	}
	wg.Wait()

	return results
}
