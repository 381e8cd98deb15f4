// Package report runs the contracts pipeline: load the dataset once per
// TTL, filter by Community and Series, pivot Work Type by Plan, format to
// two decimals, and optionally export.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"contracts/internal/cache"
	"contracts/internal/core"
	"contracts/internal/export"
	applog "contracts/internal/log"
	"contracts/internal/sheets"
)

const datasetKey = "dataset"

// ErrSourceUnavailable wraps every failure to load the dataset.
var ErrSourceUnavailable = errors.New("contracts source unavailable")

// Config tunes a Service.
type Config struct {
	// DatasetTTL is how long a loaded dataset is reused. Zero disables reuse.
	DatasetTTL time.Duration
	// FetchTimeout bounds a single load.
	FetchTimeout time.Duration
	Logger       *applog.Logger
}

// Result is one built table.
type Result struct {
	Selection core.Selection
	Pivot     core.PivotTable
	Table     core.FormattedTable
	Matched   int
	Source    string
	LoadedAt  time.Time
}

// Stats are cumulative counters for /metrics.
type Stats struct {
	Loads      int64
	LoadErrors int64
	CacheHits  int64
	Builds     int64
	Exports    int64
}

// Service is safe for concurrent use.
type Service struct {
	loader       sheets.DatasetLoader
	datasets     *cache.LRUCache[core.Dataset]
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       *applog.Logger
	structured   *applog.StructuredLogger

	loads      atomic.Int64
	loadErrors atomic.Int64
	cacheHits  atomic.Int64
	builds     atomic.Int64
	exports    atomic.Int64
}

// New creates a Service reading from loader.
func New(loader sheets.DatasetLoader, cfg Config) *Service {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentReport)
	return &Service{
		loader:       loader,
		datasets:     cache.NewLRUCache[core.Dataset](1, cfg.DatasetTTL),
		ttl:          cfg.DatasetTTL,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
		structured:   applog.NewStructuredLogger(logger),
	}
}

// Source names the configured loader.
func (s *Service) Source() string {
	return sheets.Describe(s.loader)
}

// Cache exposes the dataset cache for sweeping.
func (s *Service) Cache() cache.Cleaner {
	return s.datasets
}

// Dataset returns the cached dataset, loading it if needed. Concurrent
// callers share one load; a caller whose ctx ends stops waiting but does
// not cancel the load for the others.
func (s *Service) Dataset(ctx context.Context) (core.Dataset, error) {
	if s.ttl > 0 {
		if ds, ok := s.datasets.Get(datasetKey); ok {
			s.cacheHits.Add(1)
			return ds, nil
		}
	}

	ch := s.group.DoChan(datasetKey, func() (interface{}, error) {
		return s.load(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return core.Dataset{}, res.Err
		}
		return res.Val.(core.Dataset), nil
	case <-ctx.Done():
		return core.Dataset{}, ctx.Err()
	}
}

func (s *Service) load(parent context.Context) (core.Dataset, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.fetchTimeout)
	defer cancel()

	start := time.Now()
	s.loads.Add(1)
	ds, err := s.loader.Load(ctx)
	if err != nil {
		s.loadErrors.Add(1)
		s.logger.ErrorContext(ctx, "Failed to load contracts dataset",
			applog.FieldSource, s.Source(),
			applog.FieldOperation, applog.OpLoad,
			applog.FieldError, err)
		return core.Dataset{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if s.ttl > 0 {
		s.datasets.Set(datasetKey, ds)
	}
	s.logger.InfoContext(ctx, "Contracts dataset loaded",
		applog.FieldSource, ds.Source,
		applog.FieldItems, ds.Len(),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return ds, nil
}

// Options lists the communities in first-seen order.
func (s *Service) Options(ctx context.Context) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Communities(), nil
}

// SeriesFor lists the series seen for community in first-seen order.
func (s *Service) SeriesFor(ctx context.Context, community string) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.SeriesFor(community), nil
}

// Build filters, pivots and formats the table for one selection. A
// selection matching nothing yields an empty table, not an error.
func (s *Service) Build(ctx context.Context, community, series string) (Result, error) {
	sel := core.Selection{Community: community, Series: series}
	if err := sel.Validate(); err != nil {
		return Result{}, err
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return Result{}, err
	}

	subset := core.Filter(ds.Items, community, series)
	pivot, err := core.Aggregate(subset)
	if err != nil {
		return Result{}, fmt.Errorf("aggregate %s: %w", sel, err)
	}
	table := core.Format(pivot)

	s.builds.Add(1)
	s.structured.LogTableBuilt(ctx, community, series, len(pivot.Rows), len(pivot.Columns))
	return Result{
		Selection: sel,
		Pivot:     pivot,
		Table:     table,
		Matched:   len(subset),
		Source:    ds.Source,
		LoadedAt:  ds.LoadedAt,
	}, nil
}

// Export builds the selection and renders it as a download.
func (s *Service) Export(ctx context.Context, community, series string, format export.Format) (export.Artifact, error) {
	format, err := export.ParseFormat(string(format))
	if err != nil {
		return export.Artifact{}, err
	}
	res, err := s.Build(ctx, community, series)
	if err != nil {
		return export.Artifact{}, err
	}
	art, err := export.Export(res.Table, community, series, format)
	if err != nil {
		return export.Artifact{}, err
	}
	s.exports.Add(1)
	s.structured.LogExport(ctx, community, series, string(format), len(art.Data))
	return art, nil
}

// Refresh drops the cached dataset and loads it again.
func (s *Service) Refresh(ctx context.Context) (core.Dataset, error) {
	s.Invalidate()
	s.logger.InfoContext(ctx, "Contracts dataset refresh requested", applog.FieldOperation, applog.OpRefresh)
	return s.Dataset(ctx)
}

// Invalidate drops the cached dataset without reloading.
func (s *Service) Invalidate() {
	s.datasets.Delete(datasetKey)
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Loads:      s.loads.Load(),
		LoadErrors: s.loadErrors.Load(),
		CacheHits:  s.cacheHits.Load(),
		Builds:     s.builds.Load(),
		Exports:    s.exports.Load(),
	}
}
