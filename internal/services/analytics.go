package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/loader"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

// memoEntries bounds the memoised results kept for the current dataset.
const memoEntries = 1024

var ErrNoSources = errors.New("analytics has no data sources to reload")

type Analytics struct {
	mu      sync.RWMutex
	dataset *models.Dataset
	bounds  models.DateRange
	loader  *loader.Loader
	sources []string

	memo    *cache.Memo
	seq     atomic.Int64
	reloads atomic.Int64
	logger  *slog.Logger
}

func NewAnalytics() *Analytics {
	a := &Analytics{
		memo:   cache.NewMemo(memoEntries),
		logger: slog.Default(),
	}
	a.install(nil)
	return a
}

// SetData replaces the dataset with records and drops every memoised result.
func (a *Analytics) SetData(records []models.Record) {
	a.install(records)
}

func (a *Analytics) install(records []models.Record) {
	if records == nil {
		records = []models.Record{}
	}
	ds := &models.Dataset{
		Version:  "v" + strconv.FormatInt(a.seq.Add(1), 10),
		LoadedAt: time.Now(),
		Records:  records,
	}
	bounds, _ := aggregate.Bounds(records)

	a.mu.Lock()
	a.dataset = ds
	a.bounds = bounds
	a.memo.Reset()
	a.mu.Unlock()
}

// LoadFromSources loads every source through ld and installs the result. The
// loader and sources are kept for Reload.
func (a *Analytics) LoadFromSources(ctx context.Context, ld *loader.Loader, sources ...string) error {
	ctx, span := observability.StartSpan(ctx, "analytics.load")
	defer func() {
		span.Finish()
		a.logger.Debug("span finished", "span", span)
	}()
	span.SetTag("sources", strconv.Itoa(len(sources)))

	records, err := ld.Load(ctx, sources...)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load sources: %w", err)
	}

	a.mu.Lock()
	a.loader = ld
	a.sources = sources
	a.mu.Unlock()

	a.install(records)
	a.logger.Info("dataset installed", "records", len(records), "version", a.Version())
	return nil
}

// Reload fetches every source again, bypassing snapshots. On failure the
// current dataset stays in place.
func (a *Analytics) Reload(ctx context.Context) error {
	a.mu.RLock()
	ld, sources := a.loader, a.sources
	a.mu.RUnlock()

	if ld == nil || len(sources) == 0 {
		return ErrNoSources
	}

	ctx, span := observability.StartSpan(ctx, "analytics.reload")
	defer func() {
		span.Finish()
		a.logger.Debug("span finished", "span", span)
	}()

	records, err := ld.Refresh(ctx, sources...)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("reload sources: %w", err)
	}

	a.install(records)
	a.reloads.Add(1)
	a.logger.Info("dataset reloaded", "records", len(records), "version", a.Version())
	return nil
}

func (a *Analytics) snapshot() *models.Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dataset
}

func (a *Analytics) Version() string {
	return a.snapshot().Version
}

// Bounds returns the first and last purchase day of the dataset.
func (a *Analytics) Bounds() models.DateRange {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bounds
}

// Filtered returns the records purchased within rng.
func (a *Analytics) Filtered(rng models.DateRange) []models.Record {
	return a.filtered(a.snapshot(), rng)
}

func (a *Analytics) filtered(ds *models.Dataset, rng models.DateRange) []models.Record {
	records, _ := cache.Do(a.memo, cache.Key(ds.Version, "filter", rng), func() ([]models.Record, error) {
		return aggregate.FilterByDate(ds.Records, rng), nil
	})
	return records
}

// memoised runs compute over the date-filtered records of the current dataset
// once per (version, op, range, args).
func memoised[T any](a *Analytics, op string, rng models.DateRange, arg fmt.Stringer, compute func([]models.Record) T) T {
	ds := a.snapshot()
	args := []any{rng}
	if arg != nil {
		args = append(args, arg)
	}

	v, _ := cache.Do(a.memo, cache.Key(ds.Version, op, args...), func() (T, error) {
		a.logger.Debug("computing aggregate", "op", op, "range", rng.String(), "version", ds.Version)
		return compute(a.filtered(ds, rng)), nil
	})
	return v
}

func (a *Analytics) OrderTrend(rng models.DateRange, metric aggregate.TrendMetric) models.TrendTable {
	return memoised(a, "trend", rng, metric, func(records []models.Record) models.TrendTable {
		return aggregate.MonthlyTrend(records, metric)
	})
}

func (a *Analytics) Categories(rng models.DateRange, metric aggregate.CategoryMetric) models.CategoryRanking {
	return memoised(a, "categories", rng, metric, func(records []models.Record) models.CategoryRanking {
		return aggregate.RankCategories(records, metric)
	})
}

func (a *Analytics) Payments(rng models.DateRange, sortBy aggregate.PaymentSort) []models.PaymentMethod {
	return memoised(a, "payments", rng, sortBy, func(records []models.Record) []models.PaymentMethod {
		return aggregate.PaymentDistribution(records, sortBy)
	})
}

func (a *Analytics) Cities(rng models.DateRange) []models.CityTransactions {
	return memoised(a, "cities", rng, nil, aggregate.CityTransactions)
}

func (a *Analytics) Geo(rng models.DateRange) []models.GeoPoint {
	return memoised(a, "geo", rng, nil, aggregate.GeoTransactions)
}

// Stats is used by the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	ds := a.snapshot()
	bounds := a.Bounds()
	hits, misses := a.memo.Stats()

	a.mu.RLock()
	sources := len(a.sources)
	a.mu.RUnlock()

	return map[string]any{
		"record_count":   len(ds.Records),
		"version":        ds.Version,
		"last_processed": ds.LoadedAt,
		"first_date":     bounds.Start.Format(models.DateLayout),
		"last_date":      bounds.End.Format(models.DateLayout),
		"sources":        sources,
		"reloads":        a.reloads.Load(),
		"cache_entries":  a.memo.Len(),
		"cache_hits":     hits,
		"cache_misses":   misses,
	}
}
