// Package loader fetches the transaction tables the dashboard aggregates,
// from HTTP(S) URLs or local files, and coerces them into records.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/models"
)

const (
	defaultFetchTimeout  = 30 * time.Second
	defaultMaxConcurrent = 4
)

type Options struct {
	FetchTimeout   time.Duration
	MaxConcurrent  int
	SnapshotDir    string
	SnapshotMaxAge time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

type Loader struct {
	client         *http.Client
	maxConcurrent  int
	snapshotDir    string
	snapshotMaxAge time.Duration
	logger         *slog.Logger
}

func New(opts Options) *Loader {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.FetchTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loader{
		client:         opts.HTTPClient,
		maxConcurrent:  opts.MaxConcurrent,
		snapshotDir:    opts.SnapshotDir,
		snapshotMaxAge: opts.SnapshotMaxAge,
		logger:         opts.Logger,
	}
}

// Load reads every source, preferring a fresh snapshot when one exists, and
// concatenates the records in source order.
func (l *Loader) Load(ctx context.Context, sources ...string) ([]models.Record, error) {
	return l.load(ctx, sources, true)
}

// Refresh is Load without snapshots: every source is fetched again.
func (l *Loader) Refresh(ctx context.Context, sources ...string) ([]models.Record, error) {
	return l.load(ctx, sources, false)
}

func (l *Loader) load(ctx context.Context, sources []string, useSnapshots bool) ([]models.Record, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no data sources configured")
	}

	parts := make([][]models.Record, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxConcurrent)
	for i, source := range sources {
		g.Go(func() error {
			records, err := l.loadSource(ctx, source, useSnapshots)
			if err != nil {
				return err
			}
			parts[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	records := make([]models.Record, 0, total)
	for _, p := range parts {
		records = append(records, p...)
	}
	return records, nil
}

func (l *Loader) loadSource(ctx context.Context, source string, useSnapshot bool) ([]models.Record, error) {
	if useSnapshot {
		if snap, err := l.readSnapshot(source); err == nil {
			if l.snapshotMaxAge > 0 && time.Since(snap.FetchedAt) < l.snapshotMaxAge {
				l.logger.Info("loaded from snapshot", "source", source, "records", len(snap.Records))
				return snap.Records, nil
			}
		}
	}

	start := time.Now()
	l.logger.Info("processing CSV source", "source", source)

	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := ParseCSV(rc, source)
	if err != nil {
		return nil, err
	}

	if err := l.writeSnapshot(source, records); err != nil {
		l.logger.Warn("failed to save snapshot", "source", source, "error", err)
	}

	duration := time.Since(start)
	l.logger.Info("csv processing complete",
		"source", source,
		"records", len(records),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(records))/duration.Seconds()))

	return records, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !isRemote(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", source, resp.Status)
	}
	return resp.Body, nil
}
