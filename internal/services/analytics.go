package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pharmaflow/internal/analytics"
	"pharmaflow/internal/ingest"
	"pharmaflow/internal/models"
	"pharmaflow/internal/observability"
	"pharmaflow/internal/store"
)

// maxWidgets bounds the concurrent analyses behind one overview request.
const maxWidgets = 3

// ImportResult describes one bulk upload.
type ImportResult struct {
	BatchID  string        `json:"batch_id"`
	Filename string        `json:"filename,omitempty"`
	Inserted int           `json:"inserted"`
	Report   ingest.Report `json:"report"`
	At       time.Time     `json:"at"`
}

// Analytics fetches records from a Source and runs the aggregation core over
// them. It holds no record state of its own.
type Analytics struct {
	source     store.Source
	classifier *analytics.ModeClassifier
	metrics    analytics.MetricsProvider
	logger     *slog.Logger

	analyses   atomic.Int64
	lastImport atomic.Pointer[ImportResult]
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithMetrics(m analytics.MetricsProvider) Option {
	return func(a *Analytics) { a.metrics = m }
}

func WithClassifier(c *analytics.ModeClassifier) Option {
	return func(a *Analytics) { a.classifier = c }
}

func NewAnalytics(source store.Source, opts ...Option) *Analytics {
	a := &Analytics{
		source:     source,
		classifier: analytics.DefaultModeClassifier(),
		metrics:    analytics.NewSyntheticMetrics(0),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analytics) fetch(ctx context.Context, filter models.Filter) ([]models.RawRecord, error) {
	records, err := a.source.Fetch(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	return records, nil
}

// run fetches, computes and logs one analysis inside its own span.
func run[T any](ctx context.Context, a *Analytics, name string, filter models.Filter, compute func([]models.RawRecord) (T, error)) (T, error) {
	var zero T
	ctx, span := observability.StartSpan(ctx, "analysis."+name)
	span.SetTag("filter", filter.CacheKey())
	logger := observability.Logger(ctx, a.logger)

	records, err := a.fetch(ctx, filter)
	if err != nil {
		span.SetError(err)
		span.Finish()
		return zero, err
	}
	span.SetTag("records", strconv.Itoa(len(records)))

	result, err := compute(records)
	duration := span.Finish()
	if err != nil {
		span.SetError(err)
		logger.DebugContext(ctx, "analysis not computed", span.LogAttrs()...)
		return zero, fmt.Errorf("%s: %w", name, err)
	}

	a.analyses.Add(1)
	logger.InfoContext(ctx, "analysis computed",
		"analysis", name,
		"records", len(records),
		"duration", duration,
	)
	return result, nil
}

func (a *Analytics) Forecast(ctx context.Context, filter models.Filter, unit analytics.Unit) (*models.ForecastResult, error) {
	return run(ctx, a, "forecast", filter, func(records []models.RawRecord) (*models.ForecastResult, error) {
		return analytics.Forecast(records, unit, a.metrics)
	})
}

// Pricing labels the manufacturer list with location, which is also
// expected to be among filter.Countries when set.
func (a *Analytics) Pricing(ctx context.Context, filter models.Filter, location string) (*models.PricingAnalysis, error) {
	return run(ctx, a, "pricing", filter, func(records []models.RawRecord) (*models.PricingAnalysis, error) {
		return analytics.PricingAnalysis(records, location, a.metrics)
	})
}

func (a *Analytics) Freight(ctx context.Context, filter models.Filter) (*models.FreightAnalysis, error) {
	return run(ctx, a, "freight", filter, func(records []models.RawRecord) (*models.FreightAnalysis, error) {
		return analytics.FreightAnalysis(records, a.classifier, a.metrics)
	})
}

func (a *Analytics) ShipmentModes(ctx context.Context, filter models.Filter) (*models.ShipmentModeAnalysis, error) {
	return run(ctx, a, "shipment_modes", filter, func(records []models.RawRecord) (*models.ShipmentModeAnalysis, error) {
		return analytics.ShipmentModeAnalysis(records, a.classifier, a.metrics)
	})
}

// CrossTab groups by dim and sums measure. topN > 0 condenses the tail into "Others".
func (a *Analytics) CrossTab(ctx context.Context, filter models.Filter, dim analytics.Dimension, measure analytics.Measure, topN int) ([]models.GroupAggregate, error) {
	return run(ctx, a, "crosstab", filter, func(records []models.RawRecord) ([]models.GroupAggregate, error) {
		groups := analytics.CrossTab(records, dim, measure)
		if topN > 0 {
			groups = analytics.Condense(groups, topN)
		}
		return groups, nil
	})
}

func (a *Analytics) FilterOptions(ctx context.Context) (models.FilterOptions, error) {
	opts, err := a.source.FilterOptions(ctx)
	if err != nil {
		return models.FilterOptions{}, fmt.Errorf("filter options: %w", err)
	}
	return opts, nil
}

// Overview computes the landing-page widgets concurrently. A widget that
// lacks data is reported in Errors; other failures abort the overview.
func (a *Analytics) Overview(ctx context.Context, filter models.Filter) (*models.Overview, error) {
	overview := &models.Overview{Errors: map[string]string{}}
	errs := make([]error, maxWidgets)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWidgets)

	g.Go(func() error {
		overview.Freight, errs[0] = a.Freight(ctx, filter)
		return fatal(errs[0])
	})
	g.Go(func() error {
		overview.Shipment, errs[1] = a.ShipmentModes(ctx, filter)
		return fatal(errs[1])
	})
	g.Go(func() error {
		overview.Forecast, errs[2] = a.Forecast(ctx, filter, analytics.Monthly)
		return fatal(errs[2])
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	for i, name := range []string{"freight", "shipment_modes", "forecast"} {
		if errs[i] != nil {
			overview.Errors[name] = errs[i].Error()
		}
	}
	return overview, nil
}

func fatal(err error) error {
	if err == nil || analytics.IsInsufficientData(err) {
		return nil
	}
	return err
}

// Import normalizes an upload and inserts the surviving records.
func (a *Analytics) Import(ctx context.Context, filename string, records []models.RawRecord, report ingest.Report) (*ImportResult, error) {
	result := &ImportResult{
		BatchID:  uuid.NewString(),
		Filename: filename,
		Report:   report,
		At:       time.Now().UTC(),
	}

	n, err := a.source.Insert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", result.BatchID, err)
	}
	result.Inserted = n
	a.lastImport.Store(result)

	observability.Logger(ctx, a.logger).InfoContext(ctx, "records imported",
		"batch_id", result.BatchID,
		"filename", filename,
		"rows", report.Rows,
		"inserted", n,
		"skipped", report.Skipped,
		"coerced", report.Coerced,
	)
	return result, nil
}

// Stats reports source and usage figures for monitoring.
// Ping reports whether the record source answers.
func (a *Analytics) Ping(ctx context.Context) error {
	_, err := a.source.Count(ctx)
	return err
}

func (a *Analytics) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"source":            a.source.Kind(),
		"analyses_computed": a.analyses.Load(),
	}

	if n, err := a.source.Count(ctx); err == nil {
		stats["record_count"] = n
	} else {
		stats["record_count_error"] = err.Error()
	}
	if cached, ok := a.source.(*store.CachedSource); ok {
		stats["cache"] = cached.Stats()
	}
	if last := a.lastImport.Load(); last != nil {
		stats["last_import"] = last
	}
	return stats
}
