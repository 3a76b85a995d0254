package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"pharmaflow/internal/analytics"
	"pharmaflow/internal/ingest"
	"pharmaflow/internal/models"
	"pharmaflow/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type fixedMetrics struct{}

func (fixedMetrics) ForecastMetrics() models.ForecastMetrics {
	return models.ForecastMetrics{MAPE: 8, RMSE: 35, Reliability: 82, Accuracy: "fixed", Synthetic: true}
}
func (fixedMetrics) Change() float64     { return 2 }
func (fixedMetrics) PriceTrend() float64 { return 1.2 }
func (fixedMetrics) LeadTimeDays() int   { return 9 }

type failingSource struct {
	store.Source
	err error
}

func (f failingSource) Fetch(context.Context, models.Filter) ([]models.RawRecord, error) {
	return nil, f.err
}

func newTestAnalytics(src store.Source) *Analytics {
	return NewAnalytics(src,
		WithMetrics(fixedMetrics{}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func record(date, country, group, mode string, qty int64, cost string) models.RawRecord {
	d, _ := time.Parse("2006-01-02", date)
	r := models.RawRecord{
		Country:           country,
		ProductGroup:      group,
		Vendor:            "Vendor " + country,
		ShipmentMode:      mode,
		ManufacturingSite: "Site " + group,
		Quantity:          &qty,
		UnitPrice:         decimal.NewNullDecimal(decimal.NewFromInt(qty).Div(decimal.NewFromInt(10))),
		DeliveredAt:       &d,
	}
	if cost != "" {
		r.FreightCost = decimal.NewNullDecimal(decimal.RequireFromString(cost))
	}
	return r
}

func testRecords() []models.RawRecord {
	return []models.RawRecord{
		record("2025-01-05", "Kenya", "ARV", "Air", 100, "400"),
		record("2025-01-20", "Kenya", "ARV", "Ocean", 50, "150"),
		record("2025-02-10", "Kenya", "ARV", "Truck", 80, "90"),
		record("2025-02-15", "Kenya", "ARV", "Air", 20, ""),
		record("2025-03-01", "Kenya", "ARV", "Truck", 60, "60"),
		record("2025-03-03", "Haiti", "HRDT", "Air", 10, "500"),
	}
}

func TestAnalytics_Forecast(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	result, err := a.Forecast(context.Background(), models.Filter{Countries: []string{"Kenya"}}, analytics.Monthly)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if len(result.Historical) != 3 {
		t.Fatalf("Expected 3 historical buckets, got %d", len(result.Historical))
	}
	if result.Historical[0].Value != 150 {
		t.Errorf("Expected January demand 150, got %v", result.Historical[0].Value)
	}
	if len(result.Forecast) != analytics.ForecastHorizon {
		t.Errorf("Expected %d forecast points, got %d", analytics.ForecastHorizon, len(result.Forecast))
	}
	if result.Metrics.MAPE != 8 {
		t.Errorf("Expected injected metrics, got %+v", result.Metrics)
	}
}

func TestAnalytics_Forecast_InsufficientData(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	_, err := a.Forecast(context.Background(), models.Filter{Countries: []string{"Haiti"}}, analytics.Weekly)
	if !errors.Is(err, analytics.ErrInsufficientData) {
		t.Fatalf("Expected insufficient data, got %v", err)
	}

	var insufficient *analytics.InsufficientDataError
	if !errors.As(err, &insufficient) || insufficient.Got != 1 {
		t.Errorf("Expected Got = 1, got %+v", insufficient)
	}
}

func TestAnalytics_Freight(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	result, err := a.Freight(context.Background(), models.Filter{})
	if err != nil {
		t.Fatalf("Freight() error = %v", err)
	}
	if result.Summary.AirFreightAvg != 450 {
		t.Errorf("Expected air average 450, got %v", result.Summary.AirFreightAvg)
	}
	if result.Summary.LandFreightAvg != 75 {
		t.Errorf("Expected land average 75, got %v", result.Summary.LandFreightAvg)
	}
	if len(result.MonthlyData) != 12 {
		t.Errorf("Expected 12 months, got %d", len(result.MonthlyData))
	}
}

func TestAnalytics_ShipmentModes(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	result, err := a.ShipmentModes(context.Background(), models.Filter{})
	if err != nil {
		t.Fatalf("ShipmentModes() error = %v", err)
	}
	if result.Summary.TotalShipments != 6 {
		t.Errorf("Expected 6 shipments, got %d", result.Summary.TotalShipments)
	}
	if result.Summary.AirPercentage != 50 {
		t.Errorf("Expected 50%% air, got %v", result.Summary.AirPercentage)
	}
}

func TestAnalytics_Pricing(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	result, err := a.Pricing(context.Background(), models.Filter{ProductGroups: []string{"ARV"}}, "Kenya")
	if err != nil {
		t.Fatalf("Pricing() error = %v", err)
	}
	if len(result.ManufacturerList) != 1 {
		t.Fatalf("Expected 1 manufacturer, got %d", len(result.ManufacturerList))
	}
	m := result.ManufacturerList[0]
	if m.Location != "Kenya" || m.Trend != "+1.2%" || m.LeadTime != "9 days" {
		t.Errorf("Unexpected manufacturer listing %+v", m)
	}
}

func TestAnalytics_CrossTab(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	groups, err := a.CrossTab(context.Background(), models.Filter{}, analytics.Country, analytics.Quantity, 1)
	if err != nil {
		t.Fatalf("CrossTab() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Expected Kenya + Others, got %d groups", len(groups))
	}
	if groups[0].Key != "Kenya" || groups[0].Total != 310 {
		t.Errorf("Unexpected leader %+v", groups[0])
	}
	if groups[1].Key != analytics.OthersKey {
		t.Errorf("Expected Others, got %s", groups[1].Key)
	}
}

func TestAnalytics_Overview(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	overview, err := a.Overview(context.Background(), models.Filter{Countries: []string{"Kenya"}})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.Freight == nil || overview.Shipment == nil || overview.Forecast == nil {
		t.Errorf("Expected all widgets, got %+v", overview)
	}
	if len(overview.Errors) != 0 {
		t.Errorf("Expected no widget errors, got %v", overview.Errors)
	}
}

func TestAnalytics_Overview_PartialData(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	overview, err := a.Overview(context.Background(), models.Filter{Countries: []string{"Haiti"}})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.Forecast != nil || overview.Freight != nil {
		t.Error("Expected widgets without data to be nil")
	}
	for _, name := range []string{"freight", "shipment_modes", "forecast"} {
		if _, ok := overview.Errors[name]; !ok {
			t.Errorf("Expected error entry for %s", name)
		}
	}
}

func TestAnalytics_Overview_SourceFailure(t *testing.T) {
	boom := errors.New("connection refused")
	a := newTestAnalytics(failingSource{Source: store.NewMemorySource(), err: boom})

	_, err := a.Overview(context.Background(), models.Filter{})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected source error, got %v", err)
	}
}

func TestAnalytics_Import(t *testing.T) {
	src := store.NewCachedSource(store.NewMemorySource(), time.Minute)
	a := newTestAnalytics(src)
	ctx := context.Background()

	result, err := a.Import(ctx, "upload.csv", testRecords(), ingest.Report{Rows: 7, Parsed: 6, Skipped: 1})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Inserted != 6 {
		t.Errorf("Expected 6 inserted, got %d", result.Inserted)
	}
	if result.BatchID == "" {
		t.Error("Expected a batch id")
	}

	stats := a.Stats(ctx)
	if stats["record_count"] != 6 {
		t.Errorf("Expected record_count 6, got %v", stats["record_count"])
	}
	if stats["source"] != "memory+cache" {
		t.Errorf("Unexpected source kind %v", stats["source"])
	}
	if stats["last_import"] != result {
		t.Error("Expected last import to be reported")
	}
	if _, ok := stats["cache"].(store.CacheStats); !ok {
		t.Error("Expected cache stats")
	}
}

func TestAnalytics_FilterOptions(t *testing.T) {
	a := newTestAnalytics(store.NewMemorySource(testRecords()...))

	opts, err := a.FilterOptions(context.Background())
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if len(opts.Countries) != 2 || opts.Countries[0] != "Haiti" {
		t.Errorf("Unexpected countries %v", opts.Countries)
	}
	if len(opts.ShipmentModes) != 3 {
		t.Errorf("Unexpected modes %v", opts.ShipmentModes)
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := newTestAnalytics(store.NewCachedSource(store.NewMemorySource(testRecords()...), time.Minute))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Overview(ctx, models.Filter{}); err != nil {
				t.Errorf("Overview() error = %v", err)
			}
			if _, err := a.Import(ctx, "", testRecords()[:1], ingest.Report{}); err != nil {
				t.Errorf("Import() error = %v", err)
			}
		}()
	}
	wg.Wait()

	count, _ := a.source.Count(ctx)
	if count != 16 {
		t.Errorf("Expected 16 records, got %d", count)
	}
}

func BenchmarkAnalytics_Overview(b *testing.B) {
	a := NewAnalytics(store.NewMemorySource(store.SampleRecords(5000, 1)...),
		WithMetrics(fixedMetrics{}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		_, _ = a.Overview(ctx, models.Filter{})
	}
}
