package handlers

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"pharmaflow/internal/models"
	"pharmaflow/internal/services"
	"pharmaflow/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func shipment(date, country, group, mode string, qty int64, price, cost string) models.RawRecord {
	d, _ := time.Parse("2006-01-02", date)
	r := models.RawRecord{
		Country:           country,
		ProductGroup:      group,
		Vendor:            "Vendor " + country,
		ShipmentMode:      mode,
		ManufacturingSite: "Site " + group,
		Quantity:          &qty,
		UnitPrice:         decimal.NewNullDecimal(decimal.RequireFromString(price)),
		DeliveredAt:       &d,
	}
	if cost != "" {
		r.FreightCost = decimal.NewNullDecimal(decimal.RequireFromString(cost))
	}
	return r
}

func testRecords() []models.RawRecord {
	return []models.RawRecord{
		shipment("2025-01-05", "Kenya", "ARV", "Air", 100, "10", "400"),
		shipment("2025-01-20", "Kenya", "ARV", "Ocean", 50, "12", "150"),
		shipment("2025-02-10", "Kenya", "ARV", "Truck", 80, "11", "90"),
		shipment("2025-02-15", "Kenya", "HRDT", "Air", 20, "30", ""),
		shipment("2025-03-01", "Kenya", "ARV", "Truck", 60, "9", "60"),
		shipment("2025-03-03", "Haiti", "HRDT", "Air", 10, "28", "500"),
	}
}

func newTestService(records ...models.RawRecord) (*services.Analytics, *store.MemorySource) {
	src := store.NewMemorySource(records...)
	return services.NewAnalytics(src,
		services.WithLogger(testLogger()),
		services.WithMetrics(fixedMetrics{}),
	), src
}

type fixedMetrics struct{}

func (fixedMetrics) ForecastMetrics() models.ForecastMetrics {
	return models.ForecastMetrics{MAPE: 8, RMSE: 35, Reliability: 82, Accuracy: "fixed", Synthetic: true}
}
func (fixedMetrics) Change() float64     { return 2 }
func (fixedMetrics) PriceTrend() float64 { return 1.2 }
func (fixedMetrics) LeadTimeDays() int   { return 9 }
