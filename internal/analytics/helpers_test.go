package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pharmaflow/internal/models"
)

func day(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return &d
}

func qty(n int64) *int64 { return &n }

func money(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func demandRecord(t *testing.T, date string, n int64) models.RawRecord {
	t.Helper()
	return models.RawRecord{DeliveredAt: day(t, date), Quantity: qty(n)}
}

func shipmentRecord(t *testing.T, date, mode, vendor, country, cost string) models.RawRecord {
	t.Helper()
	r := models.RawRecord{
		DeliveredAt:  day(t, date),
		ShipmentMode: mode,
		Vendor:       vendor,
		Country:      country,
	}
	if cost != "" {
		r.FreightCost = money(cost)
	}
	return r
}

func priceRecord(t *testing.T, date, site, price string) models.RawRecord {
	t.Helper()
	return models.RawRecord{
		DeliveredAt:       day(t, date),
		ManufacturingSite: site,
		UnitPrice:         money(price),
	}
}

// fixedMetrics returns constant synthetic figures so results can be compared.
type fixedMetrics struct{}

func (fixedMetrics) ForecastMetrics() models.ForecastMetrics {
	return models.ForecastMetrics{MAPE: 9, RMSE: 40, Reliability: 80, Accuracy: "fixed", Synthetic: true}
}
func (fixedMetrics) Change() float64     { return 1.5 }
func (fixedMetrics) PriceTrend() float64 { return -0.4 }
func (fixedMetrics) LeadTimeDays() int   { return 10 }

func sampleDemand(t *testing.T) []models.RawRecord {
	t.Helper()
	return []models.RawRecord{
		demandRecord(t, "2025-01-05", 100),
		demandRecord(t, "2025-01-20", 50),
		demandRecord(t, "2025-02-10", 80),
		demandRecord(t, "2025-02-15", 20),
		demandRecord(t, "2025-03-01", 60),
	}
}
