package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"pharmaflow/internal/models"
)

var (
	sampleCountries = []string{"Nigeria", "Kenya", "South Africa", "Haiti", "Vietnam", "Côte d'Ivoire", "Uganda", "Tanzania", "Zambia", "Rwanda"}
	sampleGroups    = []string{"ARV", "HRDT", "ANTM", "ACT", "MRDT"}
	sampleVendors   = []string{"SCMS from RDC", "Aurobindo Pharma Limited", "Cipla Limited", "Ranbaxy Fine Chemicals LTD.", "Strides Arcolab Limited", "Hetero Labs Limited"}
	sampleModes     = []string{"Air", "Ocean", "Truck", "Air Charter"}
	sampleSites     = []string{"Aurobindo Unit III, India", "Cipla, Goa, India", "Hetero Unit III Hyderabad IN", "Mylan (formerly Matrix) Nashik", "Strides, Bangalore, India", "Ranbaxy, Paonta Shahib, India"}
)

// baseCost is the typical freight cost per mode; jitter is applied on top.
var baseCost = map[string]float64{"Air": 4200, "Air Charter": 9000, "Ocean": 1800, "Truck": 900}

// SampleRecords generates n plausible records spread over the two years
// before 2025-01-01. The same seed always yields the same records.
func SampleRecords(n int, seed uint64) []models.RawRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	pick := func(values []string) string { return values[rng.IntN(len(values))] }

	records := make([]models.RawRecord, n)
	for i := range records {
		mode := pick(sampleModes)
		delivered := start.AddDate(0, 0, rng.IntN(730))
		quantity := int64(10 + rng.IntN(5000))
		price := decimal.NewFromFloat(0.05 + rng.Float64()*40).Round(2)
		cost := decimal.NewFromFloat(baseCost[mode] * (0.6 + rng.Float64()*0.8)).Round(2)

		records[i] = models.RawRecord{
			Country:           pick(sampleCountries),
			ProductGroup:      pick(sampleGroups),
			Vendor:            pick(sampleVendors),
			ShipmentMode:      mode,
			ManufacturingSite: pick(sampleSites),
			Quantity:          &quantity,
			UnitPrice:         decimal.NewNullDecimal(price),
			FreightCost:       decimal.NewNullDecimal(cost),
			DeliveredAt:       &delivered,
		}
	}
	return records
}

// SeedIfEmpty loads sample records only when the source has none.
func SeedIfEmpty(ctx context.Context, src Source, n int, seed uint64) (bool, error) {
	count, err := src.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing records: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := src.Insert(ctx, SampleRecords(n, seed)); err != nil {
		return false, fmt.Errorf("seed sample records: %w", err)
	}
	return true, nil
}
