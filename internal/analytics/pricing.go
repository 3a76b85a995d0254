package analytics

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"pharmaflow/internal/models"
)

const defaultLocation = "Global"

// pricedRecords keeps dated records with a manufacturing site and a positive
// unit price, ordered by delivery date so manufacturers appear in the order
// they first delivered.
func pricedRecords(records []models.RawRecord) []models.RawRecord {
	out := make([]models.RawRecord, 0, len(records))
	for _, r := range records {
		if _, ok := r.Delivered(); !ok {
			continue
		}
		if strings.TrimSpace(r.ManufacturingSite) == "" {
			continue
		}
		if price, ok := r.UnitPriceValue(); !ok || price <= 0 {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b models.RawRecord) int {
		return a.DeliveredAt.Compare(*b.DeliveredAt)
	})
	return out
}

// PriceTrend averages unit price per month over priced records.
func PriceTrend(records []models.RawRecord) ([]models.PricePoint, error) {
	return priceTrend(pricedRecords(records))
}

func priceTrend(priced []models.RawRecord) ([]models.PricePoint, error) {
	obs := make([]Observation, 0, len(priced))
	for _, r := range priced {
		at, _ := r.Delivered()
		price, _ := r.UnitPriceValue()
		obs = append(obs, Observation{At: at, Value: price})
	}

	buckets, err := Bucket(obs, SeriesSpec{
		Analysis: "pricing analysis",
		Unit:     Monthly,
		Reducer:  Average,
		Minimum:  MinPricingRecords,
	})
	if err != nil {
		return nil, err
	}

	trend := make([]models.PricePoint, 0, len(buckets))
	for _, b := range buckets {
		at, err := ParseBucket(b.Label, Monthly)
		if err != nil {
			return nil, err
		}
		trend = append(trend, models.PricePoint{
			Bucket: b.Label,
			Month:  monthNames[at.Month()-1],
			Price:  round2(b.Value),
		})
	}
	return trend, nil
}

// PricingAnalysis summarises unit prices per month and per manufacturer.
// location only labels the manufacturer list; it does not filter.
func PricingAnalysis(records []models.RawRecord, location string, metrics MetricsProvider) (*models.PricingAnalysis, error) {
	priced := pricedRecords(records)
	trend, err := priceTrend(priced)
	if err != nil {
		return nil, err
	}

	return &models.PricingAnalysis{
		Trends:                 trend,
		ManufacturerComparison: Quarterly(priced, Manufacturer, UnitPrice),
		ManufacturerList:       manufacturerList(priced, location, metrics),
	}, nil
}

func manufacturerList(priced []models.RawRecord, location string, metrics MetricsProvider) []models.ManufacturerListing {
	if strings.TrimSpace(location) == "" {
		location = defaultLocation
	}

	order := make([]string, 0)
	prices := make(map[string][]float64)
	for _, r := range priced {
		key := Manufacturer.Key(r)
		if _, exists := prices[key]; !exists {
			order = append(order, key)
		}
		price, _ := r.UnitPriceValue()
		prices[key] = append(prices[key], price)
	}

	list := make([]models.ManufacturerListing, 0, len(order))
	for i, name := range order {
		list = append(list, models.ManufacturerListing{
			ID:       i + 1,
			Name:     name,
			Price:    average(prices[name]),
			Trend:    formatTrend(metrics.PriceTrend()),
			Location: location,
			LeadTime: fmt.Sprintf("%d days", metrics.LeadTimeDays()),
		})
	}
	return list
}

func formatTrend(pct float64) string {
	s := strconv.FormatFloat(pct, 'f', 1, 64)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}
