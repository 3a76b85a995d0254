// Package store provides the record sources the analytics service reads from.
package store

import (
	"context"
	"slices"
	"strings"

	"pharmaflow/internal/models"
)

// DefaultTable is the record table name used by the hosted dashboard.
const DefaultTable = "PharmaFlow.AI"

// Source is a filterable collection of raw records.
type Source interface {
	Fetch(ctx context.Context, filter models.Filter) ([]models.RawRecord, error)
	FilterOptions(ctx context.Context) (models.FilterOptions, error)
	Insert(ctx context.Context, records []models.RawRecord) (int, error)
	Count(ctx context.Context) (int, error)
	Kind() string
}

// optionsOf collects distinct non-empty filter values, sorted.
func optionsOf(records []models.RawRecord) models.FilterOptions {
	return models.FilterOptions{
		Countries:     distinct(records, func(r models.RawRecord) string { return r.Country }),
		ProductGroups: distinct(records, func(r models.RawRecord) string { return r.ProductGroup }),
		Vendors:       distinct(records, func(r models.RawRecord) string { return r.Vendor }),
		ShipmentModes: distinct(records, func(r models.RawRecord) string { return r.ShipmentMode }),
	}
}

func distinct(records []models.RawRecord, field func(models.RawRecord) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		v := strings.TrimSpace(field(r))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
