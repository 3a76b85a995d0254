package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"pharmaflow/internal/models"
)

const (
	UnknownKey = "Unknown"
	OthersKey  = "Others"

	// DisplayGroups is how many groups a pie chart shows before "Others".
	DisplayGroups = 4
)

// Dimension is a categorical field records can be grouped by.
type Dimension int

const (
	Manufacturer Dimension = iota
	Vendor
	Country
	ShipmentMode
	ProductGroup
)

var dimensionNames = map[string]Dimension{
	"manufacturer":       Manufacturer,
	"manufacturing_site": Manufacturer,
	"vendor":             Vendor,
	"country":            Country,
	"shipment_mode":      ShipmentMode,
	"product_group":      ProductGroup,
}

func ParseDimension(s string) (Dimension, error) {
	d, ok := dimensionNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown dimension %q", s)
	}
	return d, nil
}

func (d Dimension) String() string {
	switch d {
	case Manufacturer:
		return "manufacturer"
	case Vendor:
		return "vendor"
	case Country:
		return "country"
	case ShipmentMode:
		return "shipment_mode"
	default:
		return "product_group"
	}
}

// Key returns the group key of r, or UnknownKey when the field is empty.
func (d Dimension) Key(r models.RawRecord) string {
	var v string
	switch d {
	case Manufacturer:
		v = r.ManufacturingSite
	case Vendor:
		v = r.Vendor
	case Country:
		v = r.Country
	case ShipmentMode:
		v = r.ShipmentMode
	default:
		v = r.ProductGroup
	}
	if v = strings.TrimSpace(v); v == "" {
		return UnknownKey
	}
	return v
}

// Measure is a numeric field aggregated per group.
type Measure int

const (
	FreightCost Measure = iota
	UnitPrice
	Quantity
)

var measureNames = map[string]Measure{
	"freight_cost":     FreightCost,
	"freight_cost_usd": FreightCost,
	"unit_price":       UnitPrice,
	"quantity":         Quantity,
}

func ParseMeasure(s string) (Measure, error) {
	m, ok := measureNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown measure %q", s)
	}
	return m, nil
}

func (m Measure) String() string {
	switch m {
	case FreightCost:
		return "freight_cost"
	case UnitPrice:
		return "unit_price"
	default:
		return "quantity"
	}
}

func (m Measure) Value(r models.RawRecord) (float64, bool) {
	switch m {
	case FreightCost:
		return r.FreightCostValue()
	case UnitPrice:
		return r.UnitPriceValue()
	default:
		return r.QuantityValue()
	}
}

// CrossTab partitions records by dim and aggregates measure per group.
// Records without the measure are skipped. Groups are ordered by share
// descending, then total descending, then key.
func CrossTab(records []models.RawRecord, dim Dimension, measure Measure) []models.GroupAggregate {
	groups := make(map[string]*models.GroupAggregate)
	var grandTotal float64

	for _, r := range records {
		v, ok := measure.Value(r)
		if !ok {
			continue
		}
		key := dim.Key(r)
		g := groups[key]
		if g == nil {
			g = &models.GroupAggregate{Key: key}
			groups[key] = g
		}
		g.Count++
		g.Total += v
		grandTotal += v
	}

	result := make([]models.GroupAggregate, 0, len(groups))
	for _, g := range groups {
		g.Average = round2(g.Total / float64(g.Count))
		if grandTotal != 0 {
			g.Share = int(math.Round(g.Total / grandTotal * 100))
		}
		g.Total = round2(g.Total)
		result = append(result, *g)
	}

	slices.SortFunc(result, compareGroups)
	return result
}

func compareGroups(a, b models.GroupAggregate) int {
	if c := cmp.Compare(b.Share, a.Share); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Total, a.Total); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// Condense keeps the first topN groups and folds the rest into one OthersKey
// group. groups must already be ordered as CrossTab orders them.
func Condense(groups []models.GroupAggregate, topN int) []models.GroupAggregate {
	if topN < 0 {
		topN = 0
	}
	if len(groups) <= topN {
		return slices.Clone(groups)
	}

	condensed := slices.Clone(groups[:topN])
	others := models.GroupAggregate{Key: OthersKey}
	for _, g := range groups[topN:] {
		others.Count += g.Count
		others.Total += g.Total
		others.Share += g.Share
	}
	if others.Count > 0 {
		others.Average = round2(others.Total / float64(others.Count))
	}
	others.Total = round2(others.Total)
	return append(condensed, others)
}

// Quarterly averages measure per group and calendar quarter. Undated records
// are skipped; groups keep the order in which they first appear.
func Quarterly(records []models.RawRecord, dim Dimension, measure Measure) []models.QuarterlyAggregate {
	order := make([]string, 0)
	buckets := make(map[string]*[4][]float64)

	for _, r := range records {
		at, ok := r.Delivered()
		if !ok {
			continue
		}
		v, ok := measure.Value(r)
		if !ok {
			continue
		}
		key := dim.Key(r)
		q := buckets[key]
		if q == nil {
			q = &[4][]float64{}
			buckets[key] = q
			order = append(order, key)
		}
		idx := quarterOf(at.Month()) - 1
		q[idx] = append(q[idx], v)
	}

	result := make([]models.QuarterlyAggregate, 0, len(order))
	for _, key := range order {
		q := buckets[key]
		result = append(result, models.QuarterlyAggregate{
			Key: key,
			Q1:  average(q[0]),
			Q2:  average(q[1]),
			Q3:  average(q[2]),
			Q4:  average(q[3]),
		})
	}
	return result
}
