package models

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one shipment/pricing line as the aggregation core sees it.
// Every field is optional; aggregations skip records missing the fields they need.
type RawRecord struct {
	Country           string              `json:"country,omitempty"`
	ProductGroup      string              `json:"product_group,omitempty"`
	Vendor            string              `json:"vendor,omitempty"`
	ShipmentMode      string              `json:"shipment_mode,omitempty"`
	ManufacturingSite string              `json:"manufacturing_site,omitempty"`
	Quantity          *int64              `json:"line_item_quantity,omitempty"`
	UnitPrice         decimal.NullDecimal `json:"unit_price"`
	FreightCost       decimal.NullDecimal `json:"freight_cost_usd"`
	DeliveredAt       *time.Time          `json:"delivered_to_client_date,omitempty"`
}

func (r RawRecord) Delivered() (time.Time, bool) {
	if r.DeliveredAt == nil || r.DeliveredAt.IsZero() {
		return time.Time{}, false
	}
	return *r.DeliveredAt, true
}

func (r RawRecord) QuantityValue() (float64, bool) {
	if r.Quantity == nil {
		return 0, false
	}
	return float64(*r.Quantity), true
}

func (r RawRecord) UnitPriceValue() (float64, bool) {
	if !r.UnitPrice.Valid {
		return 0, false
	}
	return r.UnitPrice.Decimal.InexactFloat64(), true
}

func (r RawRecord) FreightCostValue() (float64, bool) {
	if !r.FreightCost.Valid {
		return 0, false
	}
	return r.FreightCost.Decimal.InexactFloat64(), true
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Filter narrows a fetch from the record source. Values within one field are
// OR-combined, fields are AND-combined, and an empty field does not restrict.
type Filter struct {
	Countries     []string   `json:"country,omitempty"`
	ProductGroups []string   `json:"product_group,omitempty"`
	Vendors       []string   `json:"vendor,omitempty"`
	ShipmentModes []string   `json:"shipment_mode,omitempty"`
	DateRange     *DateRange `json:"date_range,omitempty"`
}

func (f Filter) IsEmpty() bool {
	return len(f.Countries) == 0 &&
		len(f.ProductGroups) == 0 &&
		len(f.Vendors) == 0 &&
		len(f.ShipmentModes) == 0 &&
		f.DateRange == nil
}

// Matches reports whether r passes every constraint in f. A date range
// excludes records without a delivery date; both bounds are inclusive.
func (f Filter) Matches(r RawRecord) bool {
	if !matchAny(f.Countries, r.Country) ||
		!matchAny(f.ProductGroups, r.ProductGroup) ||
		!matchAny(f.Vendors, r.Vendor) ||
		!matchAny(f.ShipmentModes, r.ShipmentMode) {
		return false
	}

	if f.DateRange != nil {
		d, ok := r.Delivered()
		if !ok {
			return false
		}
		if d.Before(f.DateRange.From) || d.After(f.DateRange.To) {
			return false
		}
	}

	return true
}

// CacheKey is a stable textual form of the filter, independent of value order.
func (f Filter) CacheKey() string {
	var b strings.Builder
	writeSet := func(name string, values []string) {
		if len(values) == 0 {
			return
		}
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		b.WriteString(name)
		b.WriteByte('=')
		for i, v := range sorted {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(v))
		}
		b.WriteByte(';')
	}

	writeSet("country", f.Countries)
	writeSet("product_group", f.ProductGroups)
	writeSet("vendor", f.Vendors)
	writeSet("shipment_mode", f.ShipmentModes)
	if f.DateRange != nil {
		b.WriteString("range=")
		b.WriteString(f.DateRange.From.UTC().Format(time.RFC3339))
		b.WriteByte('/')
		b.WriteString(f.DateRange.To.UTC().Format(time.RFC3339))
	}

	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}

func matchAny(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, value)
}

// FilterOptions lists the distinct, sorted, non-empty values available for filtering.
type FilterOptions struct {
	Countries     []string `json:"countries"`
	ProductGroups []string `json:"product_groups"`
	Vendors       []string `json:"vendors"`
	ShipmentModes []string `json:"shipment_modes"`
}
