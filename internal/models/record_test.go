package models

import (
	"testing"
	"time"
)

func TestFilter_CacheKey(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Filter
		same bool
	}{
		{"empty filters", Filter{}, Filter{}, true},
		{"value order ignored", Filter{Countries: []string{"Kenya", "Haiti"}}, Filter{Countries: []string{"Haiti", "Kenya"}}, true},
		{"comma inside a value", Filter{Countries: []string{"A,B"}}, Filter{Countries: []string{"A", "B"}}, false},
		{"separator inside a value", Filter{Vendors: []string{`x";vendor="y`}}, Filter{Vendors: []string{"x", "y"}}, false},
		{"field matters", Filter{Countries: []string{"Air"}}, Filter{ShipmentModes: []string{"Air"}}, false},
		{"date range", Filter{DateRange: &DateRange{From: jan, To: feb}}, Filter{DateRange: &DateRange{From: jan, To: jan}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := tt.a.CacheKey(), tt.b.CacheKey()
			if (ka == kb) != tt.same {
				t.Errorf("CacheKey() %q vs %q, want same=%v", ka, kb, tt.same)
			}
		})
	}

	if got := (Filter{}).CacheKey(); got != "all" {
		t.Errorf("empty filter key = %q, want all", got)
	}
}

func TestFilter_Matches(t *testing.T) {
	d := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	r := RawRecord{Country: "Kenya", ShipmentMode: "Air", DeliveredAt: &d}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"no constraints", Filter{}, true},
		{"any of the countries", Filter{Countries: []string{"Haiti", "Kenya"}}, true},
		{"other mode", Filter{ShipmentModes: []string{"Ocean"}}, false},
		{"inclusive bounds", Filter{DateRange: &DateRange{From: d, To: d}}, true},
		{"outside range", Filter{DateRange: &DateRange{From: d.AddDate(0, 0, 1), To: d.AddDate(0, 1, 0)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
