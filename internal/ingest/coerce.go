package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. The SCMS exports use "2-Jan-06".
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2-Jan-06",
	"2-Jan-2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"1/2/2006",
	"1/2/06",
}

// excelEpoch is day zero of the spreadsheet serial date system.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts the layouts above and spreadsheet serial day numbers.
// The result is truncated to a UTC calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDay(t), true
		}
	}

	// Serial numbers between 1954 and 2173 only; anything else is a stray number.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 20000 && serial < 100000 {
		return excelEpoch.AddDate(0, 0, int(serial)), true
	}
	return time.Time{}, false
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseAmount reads a money or quantity cell. Currency symbols, thousands
// separators and surrounding spaces are ignored; text such as
// "Freight Included in Commodity Cost" or "See ASN-93 (ID#:1281)" is absent.
func ParseAmount(s string) (decimal.NullDecimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, false
	}
	s = strings.NewReplacer("$", "", ",", "", "USD", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

// ParseQuantity reads a whole item count; fractional values are rounded.
func ParseQuantity(s string) (*int64, bool) {
	amount, ok := ParseAmount(s)
	if !ok {
		return nil, false
	}
	n := amount.Decimal.Round(0).IntPart()
	return &n, true
}
