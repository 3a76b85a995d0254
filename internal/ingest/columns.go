// Package ingest turns loosely-typed tabular rows (CSV, XLSX, form posts)
// into strict models.RawRecord values. Anything that cannot be coerced is
// treated as absent; the aggregation core never sees raw strings.
package ingest

import (
	"strings"
	"unicode"
)

// Canonical column names, matching the record table.
const (
	ColCountry           = "country"
	ColProductGroup      = "product_group"
	ColVendor            = "vendor"
	ColShipmentMode      = "shipment_mode"
	ColManufacturingSite = "manufacturing_site"
	ColQuantity          = "line_item_quantity"
	ColUnitPrice         = "unit_price"
	ColFreightCost       = "freight_cost_usd"
	ColDeliveredDate     = "delivered_to_client_date"
)

type columnRule struct {
	column string
	parts  []string
}

// Order matters: the first rule whose parts all appear in the header wins.
var columnRules = []columnRule{
	{ColCountry, []string{"country"}},
	{ColProductGroup, []string{"product", "group"}},
	{ColVendor, []string{"vendor"}},
	{ColShipmentMode, []string{"shipment", "mode"}},
	{ColManufacturingSite, []string{"manufacturing", "site"}},
	{ColQuantity, []string{"quantity"}},
	{ColUnitPrice, []string{"unit", "price"}},
	{ColFreightCost, []string{"freight", "cost"}},
	{ColDeliveredDate, []string{"delivered", "date"}},
}

// CanonicalColumn maps a spreadsheet header such as "Freight Cost (USD)" or
// "Delivered to Client Date" onto a record column. ok is false for headers
// that carry no record field.
func CanonicalColumn(header string) (column string, ok bool) {
	key := snakeCase(header)
	for _, rule := range columnRules {
		if containsAll(key, rule.parts) {
			return rule.column, true
		}
	}
	return "", false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

// snakeCase lowercases s and collapses every run of non-alphanumerics to a
// single underscore: "Freight Cost (USD)" becomes "freight_cost_usd".
func snakeCase(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pending = true
	}
	return b.String()
}

// bindHeaders resolves each header index to a record column. Exact matches
// are bound first so that "Vendor" wins over "Vendor INCO Term"; the rest are
// bound by rule, and each column is bound at most once.
func bindHeaders(headers []string) map[int]string {
	bound := make(map[int]string, len(columnRules))
	taken := make(map[string]bool, len(columnRules))

	for i, h := range headers {
		key := snakeCase(h)
		for _, rule := range columnRules {
			if key == rule.column && !taken[rule.column] {
				bound[i] = rule.column
				taken[rule.column] = true
				break
			}
		}
	}

	for i, h := range headers {
		if _, ok := bound[i]; ok {
			continue
		}
		if column, ok := CanonicalColumn(h); ok && !taken[column] {
			bound[i] = column
			taken[column] = true
		}
	}
	return bound
}
