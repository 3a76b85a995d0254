package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pharmaflow/internal/errors"
	"pharmaflow/internal/ingest"
	"pharmaflow/internal/models"
)

const maxTopN = 100

// parseFilter maps query parameters onto a Filter. country, product_group,
// vendor and shipment_mode may repeat or hold comma-separated values; from
// and to bound the delivery date and must be given together.
func parseFilter(q url.Values) (models.Filter, error) {
	f := models.Filter{
		Countries:     values(q, "country"),
		ProductGroups: values(q, "product_group"),
		Vendors:       values(q, "vendor"),
		ShipmentModes: values(q, "shipment_mode"),
	}

	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" && to == "" {
		return f, nil
	}
	if from == "" || to == "" {
		return f, errors.Validation("Both from and to are required for a date range")
	}

	start, ok := ingest.ParseDate(from)
	if !ok {
		return f, errors.Validation(fmt.Sprintf("Invalid from date %q", from))
	}
	end, ok := ingest.ParseDate(to)
	if !ok {
		return f, errors.Validation(fmt.Sprintf("Invalid to date %q", to))
	}
	if end.Before(start) {
		return f, errors.Validation("Date range end precedes its start")
	}

	f.DateRange = &models.DateRange{From: start, To: end}
	return f, nil
}

func values(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for v := range strings.SplitSeq(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// restrict narrows one filter field to a single value unless the value is a
// wildcard. An existing restriction on the field is replaced.
func restrict(field *[]string, value string) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") || strings.EqualFold(value, "global") {
		return
	}
	*field = []string{value}
}

func parseTopN(q url.Values) (int, error) {
	raw := strings.TrimSpace(q.Get("top"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxTopN {
		return 0, errors.Validation(fmt.Sprintf("top must be an integer between 0 and %d", maxTopN))
	}
	return n, nil
}
