package ingest

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"pharmaflow/internal/models"
)

// Row is one loosely-typed input line keyed by canonical column name.
type Row map[string]string

// Report counts what normalization kept and dropped.
type Report struct {
	Rows    int `json:"rows"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
	// Coerced counts cells that were present but unreadable and stored as absent.
	Coerced int `json:"coerced"`
}

// Normalize converts one row. A row is skipped (ok false) when none of its
// cells yields a record field. coerced counts present-but-unreadable cells.
func Normalize(row Row) (rec models.RawRecord, coerced int, ok bool) {
	filled := 0
	text := func(column string) string {
		v := strings.TrimSpace(row[column])
		if v != "" {
			filled++
		}
		return v
	}

	rec.Country = text(ColCountry)
	rec.ProductGroup = text(ColProductGroup)
	rec.Vendor = text(ColVendor)
	rec.ShipmentMode = text(ColShipmentMode)
	rec.ManufacturingSite = text(ColManufacturingSite)

	if raw := strings.TrimSpace(row[ColQuantity]); raw != "" {
		if q, good := ParseQuantity(raw); good {
			rec.Quantity = q
			filled++
		} else {
			coerced++
		}
	}
	if raw := strings.TrimSpace(row[ColUnitPrice]); raw != "" {
		if p, good := ParseAmount(raw); good {
			rec.UnitPrice = p
			filled++
		} else {
			coerced++
		}
	}
	if raw := strings.TrimSpace(row[ColFreightCost]); raw != "" {
		if c, good := ParseAmount(raw); good {
			rec.FreightCost = c
			filled++
		} else {
			coerced++
		}
	}
	if raw := strings.TrimSpace(row[ColDeliveredDate]); raw != "" {
		if d, good := ParseDate(raw); good {
			rec.DeliveredAt = &d
			filled++
		} else {
			coerced++
		}
	}

	return rec, coerced, filled > 0
}

// NormalizeAll converts rows in parallel chunks and returns the surviving
// records in input order.
func NormalizeAll(ctx context.Context, rows []Row) ([]models.RawRecord, Report, error) {
	report := Report{Rows: len(rows)}
	if len(rows) == 0 {
		return nil, report, nil
	}

	type result struct {
		rec     models.RawRecord
		coerced int
		ok      bool
	}
	results := make([]result, len(rows))

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(rows) + workers - 1) / workers
	if chunk < 256 {
		chunk = 256
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				rec, coerced, ok := Normalize(rows[i])
				results[i] = result{rec: rec, coerced: coerced, ok: ok}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, fmt.Errorf("normalize rows: %w", err)
	}

	records := make([]models.RawRecord, 0, len(rows))
	for _, r := range results {
		report.Coerced += r.coerced
		if !r.ok {
			report.Skipped++
			continue
		}
		records = append(records, r.rec)
	}
	report.Parsed = len(records)
	return records, report, nil
}
