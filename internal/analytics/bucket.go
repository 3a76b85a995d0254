// Package analytics turns batches of raw shipment records into chart-ready
// series, cross-tabulations and summaries. Every function here is a pure
// transformation of its input; nothing is cached or shared between calls
// except the MetricsProvider the caller passes in.
package analytics

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"pharmaflow/internal/models"
)

// Unit is the calendar size of a time bucket.
type Unit int

const (
	Monthly Unit = iota
	Weekly
)

const (
	weekLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// ParseUnit maps "weekly" to Weekly; every other value is Monthly.
func ParseUnit(s string) Unit {
	if strings.EqualFold(strings.TrimSpace(s), "weekly") {
		return Weekly
	}
	return Monthly
}

func (u Unit) String() string {
	if u == Weekly {
		return "weekly"
	}
	return "monthly"
}

func (u Unit) layout() string {
	if u == Weekly {
		return weekLayout
	}
	return monthLayout
}

// step moves t forward by n buckets.
func (u Unit) step(t time.Time, n int) time.Time {
	if u == Weekly {
		return t.AddDate(0, 0, 7*n)
	}
	return t.AddDate(0, n, 0)
}

// BucketKey returns the Sunday on or before t (weekly) or the year and month of t.
func BucketKey(t time.Time, u Unit) string {
	if u == Weekly {
		start := t.AddDate(0, 0, -int(t.Weekday()))
		return start.Format(weekLayout)
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ParseBucket is the inverse of BucketKey for the bucket's first day.
func ParseBucket(label string, u Unit) (time.Time, error) {
	t, err := time.Parse(u.layout(), label)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s bucket %q: %w", u, label, err)
	}
	return t, nil
}

// Reducer collapses the values of one bucket.
type Reducer int

const (
	Sum Reducer = iota
	Average
)

func (r Reducer) reduce(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	if r == Average && len(values) > 0 {
		return total / float64(len(values))
	}
	return total
}

// Observation is a dated numeric value extracted from a record.
type Observation struct {
	At    time.Time
	Value float64
}

// SeriesSpec configures Bucket.
type SeriesSpec struct {
	Analysis string
	Unit     Unit
	Reducer  Reducer
	Minimum  int
}

// Bucket groups observations into calendar buckets and reduces each one.
// Buckets come back in chronological order.
func Bucket(obs []Observation, spec SeriesSpec) ([]models.BucketedPoint, error) {
	if err := requireRecords(spec.Analysis, len(obs), spec.Minimum); err != nil {
		return nil, err
	}

	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b Observation) int {
		return a.At.Compare(b.At)
	})

	order := make([]string, 0)
	grouped := make(map[string][]float64)
	for _, o := range sorted {
		key := BucketKey(o.At, spec.Unit)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], o.Value)
	}

	points := make([]models.BucketedPoint, 0, len(order))
	for _, key := range order {
		points = append(points, models.BucketedPoint{
			Label: key,
			Value: spec.Reducer.reduce(grouped[key]),
		})
	}
	return points, nil
}

// DemandSeries sums line-item quantities per bucket over records that carry
// both a delivery date and a quantity.
func DemandSeries(records []models.RawRecord, unit Unit) ([]models.BucketedPoint, error) {
	obs := make([]Observation, 0, len(records))
	for _, r := range records {
		at, ok := r.Delivered()
		if !ok {
			continue
		}
		qty, ok := r.QuantityValue()
		if !ok {
			continue
		}
		obs = append(obs, Observation{At: at, Value: qty})
	}

	return Bucket(obs, SeriesSpec{
		Analysis: "forecast",
		Unit:     unit,
		Reducer:  Sum,
		Minimum:  MinForecastRecords,
	})
}

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return round2(Average.reduce(values))
}

// quarterOf maps January–March to 1 and so on.
func quarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}
