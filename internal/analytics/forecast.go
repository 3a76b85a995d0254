package analytics

import (
	"math"

	"pharmaflow/internal/models"
)

const (
	// ForecastHorizon is the number of buckets appended after the history.
	ForecastHorizon = 6
	growthPerPeriod = 0.02
)

// Project extends history by ForecastHorizon buckets of the same unit. Each
// projected value is the historical mean grown by 2% per step, rounded to a
// whole number. No trend or seasonality is modelled.
func Project(history []models.BucketedPoint, unit Unit) ([]models.BucketedPoint, error) {
	if len(history) == 0 {
		return nil, &InsufficientDataError{Analysis: "forecast", Minimum: 1, Got: 0}
	}

	last, err := ParseBucket(history[len(history)-1].Label, unit)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, p := range history {
		total += p.Value
	}
	mean := total / float64(len(history))

	projected := make([]models.BucketedPoint, 0, ForecastHorizon)
	for i := 1; i <= ForecastHorizon; i++ {
		projected = append(projected, models.BucketedPoint{
			Label: unit.step(last, i).Format(unit.layout()),
			Value: math.Round(mean * (1 + growthPerPeriod*float64(i))),
		})
	}
	return projected, nil
}

// Forecast builds the demand series for records and projects it forward.
func Forecast(records []models.RawRecord, unit Unit, metrics MetricsProvider) (*models.ForecastResult, error) {
	history, err := DemandSeries(records, unit)
	if err != nil {
		return nil, err
	}

	future, err := Project(history, unit)
	if err != nil {
		return nil, err
	}

	points := make([]models.ForecastPoint, 0, len(history)+len(future))
	for _, p := range history {
		actual := p.Value
		points = append(points, models.ForecastPoint{Label: p.Label, Actual: &actual})
	}
	for _, p := range future {
		predicted := p.Value
		points = append(points, models.ForecastPoint{Label: p.Label, Predicted: &predicted})
	}

	return &models.ForecastResult{
		Timeframe:  unit.String(),
		Historical: history,
		Forecast:   future,
		Points:     points,
		Metrics:    metrics.ForecastMetrics(),
	}, nil
}
