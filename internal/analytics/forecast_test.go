package analytics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmaflow/internal/models"
)

func TestProject_Monthly(t *testing.T) {
	history := []models.BucketedPoint{
		{Label: "2025-01", Value: 150},
		{Label: "2025-02", Value: 100},
		{Label: "2025-03", Value: 60},
	}

	got, err := Project(history, Monthly)
	require.NoError(t, err)

	want := []models.BucketedPoint{
		{Label: "2025-04", Value: 105},
		{Label: "2025-05", Value: 107},
		{Label: "2025-06", Value: 110},
		{Label: "2025-07", Value: 112},
		{Label: "2025-08", Value: 114},
		{Label: "2025-09", Value: 116},
	}
	assert.Equal(t, want, got)
}

func TestProject_WeeklyStepsSevenDays(t *testing.T) {
	history := []models.BucketedPoint{
		{Label: "2025-12-14", Value: 10},
		{Label: "2025-12-21", Value: 30},
	}

	got, err := Project(history, Weekly)
	require.NoError(t, err)
	require.Len(t, got, ForecastHorizon)

	labels := make([]string, len(got))
	for i, p := range got {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{
		"2025-12-28", "2026-01-04", "2026-01-11", "2026-01-18", "2026-01-25", "2026-02-01",
	}, labels)
}

func TestProject_MonthlyCrossesYear(t *testing.T) {
	got, err := Project([]models.BucketedPoint{{Label: "2024-10", Value: 100}}, Monthly)
	require.NoError(t, err)
	assert.Equal(t, "2024-11", got[0].Label)
	assert.Equal(t, "2025-04", got[5].Label)
	assert.Equal(t, 112.0, got[5].Value)
}

func TestProject_StrictlyChronological(t *testing.T) {
	for _, unit := range []Unit{Weekly, Monthly} {
		records := sampleDemand(t)
		history, err := DemandSeries(records, unit)
		require.NoError(t, err)

		future, err := Project(history, unit)
		require.NoError(t, err)
		require.Len(t, future, ForecastHorizon)

		prev, err := ParseBucket(history[len(history)-1].Label, unit)
		require.NoError(t, err)
		for _, p := range future {
			at, err := ParseBucket(p.Label, unit)
			require.NoError(t, err)
			require.True(t, at.After(prev), "%s should follow %s", at, prev)
			assert.Equal(t, unit.step(prev, 1), at)
			prev = at
		}
	}
}

func TestProject_EmptyHistory(t *testing.T) {
	_, err := Project(nil, Monthly)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestProject_BadLabel(t *testing.T) {
	_, err := Project([]models.BucketedPoint{{Label: "January", Value: 1}}, Monthly)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInsufficientData))
}

func TestForecast(t *testing.T) {
	result, err := Forecast(sampleDemand(t), Monthly, fixedMetrics{})
	require.NoError(t, err)

	assert.Equal(t, "monthly", result.Timeframe)
	assert.Len(t, result.Historical, 3)
	assert.Len(t, result.Forecast, ForecastHorizon)
	require.Len(t, result.Points, 3+ForecastHorizon)

	for i, p := range result.Points {
		if i < 3 {
			require.NotNil(t, p.Actual)
			assert.Nil(t, p.Predicted)
			assert.Equal(t, result.Historical[i].Value, *p.Actual)
		} else {
			assert.Nil(t, p.Actual)
			require.NotNil(t, p.Predicted)
			assert.Equal(t, result.Forecast[i-3].Value, *p.Predicted)
		}
	}
	assert.True(t, result.Metrics.Synthetic)
}

func TestForecast_FourRecordsIsInsufficient(t *testing.T) {
	result, err := Forecast(sampleDemand(t)[:4], Monthly, fixedMetrics{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestForecast_Idempotent(t *testing.T) {
	records := sampleDemand(t)
	metrics := NewSyntheticMetrics(7)

	first, err := Forecast(records, Weekly, metrics)
	require.NoError(t, err)
	second, err := Forecast(records, Weekly, metrics)
	require.NoError(t, err)

	assert.Equal(t, first.Historical, second.Historical)
	assert.Equal(t, first.Forecast, second.Forecast)
	assert.Equal(t, first.Points, second.Points)
}

func TestSyntheticMetrics_Ranges(t *testing.T) {
	m := NewSyntheticMetrics(42)
	for i := 0; i < 500; i++ {
		fm := m.ForecastMetrics()
		assert.True(t, fm.Synthetic)
		assert.GreaterOrEqual(t, fm.MAPE, 7.0)
		assert.LessOrEqual(t, fm.MAPE, 12.0)
		assert.GreaterOrEqual(t, fm.RMSE, 30.0)
		assert.LessOrEqual(t, fm.RMSE, 50.0)
		assert.GreaterOrEqual(t, fm.Reliability, 75.0)
		assert.LessOrEqual(t, fm.Reliability, 90.0)

		change := m.Change()
		assert.GreaterOrEqual(t, change, -10.0)
		assert.LessOrEqual(t, change, 20.0)

		trend := m.PriceTrend()
		assert.GreaterOrEqual(t, trend, -3.0)
		assert.LessOrEqual(t, trend, 3.0)

		lead := m.LeadTimeDays()
		assert.GreaterOrEqual(t, lead, 8)
		assert.LessOrEqual(t, lead, 17)
	}
}

func TestSyntheticMetrics_SeedIsReproducible(t *testing.T) {
	a, b := NewSyntheticMetrics(99), NewSyntheticMetrics(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.ForecastMetrics(), b.ForecastMetrics())
		assert.Equal(t, a.Change(), b.Change())
	}
}
