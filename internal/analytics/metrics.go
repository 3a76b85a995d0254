package analytics

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"pharmaflow/internal/models"
)

// MetricsProvider supplies the decorative figures the dashboard shows next to
// computed aggregates: forecast accuracy, period-over-period change, price
// trend and lead time. None of them is derived from the records.
type MetricsProvider interface {
	ForecastMetrics() models.ForecastMetrics
	// Change is a percent change in [-10, 20) with one decimal.
	Change() float64
	// PriceTrend is a percent change in [-3, 3) with one decimal.
	PriceTrend() float64
	// LeadTimeDays is a whole number of days in [8, 17].
	LeadTimeDays() int
}

const syntheticAccuracyLabel = "Good accuracy forecast (MAPE < 20%)"

// SyntheticMetrics draws every figure uniformly from a fixed range. It is a
// placeholder and marks its forecast metrics as synthetic.
type SyntheticMetrics struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticMetrics returns a generator seeded with seed, or with the clock
// when seed is zero.
func NewSyntheticMetrics(seed uint64) *SyntheticMetrics {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SyntheticMetrics{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SyntheticMetrics) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *SyntheticMetrics) ForecastMetrics() models.ForecastMetrics {
	return models.ForecastMetrics{
		MAPE:        math.Round(s.float()*5 + 7),
		RMSE:        math.Round(s.float()*20 + 30),
		Reliability: math.Round(s.float()*15 + 75),
		Accuracy:    syntheticAccuracyLabel,
		Synthetic:   true,
	}
}

func (s *SyntheticMetrics) Change() float64 {
	return math.Round((s.float()*30-10)*10) / 10
}

func (s *SyntheticMetrics) PriceTrend() float64 {
	return math.Round((s.float()*6-3)*10) / 10
}

func (s *SyntheticMetrics) LeadTimeDays() int {
	return int(s.float()*10) + 8
}
