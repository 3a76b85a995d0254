package analytics

import (
	"errors"
	"fmt"
)

// Minimum valid record counts per analysis.
const (
	MinForecastRecords = 5
	MinFreightRecords  = 3
	MinShipmentRecords = 3
	MinPricingRecords  = 3
)

// ErrInsufficientData is matched by every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports that too few usable records survived filtering.
type InsufficientDataError struct {
	Analysis string
	Minimum  int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: at least %d valid records required, got %d",
		e.Analysis, e.Minimum, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

func requireRecords(analysis string, got, minimum int) error {
	if got < minimum {
		return &InsufficientDataError{Analysis: analysis, Minimum: minimum, Got: got}
	}
	return nil
}

// IsInsufficientData reports whether err, or anything it wraps, is an
// insufficient-data failure.
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
