package analytics

import "strings"

// Mode is the transport category a shipment is assigned to.
type Mode int

const (
	Air Mode = iota
	Ocean
	Truck
)

// Modes lists every category in display order.
var Modes = []Mode{Air, Ocean, Truck}

func (m Mode) String() string {
	switch m {
	case Air:
		return "Air"
	case Ocean:
		return "Ocean"
	default:
		return "Truck"
	}
}

type modeRule struct {
	mode  Mode
	match func(string) bool
}

// ModeClassifier assigns free-text shipment modes to a Mode. Rules are tried
// in order and the first match wins; text matching no rule gets the fallback.
type ModeClassifier struct {
	rules    []modeRule
	fallback Mode
}

func containsAny(needles ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}
}

// DefaultModeClassifier checks "air", then "sea"/"ocean", and falls back to Truck.
func DefaultModeClassifier() *ModeClassifier {
	return &ModeClassifier{
		rules: []modeRule{
			{mode: Air, match: containsAny("air")},
			{mode: Ocean, match: containsAny("sea", "ocean")},
		},
		fallback: Truck,
	}
}

// Classify matches case-insensitively.
func (c *ModeClassifier) Classify(shipmentMode string) Mode {
	text := strings.ToLower(shipmentMode)
	for _, rule := range c.rules {
		if rule.match(text) {
			return rule.mode
		}
	}
	return c.fallback
}
