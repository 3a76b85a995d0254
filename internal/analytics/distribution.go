package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"pharmaflow/internal/models"
)

// maxCountries bounds the country freight table.
const maxCountries = 7

// shipment is a record that passed mode validation, with its category resolved.
type shipment struct {
	record  models.RawRecord
	mode    Mode
	cost    float64
	hasCost bool
}

// classifyShipments keeps dated records with a shipment mode and a
// non-negative freight cost when one is present. When requireCost is set,
// records without a cost are dropped as well.
func classifyShipments(records []models.RawRecord, c *ModeClassifier, requireCost bool) []shipment {
	out := make([]shipment, 0, len(records))
	for _, r := range records {
		if _, ok := r.Delivered(); !ok {
			continue
		}
		if strings.TrimSpace(r.ShipmentMode) == "" {
			continue
		}
		cost, hasCost := r.FreightCostValue()
		if hasCost && cost < 0 {
			continue
		}
		if requireCost && !hasCost {
			continue
		}
		out = append(out, shipment{
			record:  r,
			mode:    c.Classify(r.ShipmentMode),
			cost:    cost,
			hasCost: hasCost,
		})
	}
	return out
}

// ModeDistribution counts shipments per mode and averages their freight cost.
// Percentages are rounded to whole numbers; every mode is present.
func ModeDistribution(records []models.RawRecord, c *ModeClassifier, metrics MetricsProvider) []models.ModeShare {
	return modeShares(classifyShipments(records, c, false), metrics)
}

func modeShares(shipments []shipment, metrics MetricsProvider) []models.ModeShare {
	counts := make(map[Mode]int, len(Modes))
	costs := make(map[Mode][]float64, len(Modes))
	for _, s := range shipments {
		counts[s.mode]++
		if s.hasCost {
			costs[s.mode] = append(costs[s.mode], s.cost)
		}
	}

	shares := make([]models.ModeShare, 0, len(Modes))
	for _, m := range Modes {
		share := models.ModeShare{
			Mode:        m.String(),
			Count:       counts[m],
			AverageCost: average(costs[m]),
			Change:      metrics.Change(),
		}
		if len(shipments) > 0 {
			share.Percent = int(math.Round(float64(counts[m]) / float64(len(shipments)) * 100))
		}
		shares = append(shares, share)
	}
	return shares
}

// FreightAnalysis builds the freight cost dashboard from records that carry a
// delivery date, a shipment mode and a non-negative freight cost.
func FreightAnalysis(records []models.RawRecord, c *ModeClassifier, metrics MetricsProvider) (*models.FreightAnalysis, error) {
	shipments := classifyShipments(records, c, true)
	if err := requireRecords("freight analysis", len(shipments), MinFreightRecords); err != nil {
		return nil, err
	}

	priced := make([]models.RawRecord, len(shipments))
	for i, s := range shipments {
		priced[i] = s.record
	}

	shares := modeShares(shipments, metrics)
	summary := models.FreightSummary{ChangeSynthetic: true}
	for _, s := range shares {
		switch s.Mode {
		case Air.String():
			summary.AirFreightAvg, summary.AirFreightChange = s.AverageCost, s.Change
		case Ocean.String():
			summary.SeaFreightAvg, summary.SeaFreightChange = s.AverageCost, s.Change
		default:
			summary.LandFreightAvg, summary.LandFreightChange = s.AverageCost, s.Change
		}
	}

	return &models.FreightAnalysis{
		MonthlyData:        monthlyModeCosts(shipments),
		VendorDistribution: Condense(CrossTab(priced, Vendor, FreightCost), DisplayGroups),
		CountryData:        countryFreight(shipments),
		Summary:            summary,
	}, nil
}

// monthlyModeCosts averages freight cost per calendar month and mode. All
// twelve months are returned, January first, regardless of year.
func monthlyModeCosts(shipments []shipment) []models.MonthlyModeCost {
	var costs [12]map[Mode][]float64
	for i := range costs {
		costs[i] = make(map[Mode][]float64, len(Modes))
	}
	for _, s := range shipments {
		at, _ := s.record.Delivered()
		idx := int(at.Month()) - 1
		costs[idx][s.mode] = append(costs[idx][s.mode], s.cost)
	}

	result := make([]models.MonthlyModeCost, 12)
	for i, name := range monthNames {
		result[i] = models.MonthlyModeCost{
			Month: name,
			Air:   average(costs[i][Air]),
			Sea:   average(costs[i][Ocean]),
			Land:  average(costs[i][Truck]),
		}
	}
	return result
}

func monthlyModeCounts(shipments []shipment) []models.MonthlyModeCount {
	result := make([]models.MonthlyModeCount, 12)
	for i, name := range monthNames {
		result[i].Month = name
	}
	for _, s := range shipments {
		at, _ := s.record.Delivered()
		row := &result[int(at.Month())-1]
		switch s.mode {
		case Air:
			row.Air++
		case Ocean:
			row.Ocean++
		default:
			row.Truck++
		}
	}
	return result
}

// countryFreight ranks countries by shipment count and averages their cost.
func countryFreight(shipments []shipment) []models.CountryFreight {
	costs := make(map[string][]float64)
	for _, s := range shipments {
		key := Country.Key(s.record)
		costs[key] = append(costs[key], s.cost)
	}

	result := make([]models.CountryFreight, 0, len(costs))
	for country, c := range costs {
		result = append(result, models.CountryFreight{
			Country: country,
			Cost:    average(c),
			Volume:  len(c),
		})
	}
	slices.SortFunc(result, func(a, b models.CountryFreight) int {
		if c := cmp.Compare(b.Volume, a.Volume); c != 0 {
			return c
		}
		return cmp.Compare(a.Country, b.Country)
	})

	if len(result) > maxCountries {
		result = result[:maxCountries]
	}
	return result
}

// ShipmentModeAnalysis builds the shipment mode dashboard from dated records
// with a shipment mode. Freight cost is optional here.
func ShipmentModeAnalysis(records []models.RawRecord, c *ModeClassifier, metrics MetricsProvider) (*models.ShipmentModeAnalysis, error) {
	shipments := classifyShipments(records, c, false)
	if err := requireRecords("shipment mode analysis", len(shipments), MinShipmentRecords); err != nil {
		return nil, err
	}

	shares := modeShares(shipments, metrics)
	total := float64(len(shipments))
	summary := models.ShipmentSummary{
		TotalShipments:  len(shipments),
		ChangeSynthetic: true,
	}
	for _, s := range shares {
		pct := float64(s.Count) / total * 100
		switch s.Mode {
		case Air.String():
			summary.AirPercentage, summary.AirChange = round2(pct), s.Change
		case Ocean.String():
			summary.OceanPercentage, summary.OceanChange = round2(pct), s.Change
		default:
			summary.TruckPercentage, summary.TruckChange = round2(pct), s.Change
		}
	}
	unknown := 100 - (summary.AirPercentage + summary.OceanPercentage + summary.TruckPercentage)
	summary.UnknownPercentage = math.Max(0, round2(unknown))

	monthly := monthlyModeCounts(shipments)
	return &models.ShipmentModeAnalysis{
		Summary:             summary,
		Distribution:        shares,
		MonthlyTrends:       monthly,
		MonthlyDistribution: slices.Clone(monthly),
	}, nil
}
