package models

// BucketedPoint is one calendar bucket of a time series.
type BucketedPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ForecastPoint merges history and projection for charting. Historical points
// carry only Actual, projected points carry only Predicted.
type ForecastPoint struct {
	Label     string   `json:"label"`
	Actual    *float64 `json:"actual"`
	Predicted *float64 `json:"predicted"`
}

// ForecastMetrics are placeholders when Synthetic is set: they are drawn from
// fixed ranges, not measured from residuals.
type ForecastMetrics struct {
	MAPE        float64 `json:"mape"`
	RMSE        float64 `json:"rmse"`
	Reliability float64 `json:"reliability"`
	Accuracy    string  `json:"accuracy"`
	Synthetic   bool    `json:"synthetic"`
}

type ForecastResult struct {
	Timeframe  string          `json:"timeframe"`
	Historical []BucketedPoint `json:"historical"`
	Forecast   []BucketedPoint `json:"forecast"`
	Points     []ForecastPoint `json:"points"`
	Metrics    ForecastMetrics `json:"metrics"`
}

// GroupAggregate is one row of a cross-tabulation.
type GroupAggregate struct {
	Key     string  `json:"name"`
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Share   int     `json:"value"`
}

type QuarterlyAggregate struct {
	Key string  `json:"name"`
	Q1  float64 `json:"q1"`
	Q2  float64 `json:"q2"`
	Q3  float64 `json:"q3"`
	Q4  float64 `json:"q4"`
}

type PricePoint struct {
	Bucket string  `json:"bucket"`
	Month  string  `json:"month"`
	Price  float64 `json:"price"`
}

type ManufacturerListing struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Trend    string  `json:"trend"`
	Location string  `json:"location"`
	LeadTime string  `json:"lead_time"`
}

type PricingAnalysis struct {
	Trends                 []PricePoint          `json:"trends"`
	ManufacturerComparison []QuarterlyAggregate  `json:"manufacturer_comparison"`
	ManufacturerList       []ManufacturerListing `json:"manufacturer_list"`
}

type CountryFreight struct {
	Country string  `json:"country"`
	Cost    float64 `json:"cost"`
	Volume  int     `json:"volume"`
}

type MonthlyModeCost struct {
	Month string  `json:"month"`
	Air   float64 `json:"air"`
	Sea   float64 `json:"sea"`
	Land  float64 `json:"land"`
}

type MonthlyModeCount struct {
	Month string `json:"month"`
	Air   int    `json:"air"`
	Ocean int    `json:"ocean"`
	Truck int    `json:"truck"`
}

// FreightSummary change fields are synthetic, not period-over-period comparisons.
type FreightSummary struct {
	AirFreightAvg     float64 `json:"air_freight_avg"`
	SeaFreightAvg     float64 `json:"sea_freight_avg"`
	LandFreightAvg    float64 `json:"land_freight_avg"`
	AirFreightChange  float64 `json:"air_freight_change"`
	SeaFreightChange  float64 `json:"sea_freight_change"`
	LandFreightChange float64 `json:"land_freight_change"`
	ChangeSynthetic   bool    `json:"change_synthetic"`
}

type FreightAnalysis struct {
	MonthlyData        []MonthlyModeCost `json:"monthly_data"`
	VendorDistribution []GroupAggregate  `json:"vendor_distribution"`
	CountryData        []CountryFreight  `json:"country_data"`
	Summary            FreightSummary    `json:"summary"`
}

type ModeShare struct {
	Mode        string  `json:"name"`
	Count       int     `json:"count"`
	Percent     int     `json:"value"`
	AverageCost float64 `json:"average_cost"`
	Change      float64 `json:"change"`
}

type ShipmentSummary struct {
	TotalShipments    int     `json:"total_shipments"`
	AirPercentage     float64 `json:"air_percentage"`
	OceanPercentage   float64 `json:"ocean_percentage"`
	TruckPercentage   float64 `json:"truck_percentage"`
	UnknownPercentage float64 `json:"unknown_percentage"`
	AirChange         float64 `json:"air_change"`
	OceanChange       float64 `json:"ocean_change"`
	TruckChange       float64 `json:"truck_change"`
	ChangeSynthetic   bool    `json:"change_synthetic"`
}

type ShipmentModeAnalysis struct {
	Summary             ShipmentSummary    `json:"summary"`
	Distribution        []ModeShare        `json:"distribution"`
	MonthlyTrends       []MonthlyModeCount `json:"monthly_trends"`
	MonthlyDistribution []MonthlyModeCount `json:"monthly_distribution"`
}

// Overview bundles the dashboard widgets. A widget that failed is nil and its
// error message is keyed by widget name in Errors.
type Overview struct {
	Freight  *FreightAnalysis      `json:"freight,omitempty"`
	Shipment *ShipmentModeAnalysis `json:"shipment,omitempty"`
	Forecast *ForecastResult       `json:"forecast,omitempty"`
	Errors   map[string]string     `json:"errors,omitempty"`
}
