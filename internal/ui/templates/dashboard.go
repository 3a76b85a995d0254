// Package templates holds the server-rendered dashboard shell. Widgets are
// filled in by the /sse endpoints once the page has loaded.
//
// Markup lives in the .templ files; run `templ generate` after editing them.
package templates

import "github.com/a-h/templ"

// Widget is one dashboard panel backed by an SSE endpoint.
type Widget struct {
	ID       string
	Title    string
	Endpoint string
}

var DefaultWidgets = []Widget{
	{ID: "freight-content", Title: "Freight cost by mode", Endpoint: "/sse/freight"},
	{ID: "shipment-content", Title: "Shipment modes", Endpoint: "/sse/shipment-modes"},
	{ID: "forecast-content", Title: "Demand forecast", Endpoint: "/sse/forecast"},
	{ID: "pricing-content", Title: "Manufacturer pricing", Endpoint: "/sse/pricing"},
}

// initialSignals mirrors the filter signals the SSE handlers read.
const initialSignals = `{country: '', product: '', vendor: '', mode: '', from: '', to: '', timeframe: 'monthly', location: '', ` +
	`filterOptions: {}, freightData: null, shipmentData: null, forecastData: null, pricingTrends: [], pricingComparison: []}`

func Dashboard() templ.Component {
	return DashboardWith("PharmaFlow", DefaultWidgets)
}
