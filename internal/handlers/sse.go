package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"pharmaflow/internal/analytics"
	"pharmaflow/internal/errors"
	"pharmaflow/internal/models"
	"pharmaflow/internal/observability"
	"pharmaflow/internal/services"
)

const maxTableRows = 50

var manufacturerTableTemplate = template.Must(template.New("manufacturerTable").Parse(`
<div id="pricing-content">
<p class="table-caption">{{.Location}}</p>
<table class="modern-table">
<thead><tr><th>Manufacturer</th><th>Avg. unit price</th><th>Trend</th><th>Lead time</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Name}}</td>
<td><strong>${{printf "%.2f" .Price}}</strong></td>
<td>{{.Trend}}</td>
<td>{{.LeadTime}}</td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var noticeTemplate = template.Must(template.New("notice").Parse(
	`<div id="{{.ID}}" class="notice">{{.Message}}</div>`))

// filterSignals are the dashboard's filter controls as sent by datastar.
type filterSignals struct {
	Country   string `json:"country"`
	Product   string `json:"product"`
	Vendor    string `json:"vendor"`
	Mode      string `json:"mode"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timeframe string `json:"timeframe"`
	Location  string `json:"location"`
}

func (s filterSignals) filter() (models.Filter, error) {
	q := map[string][]string{}
	add := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			q[key] = []string{value}
		}
	}
	add("from", s.From)
	add("to", s.To)

	f, err := parseFilter(q)
	if err != nil {
		return f, err
	}
	restrict(&f.Countries, s.Country)
	restrict(&f.ProductGroups, s.Product)
	restrict(&f.Vendors, s.Vendor)
	restrict(&f.ShipmentModes, s.Mode)
	return f, nil
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *SSEHandlers) readFilter(r *http.Request) (filterSignals, models.Filter, error) {
	var signals filterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return signals, models.Filter{}, errors.BadRequestWrap(err, "Malformed signals")
	}
	f, err := signals.filter()
	return signals, f, err
}

// notice replaces the widget target with a user-facing message. Insufficient
// data and validation problems are shown verbatim; anything else is logged.
func (h *SSEHandlers) notice(sse *datastar.ServerSentEventGenerator, r *http.Request, target string, err error) {
	appErr := errors.FromAnalysis(err)
	logger := observability.Logger(r.Context(), h.logger)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "sse widget failed", "target", target, "error", err)
	} else {
		logger.DebugContext(r.Context(), "sse widget unavailable", "target", target, "error", err)
	}

	var buf strings.Builder
	if execErr := noticeTemplate.Execute(&buf, map[string]string{"ID": target, "Message": appErr.Message}); execErr != nil {
		logger.ErrorContext(r.Context(), "render notice", "error", execErr)
		return
	}
	h.patchElements(sse, r, buf.String())
}

func (h *SSEHandlers) patchElements(sse *datastar.ServerSentEventGenerator, r *http.Request, html string) {
	if err := sse.PatchElements(html); err != nil {
		observability.Logger(r.Context(), h.logger).DebugContext(r.Context(), "patch elements", "error", err)
	}
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, r *http.Request, signals map[string]any) {
	data, err := json.Marshal(signals)
	if err != nil {
		observability.Logger(r.Context(), h.logger).ErrorContext(r.Context(), "marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(data); err != nil {
		observability.Logger(r.Context(), h.logger).DebugContext(r.Context(), "patch signals", "error", err)
	}
}

func renderManufacturerTable(location string, rows []models.ManufacturerListing) (string, error) {
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	if location == "" {
		location = "Global"
	}

	var buf strings.Builder
	err := manufacturerTableTemplate.Execute(&buf, struct {
		Location string
		Rows     []models.ManufacturerListing
	}{location, rows})
	return buf.String(), err
}

func (h *SSEHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	signals, filter, err := h.readFilter(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.notice(sse, r, "forecast-content", err)
		return
	}

	result, err := h.analytics.Forecast(r.Context(), filter, analytics.ParseUnit(signals.Timeframe))
	if err != nil {
		h.notice(sse, r, "forecast-content", err)
		return
	}
	h.patchSignals(sse, r, map[string]any{"forecastData": result})
	h.patchElements(sse, r, fmt.Sprintf(`<div id="forecast-content">%s forecast: %d projected buckets</div>`,
		template.HTMLEscapeString(result.Timeframe), len(result.Forecast)))
}

func (h *SSEHandlers) HandlePricing(w http.ResponseWriter, r *http.Request) {
	signals, filter, err := h.readFilter(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.notice(sse, r, "pricing-content", err)
		return
	}
	restrict(&filter.Countries, signals.Location)

	result, err := h.analytics.Pricing(r.Context(), filter, signals.Location)
	if err != nil {
		h.notice(sse, r, "pricing-content", err)
		return
	}

	html, err := renderManufacturerTable(signals.Location, result.ManufacturerList)
	if err != nil {
		h.notice(sse, r, "pricing-content", err)
		return
	}
	h.patchElements(sse, r, html)
	h.patchSignals(sse, r, map[string]any{
		"pricingTrends":     result.Trends,
		"pricingComparison": result.ManufacturerComparison,
	})
}

func (h *SSEHandlers) HandleFreight(w http.ResponseWriter, r *http.Request) {
	_, filter, err := h.readFilter(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.notice(sse, r, "freight-content", err)
		return
	}

	result, err := h.analytics.Freight(r.Context(), filter)
	if err != nil {
		h.notice(sse, r, "freight-content", err)
		return
	}
	h.patchSignals(sse, r, map[string]any{"freightData": result})
	h.patchElements(sse, r, `<div id="freight-content">Freight analysis loaded</div>`)
}

func (h *SSEHandlers) HandleShipmentModes(w http.ResponseWriter, r *http.Request) {
	_, filter, err := h.readFilter(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.notice(sse, r, "shipment-content", err)
		return
	}

	result, err := h.analytics.ShipmentModes(r.Context(), filter)
	if err != nil {
		h.notice(sse, r, "shipment-content", err)
		return
	}
	h.patchSignals(sse, r, map[string]any{"shipmentData": result})
	h.patchElements(sse, r, `<div id="shipment-content">Shipment mode analysis loaded</div>`)
}

func (h *SSEHandlers) HandleFilterOptions(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	opts, err := h.analytics.FilterOptions(r.Context())
	if err != nil {
		h.notice(sse, r, "filters-content", err)
		return
	}
	h.patchSignals(sse, r, map[string]any{"filterOptions": opts})
}

// HandleRefreshAll recomputes every overview widget in one stream. Widgets
// without enough data get a notice while the rest still update.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	_, filter, err := h.readFilter(r)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.notice(sse, r, "overview-content", err)
		return
	}

	overview, err := h.analytics.Overview(r.Context(), filter)
	if err != nil {
		h.notice(sse, r, "overview-content", err)
		return
	}

	signals := map[string]any{}
	if overview.Freight != nil {
		signals["freightData"] = overview.Freight
	}
	if overview.Shipment != nil {
		signals["shipmentData"] = overview.Shipment
	}
	if overview.Forecast != nil {
		signals["forecastData"] = overview.Forecast
	}
	h.patchSignals(sse, r, signals)

	for widget, msg := range overview.Errors {
		var buf strings.Builder
		target := strings.ReplaceAll(widget, "_modes", "") + "-content"
		if err := noticeTemplate.Execute(&buf, map[string]string{"ID": target, "Message": msg}); err == nil {
			h.patchElements(sse, r, buf.String())
		}
	}
}
