package handlers

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"pharmaflow/internal/analytics"
	"pharmaflow/internal/errors"
	"pharmaflow/internal/ingest"
	"pharmaflow/internal/observability"
	"pharmaflow/internal/services"
)

const version = "1.0.0"

var analysisCacheHeaders = map[string]string{
	"Cache-Control": "private, max-age=60",
}

type APIHandlers struct {
	analytics      *services.Analytics
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, maxUploadBytes int64) *APIHandlers {
	return &APIHandlers{
		analytics:      analytics,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, observability.Logger(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
}

// HandleForecast serves GET /api/forecast?product=&country=&timeframe=.
func (h *APIHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	restrict(&filter.ProductGroups, q.Get("product"))
	restrict(&filter.Countries, q.Get("country"))

	result, err := h.analytics.Forecast(r.Context(), filter, analytics.ParseUnit(q.Get("timeframe")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, analysisCacheHeaders)
}

// HandlePricing serves GET /api/pricing?product=&location=.
func (h *APIHandlers) HandlePricing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	restrict(&filter.ProductGroups, q.Get("product"))
	location := q.Get("location")
	restrict(&filter.Countries, location)

	result, err := h.analytics.Pricing(r.Context(), filter, location)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, analysisCacheHeaders)
}

func (h *APIHandlers) HandleFreight(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.analytics.Freight(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, analysisCacheHeaders)
}

func (h *APIHandlers) HandleShipmentModes(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.analytics.ShipmentModes(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, result, analysisCacheHeaders)
}

// HandleCrossTab serves GET /api/crosstab?dimension=&measure=&top=.
func (h *APIHandlers) HandleCrossTab(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dimName, measureName := q.Get("dimension"), q.Get("measure")
	if dimName == "" {
		dimName = "manufacturer"
	}
	if measureName == "" {
		measureName = "freight_cost"
	}
	dim, err := analytics.ParseDimension(dimName)
	if err != nil {
		h.fail(w, r, errors.ValidationWrap(err, fmt.Sprintf("Unknown dimension %q", dimName)))
		return
	}
	measure, err := analytics.ParseMeasure(measureName)
	if err != nil {
		h.fail(w, r, errors.ValidationWrap(err, fmt.Sprintf("Unknown measure %q", measureName)))
		return
	}
	topN, err := parseTopN(q)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	groups, err := h.analytics.CrossTab(r.Context(), filter, dim, measure, topN)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"dimension": dim.String(),
		"measure":   measure.String(),
		"groups":    groups,
	}, analysisCacheHeaders)
}

func (h *APIHandlers) HandleFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.analytics.FilterOptions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, opts, map[string]string{
		"Cache-Control": "public, max-age=300",
	})
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	overview, err := h.analytics.Overview(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, overview)
}

// HandleImport accepts a multipart upload in field "file" and appends its
// records to the source.
func (h *APIHandlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.fail(w, r, errors.TooLarge(fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit)))
			return
		}
		h.fail(w, r, errors.BadRequestWrap(err, "Multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	format, err := ingest.FormatFromFilename(filename)
	if err != nil {
		h.fail(w, r, errors.ValidationWrap(err, "Only .csv and .xlsx uploads are supported"))
		return
	}

	records, report, err := ingest.Read(r.Context(), file, format)
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "Upload could not be read"))
		return
	}
	if len(records) == 0 {
		h.fail(w, r, errors.Validation("Upload contains no usable records"))
		return
	}

	result, err := h.analytics.Import(r.Context(), filename, records, report)
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to store records"))
		return
	}
	errors.WriteSuccessWithStatus(w, http.StatusCreated, result)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Ping(r.Context()); err != nil {
		h.fail(w, r, errors.ServiceUnavailableWrap(err, "Record source unavailable"))
		return
	}
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version,
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats(r.Context()))
}
