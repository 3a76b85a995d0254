package server

import (
	"log/slog"
	"net/http"

	"pharmaflow/internal/handlers"
	"pharmaflow/internal/services"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, maxUploadBytes int64, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger, maxUploadBytes),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API
	s.mux.HandleFunc("GET /api/forecast", s.apiHandlers.HandleForecast)
	s.mux.HandleFunc("GET /api/pricing", s.apiHandlers.HandlePricing)
	s.mux.HandleFunc("GET /api/freight", s.apiHandlers.HandleFreight)
	s.mux.HandleFunc("GET /api/shipment-modes", s.apiHandlers.HandleShipmentModes)
	s.mux.HandleFunc("GET /api/crosstab", s.apiHandlers.HandleCrossTab)
	s.mux.HandleFunc("GET /api/filter-options", s.apiHandlers.HandleFilterOptions)
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("POST /api/records/import", s.apiHandlers.HandleImport)

	// Datastar SSE
	s.mux.HandleFunc("GET /sse/forecast", s.sseHandlers.HandleForecast)
	s.mux.HandleFunc("GET /sse/pricing", s.sseHandlers.HandlePricing)
	s.mux.HandleFunc("GET /sse/freight", s.sseHandlers.HandleFreight)
	s.mux.HandleFunc("GET /sse/shipment-modes", s.sseHandlers.HandleShipmentModes)
	s.mux.HandleFunc("GET /sse/filter-options", s.sseHandlers.HandleFilterOptions)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
