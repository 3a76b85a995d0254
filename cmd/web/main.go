package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"pharmaflow/internal/analytics"
	"pharmaflow/internal/config"
	"pharmaflow/internal/middleware"
	"pharmaflow/internal/observability"
	"pharmaflow/internal/server"
	"pharmaflow/internal/services"
	"pharmaflow/internal/store"
	"pharmaflow/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	startTimeout  = 30 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// app is everything main wires together, kept separate so tests can build
// the handler without listening.
type app struct {
	handler     http.Handler
	opened      *store.Opened
	cached      *store.CachedSource
	watcher     *store.FileWatcher
	rateLimiter *middleware.RateLimiter
}

// newApp opens the record source within startTimeout. ctx also bounds the
// file watcher, so it should live as long as the process.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	openCtx, cancel := context.WithTimeout(ctx, startTimeout)
	opened, err := store.Open(openCtx, cfg.Database, logger)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("open record source: %w", err)
	}

	a := &app{opened: opened}
	var source store.Source = opened.Source
	if cfg.Analytics.CacheTTL > 0 {
		a.cached = store.NewCachedSource(opened.Source, cfg.Analytics.CacheTTL)
		source = a.cached
	}

	if opened.Memory != nil && cfg.Database.WatchCSV && cfg.Database.CSVFile != "" {
		onReload := func() {}
		if a.cached != nil {
			onReload = a.cached.Invalidate
		}
		a.watcher, err = store.NewFileWatcher(opened.Memory, cfg.Database.CSVFile, logger, onReload)
		if err != nil {
			_ = opened.Close()
			return nil, fmt.Errorf("watch %s: %w", cfg.Database.CSVFile, err)
		}
		if err := a.watcher.Start(ctx); err != nil {
			_ = opened.Close()
			return nil, fmt.Errorf("watch %s: %w", cfg.Database.CSVFile, err)
		}
	}

	svc := services.NewAnalytics(source,
		services.WithLogger(logger),
		services.WithMetrics(analytics.NewSyntheticMetrics(cfg.Analytics.MetricsSeed)),
	)

	srv := server.NewServer(svc, logger, cfg.Server.MaxUploadBytes, &server.TemplateHandlers{
		Dashboard: handleDashboard,
	})

	a.rateLimiter = middleware.NewRateLimiter(cfg.Security)
	a.handler = middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(logger),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(a.rateLimiter, logger),
	)(srv)

	return a, nil
}

// registerShutdown releases resources in reverse order of acquisition.
func (a *app) registerShutdown(gs *server.GracefulServer) {
	gs.RegisterShutdownHook("record source", func(context.Context) error {
		return a.opened.Close()
	})
	if a.watcher != nil {
		gs.RegisterShutdownHook("file watcher", func(context.Context) error {
			a.watcher.Stop()
			return nil
		})
	}
	gs.RegisterShutdownHook("rate limiter", func(context.Context) error {
		a.rateLimiter.Stop()
		return nil
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"driver", cfg.Database.Driver,
		"addr", cfg.Address(),
	)

	start := time.Now()
	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	logger.Info("record source ready", "source", a.opened.Source.Kind(), "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	a.registerShutdown(gracefulServer)

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
