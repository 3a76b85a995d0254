package server

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pharmaflow/internal/config"
	"pharmaflow/internal/services"
	"pharmaflow/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer() *Server {
	svc := services.NewAnalytics(store.NewMemorySource(store.SampleRecords(40, 7)...),
		services.WithLogger(testLogger()))
	dashboard := func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("dashboard")) }
	return NewServer(svc, testLogger(), 1<<20, &TemplateHandlers{Dashboard: dashboard})
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/admin/stats", http.StatusOK},
		{http.MethodGet, "/api/freight", http.StatusOK},
		{http.MethodGet, "/api/shipment-modes", http.StatusOK},
		{http.MethodGet, "/api/crosstab?dimension=vendor", http.StatusOK},
		{http.MethodGet, "/api/filter-options", http.StatusOK},
		{http.MethodGet, "/api/overview", http.StatusOK},
		{http.MethodGet, "/sse/filter-options", http.StatusOK},
		{http.MethodPost, "/api/records/import", http.StatusBadRequest},
		{http.MethodPost, "/api/freight", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGracefulServer_ShutdownOrder(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	httpServer := &http.Server{Handler: newTestServer()}
	gs := NewGracefulServer(httpServer, testLogger(), config.ServerConfig{ShutdownTimeout: 5 * time.Second})

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	gs.RegisterShutdownHook("database", record("database"))
	gs.RegisterShutdownHook("watcher", record("watcher"))
	gs.RegisterShutdownHook("failing", func(context.Context) error { return stderrors.New("boom") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected the failing hook to surface")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if len(order) != 2 || order[0] != "watcher" || order[1] != "database" {
		t.Errorf("expected hooks in reverse registration order, got %v", order)
	}
}
