package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_RouteMethods(t *testing.T) {
	dashboard := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}
	srv := NewServer(services.NewAnalytics(), quietLogger(), &TemplateHandlers{Dashboard: dashboard})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusTeapot},
		{http.MethodGet, "/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/trend", http.StatusOK},
		{http.MethodPost, "/api/trend", http.StatusMethodNotAllowed},
		{http.MethodGet, "/admin/reload", http.StatusMethodNotAllowed},
		{http.MethodPost, "/admin/reload", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestGracefulServer_Shutdown(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: time.Second}}
	gs := NewGracefulServer(&http.Server{Addr: "127.0.0.1:0"}, quietLogger(), cfg)

	var ran atomic.Int32
	gs.RegisterShutdownHook("ok", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	gs.RegisterShutdownHook("broken", func(ctx context.Context) error {
		ran.Add(1)
		return errors.New("flush failed")
	})

	err := gs.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected the failing hook to be reported")
	}
	if got := err.Error(); got != "shutdown hook broken failed: flush failed" {
		t.Errorf("unexpected error %q", got)
	}
	if ran.Load() != 2 {
		t.Errorf("expected both hooks to run, got %d", ran.Load())
	}
}

func TestGracefulServer_ShutdownTimeout(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: time.Second}}
	gs := NewGracefulServer(&http.Server{}, quietLogger(), cfg)

	release := make(chan struct{})
	defer close(release)
	gs.RegisterShutdownHook("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := gs.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
