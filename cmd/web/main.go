package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/loader"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	dataLoadTimeout = 2 * time.Minute
	cacheMaxAge     = "public, max-age=300"
)

// dashboardHandler renders the page shell with the date pickers preset to the
// dataset bounds.
func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		bounds := analytics.Bounds()
		page := templates.Page{
			StartDate: bounds.Start.Format(models.DateLayout),
			EndDate:   bounds.End.Format(models.DateLayout),
			Version:   analytics.Version(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
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
		"config", cfg,
	)

	ld := loader.New(loader.Options{
		FetchTimeout:   cfg.Data.FetchTimeout,
		MaxConcurrent:  cfg.Data.MaxConcurrentFetch,
		SnapshotDir:    cfg.Data.SnapshotDir,
		SnapshotMaxAge: cfg.Data.SnapshotMaxAge,
		Logger:         logger,
	})

	analytics := services.NewAnalytics()
	ctx, cancel := context.WithTimeout(context.Background(), dataLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromSources(ctx, ld, cfg.Data.Sources...); err != nil {
		logger.Error("failed to load data sources", "error", err)
		os.Exit(1)
	}
	logger.Info("data sources loaded successfully",
		"duration", time.Since(start),
		"sources", len(cfg.Data.Sources),
	)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		stats := analytics.Stats()
		logger.Info("shutting down analytics service",
			"version", stats["version"],
			"cache_hits", stats["cache_hits"],
			"cache_misses", stats["cache_misses"],
			"reloads", stats["reloads"],
		)
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
