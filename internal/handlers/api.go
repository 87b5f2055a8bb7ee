package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleTrend(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.analytics.Bounds())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	metric, err := aggregate.ParseTrendMetric(r.URL.Query().Get("metric"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := h.analytics.OrderTrend(rng, metric)
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.analytics.Bounds())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	metric, err := aggregate.ParseCategoryMetric(r.URL.Query().Get("metric"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r, -1)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := h.analytics.Categories(rng, metric).Head(limit)
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandlePayments(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.analytics.Bounds())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sortBy, err := aggregate.ParsePaymentSort(r.URL.Query().Get("sort"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := h.analytics.Payments(rng, sortBy)
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleCities(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.analytics.Bounds())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r, -1)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := models.Head(h.analytics.Cities(rng), limit)
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleGeo(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.analytics.Bounds())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := h.analytics.Geo(rng)
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

// HandleReload refetches every configured source. The previous dataset keeps
// serving when the reload fails.
func (h *APIHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.Reload(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("dataset reloaded via admin endpoint",
		"version", h.analytics.Version(),
		"request_id", observability.GetRequestID(r.Context()),
	)
	errors.WriteSuccess(w, h.analytics.Stats())
}
