package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

func serveSSE(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func withSignals(path, signals string) string {
	return path + "?" + url.Values{"datastar": {signals}}.Encode()
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_Panels(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name      string
		handler   http.HandlerFunc
		signalKey string
		elementID string
		content   []string
	}{
		{"trend", handlers.HandleTrend, "trendData", "trend-content", []string{"<td>2023-01</td>", "<td>2023-02</td>"}},
		{"categories", handlers.HandleCategories, "categoriesData", "categories-content", []string{"telephony", "(uncategorised)"}},
		{"payments", handlers.HandlePayments, "paymentsData", "payments-content", []string{"credit_card", "1014.99"}},
		{"cities", handlers.HandleCities, "citiesData", "cities-content", []string{"curitiba", "sao paulo"}},
		{"geo", handlers.HandleGeo, "geoData", "geo-content", []string{"Showing 3 of 3 located transactions (4 in range)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveSSE(tt.handler, "/sse/"+tt.name)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("expected cache-control 'no-cache', got %q", cc)
			}

			body := w.Body.String()
			if !strings.Contains(body, tt.signalKey) {
				t.Errorf("response should contain %q signal", tt.signalKey)
			}
			if !strings.Contains(body, `id="`+tt.elementID+`"`) {
				t.Errorf("response should patch #%s", tt.elementID)
			}
			if !strings.Contains(body, `id="dashboard-error"`) {
				t.Error("response should clear the error banner")
			}
			for _, c := range tt.content {
				if !strings.Contains(body, c) {
					t.Errorf("response should contain %q", c)
				}
			}
		})
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := serveSSE(handlers.HandleRefreshAll, "/sse/refresh-all")
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()
	for _, signal := range []string{"trendData", "categoriesData", "paymentsData", "citiesData", "geoData"} {
		if !strings.Contains(body, signal) {
			t.Errorf("response should contain %q signal", signal)
		}
	}
	for _, id := range []string{"trend-content", "categories-content", "payments-content", "cities-content", "geo-content"} {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("response should patch #%s", id)
		}
	}
}

func TestSSEHandlers_DateSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	target := withSignals("/sse/trend", `{"startDate":"2023-02-01","endDate":"2023-02-28","trendMetric":"revenue"}`)
	body := serveSSE(handlers.HandleTrend, target).Body.String()

	if !strings.Contains(body, "<td>2023-02</td>") {
		t.Error("expected February inside the selected range")
	}
	if strings.Contains(body, "<td>2023-01</td>") {
		t.Error("January is outside the selected range")
	}
	if !strings.Contains(body, "74.98") {
		t.Error("expected the revenue metric from the trendMetric signal")
	}
}

func TestSSEHandlers_QueryFallback(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	body := serveSSE(handlers.HandleCities, "/sse/cities?start=2023-01-01&end=2023-01-31").Body.String()
	if !strings.Contains(body, "sao paulo") {
		t.Error("expected sao paulo in January")
	}
	if strings.Contains(body, "curitiba") {
		t.Error("curitiba has no January transactions")
	}
}

func TestSSEHandlers_InvalidFilters(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name   string
		target string
	}{
		{"bad date signal", withSignals("/sse/refresh-all", `{"startDate":"01/02/2023"}`)},
		{"bad metric signal", withSignals("/sse/refresh-all", `{"trendMetric":"profit"}`)},
		{"malformed signals", withSignals("/sse/refresh-all", `{"startDate":`)},
		{"bad query date", "/sse/refresh-all?end=yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveSSE(handlers.HandleRefreshAll, tt.target)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, `id="dashboard-error"`) {
				t.Error("response should patch the error banner")
			}
			if strings.Contains(body, "trendData") {
				t.Error("no chart data should be sent for an invalid request")
			}
		})
	}
}

func TestSSEHandlers_EmptyRange(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	body := serveSSE(handlers.HandleRefreshAll, "/sse/refresh-all?start=2030-01-01&end=2030-12-31").Body.String()
	if got := strings.Count(body, noTransactions); got != 5 {
		t.Errorf("expected every panel to report an empty range, got %d", got)
	}
}

func TestRender_TableLimits(t *testing.T) {
	cities := make([]models.CityTransactions, 75)
	for i := range cities {
		cities[i] = models.CityTransactions{CustomerCity: "city", TransactionAmount: 75 - i}
	}

	html, err := render(citiesTableTemplate, models.Head(cities, maxTableRows), "")
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}

	rowCount := strings.Count(html, "<tr>") - 1 // header
	if rowCount != maxTableRows {
		t.Errorf("expected %d rows, got %d", maxTableRows, rowCount)
	}
}

func TestSSEHandlers_CategoriesTableNotCutToChart(t *testing.T) {
	records := make([]models.Record, 8)
	for i := range records {
		records[i] = models.Record{
			OrderID:         fmt.Sprintf("o%d", i),
			PurchasedAt:     time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
			ProductCategory: null.StringFrom(fmt.Sprintf("category_%d", i)),
			OrderItemID:     int64(i + 1),
			Price:           decimal.NewFromInt(int64(10 * (i + 1))),
			PaymentType:     "credit_card",
			PaymentValue:    decimal.NewFromInt(int64(10 * (i + 1))),
			CustomerCity:    "recife",
		}
	}
	analytics := services.NewAnalytics()
	analytics.SetData(records)
	handlers := NewSSEHandlers(analytics, testLogger())

	body := serveSSE(handlers.HandleCategories, "/sse/categories").Body.String()
	if got := strings.Count(body, `class="category-badge"`); got != 16 {
		t.Errorf("expected all 8 categories in both tables, got %d badges", got)
	}

	p, err := handlers.categoriesPanel(filters{Range: analytics.Bounds()})
	if err != nil {
		t.Fatalf("categoriesPanel() failed: %v", err)
	}
	chart := p.signals["categoriesData"].(models.CategoryRanking)
	if len(chart.Top) != maxCategoryBars || len(chart.Bottom) != maxCategoryBars {
		t.Errorf("expected chart signal cut to %d, got %d/%d", maxCategoryBars, len(chart.Top), len(chart.Bottom))
	}
}

func TestRender_EscapesLabels(t *testing.T) {
	ranking := models.CategoryRanking{
		ValueColumn: "revenue",
		Top: []models.CategoryRow{
			{ProductType: null.StringFrom("<script>"), Total: decimal.RequireFromString("10")},
		},
	}

	html, err := render(categoriesTableTemplate, ranking, "")
	if err != nil {
		t.Fatalf("render() failed: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("category labels must be escaped")
	}
	if !strings.Contains(html, "10.00") {
		t.Error("revenue should be rendered with two decimals")
	}
}

func TestMappable(t *testing.T) {
	points := make([]models.GeoPoint, maxGeoPoints+10)
	for i := range points {
		points[i] = models.GeoPoint{Lat: null.FloatFrom(1), Lng: null.FloatFrom(2)}
	}
	points[0].Lat = null.Float{}

	got := mappable(points)
	if len(got) != maxGeoPoints {
		t.Errorf("expected %d points, got %d", maxGeoPoints, len(got))
	}
	if !got[0].Lat.Valid {
		t.Error("points without coordinates should be skipped")
	}
}
