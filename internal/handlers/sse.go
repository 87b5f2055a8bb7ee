package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

const (
	maxTableRows    = 50
	maxCategoryBars = 5
	maxCityBars     = 5
	maxGeoPoints    = 5000
)

var tableFuncs = template.FuncMap{
	"label": categoryLabel,
	"value": formatValue,
}

var trendTableTemplate = template.Must(template.New("trendTable").Funcs(tableFuncs).Parse(`
<div id="trend-content">
<p class="commentary">{{.Commentary}}</p>
<table class="modern-table">
<thead><tr><th>Month</th><th>{{.Data.ValueColumn}}</th></tr></thead>
<tbody>
{{range .Data.Rows}}<tr><td>{{.Month}}</td><td><strong>{{value $.Data.ValueColumn .Value}}</strong></td></tr>
{{end}}</tbody>
</table>
</div>`))

var categoriesTableTemplate = template.Must(template.New("categoriesTable").Funcs(tableFuncs).Parse(`
<div id="categories-content">
<p class="commentary">{{.Commentary}}</p>
<div class="split">
<table class="modern-table">
<thead><tr><th>Top category</th><th>{{.Data.ValueColumn}}</th></tr></thead>
<tbody>
{{range .Data.Top}}<tr><td><span class="category-badge">{{label .ProductType}}</span></td><td><strong>{{value $.Data.ValueColumn .Total}}</strong></td></tr>
{{end}}</tbody>
</table>
<table class="modern-table">
<thead><tr><th>Bottom category</th><th>{{.Data.ValueColumn}}</th></tr></thead>
<tbody>
{{range .Data.Bottom}}<tr><td><span class="category-badge">{{label .ProductType}}</span></td><td><strong>{{value $.Data.ValueColumn .Total}}</strong></td></tr>
{{end}}</tbody>
</table>
</div>
</div>`))

var paymentsTableTemplate = template.Must(template.New("paymentsTable").Funcs(tableFuncs).Parse(`
<div id="payments-content">
<p class="commentary">{{.Commentary}}</p>
<table class="modern-table">
<thead><tr><th>Payment type</th><th>Transactions</th><th>Payment value</th></tr></thead>
<tbody>
{{range .Data}}<tr><td>{{.PaymentType}}</td><td>{{.TransactionCount}}</td><td><strong>{{.PaymentValue.StringFixed 2}}</strong></td></tr>
{{end}}</tbody>
</table>
</div>`))

var citiesTableTemplate = template.Must(template.New("citiesTable").Parse(`
<div id="cities-content">
<p class="commentary">{{.Commentary}}</p>
<table class="modern-table">
<thead><tr><th>City</th><th>Transactions</th></tr></thead>
<tbody>
{{range .Data}}<tr><td>{{.CustomerCity}}</td><td>{{.TransactionAmount}}</td></tr>
{{end}}</tbody>
</table>
</div>`))

var geoSummaryTemplate = template.Must(template.New("geoSummary").Parse(`
<div id="geo-content">
<p class="commentary">{{if .Data.Total}}Showing {{.Data.Plotted}} of {{.Data.Located}} located transactions ({{.Data.Total}} in range).{{else}}{{.Commentary}}{{end}}</p>
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<div id="dashboard-error" class="error-banner">{{.}}</div>`))

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

type templateData struct {
	Data       any
	Commentary string
}

type geoSummary struct {
	Total   int
	Located int
	Plotted int
}

func render(tmpl *template.Template, data any, commentary string) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, templateData{Data: data, Commentary: commentary})
	return buf.String(), err
}

// mappable keeps the points that have coordinates, capped for the browser.
func mappable(points []models.GeoPoint) []models.GeoPoint {
	out := make([]models.GeoPoint, 0, min(len(points), maxGeoPoints))
	for _, p := range points {
		if len(out) == maxGeoPoints {
			break
		}
		if p.Lat.Valid && p.Lng.Valid {
			out = append(out, p)
		}
	}
	return out
}

func countLocated(points []models.GeoPoint) int {
	var n int
	for _, p := range points {
		if p.Lat.Valid && p.Lng.Valid {
			n++
		}
	}
	return n
}

// panel is one dashboard section: chart signals plus an HTML fragment.
type panel struct {
	signals map[string]any
	html    string
}

func (h *SSEHandlers) trendPanel(f filters) (panel, error) {
	data := h.analytics.OrderTrend(f.Range, f.Trend)
	html, err := render(trendTableTemplate, data, CommentaryTrend(data))
	return panel{signals: map[string]any{"trendData": data}, html: html}, err
}

func (h *SSEHandlers) categoriesPanel(f filters) (panel, error) {
	data := h.analytics.Categories(f.Range, f.Category)
	html, err := render(categoriesTableTemplate, data.Head(maxTableRows), CommentaryCategories(data))
	return panel{signals: map[string]any{"categoriesData": data.Head(maxCategoryBars)}, html: html}, err
}

func (h *SSEHandlers) paymentsPanel(f filters) (panel, error) {
	data := h.analytics.Payments(f.Range, f.Payment)
	html, err := render(paymentsTableTemplate, data, CommentaryPayments(data))
	return panel{signals: map[string]any{"paymentsData": data}, html: html}, err
}

func (h *SSEHandlers) citiesPanel(f filters) (panel, error) {
	data := h.analytics.Cities(f.Range)
	html, err := render(citiesTableTemplate, models.Head(data, maxTableRows), CommentaryCities(data))
	return panel{signals: map[string]any{"citiesData": models.Head(data, maxCityBars)}, html: html}, err
}

func (h *SSEHandlers) geoPanel(f filters) (panel, error) {
	data := h.analytics.Geo(f.Range)
	points := mappable(data)
	summary := geoSummary{Total: len(data), Located: countLocated(data), Plotted: len(points)}
	html, err := render(geoSummaryTemplate, summary, noTransactions)
	return panel{signals: map[string]any{"geoData": points}, html: html}, err
}

// serve streams the panels produced by builds. Request errors are shown in the
// dashboard error banner rather than failing the stream.
func (h *SSEHandlers) serve(w http.ResponseWriter, r *http.Request, builds ...func(filters) (panel, error)) {
	f, err := readFilters(r, h.analytics.Bounds())

	sse := datastar.NewSSE(w, r)

	if err != nil {
		h.logger.Warn("invalid dashboard request", "error", err, "path", r.URL.Path)
		h.patchBanner(sse, toAppError(err).Message)
		return
	}

	panels := make([]panel, len(builds))
	var g errgroup.Group
	for i, build := range builds {
		g.Go(func() error {
			p, err := build(f)
			panels[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("render dashboard panel", "error", err, "path", r.URL.Path)
		return
	}

	h.patchBanner(sse, "")
	signals := make(map[string]any)
	for _, p := range panels {
		sse.PatchElements(p.html)
		for k, v := range p.signals {
			signals[k] = v
		}
	}

	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal dashboard signals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
}

func (h *SSEHandlers) patchBanner(sse *datastar.ServerSentEventGenerator, msg string) {
	var buf strings.Builder
	if err := errorTemplate.Execute(&buf, msg); err != nil {
		h.logger.Error("render error banner", "error", err)
		return
	}
	sse.PatchElements(buf.String())
}

func (h *SSEHandlers) HandleTrend(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.trendPanel)
}

func (h *SSEHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.categoriesPanel)
}

func (h *SSEHandlers) HandlePayments(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.paymentsPanel)
}

func (h *SSEHandlers) HandleCities(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.citiesPanel)
}

func (h *SSEHandlers) HandleGeo(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.geoPanel)
}

// HandleRefreshAll recomputes every panel for the current filters.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.trendPanel, h.categoriesPanel, h.paymentsPanel, h.citiesPanel, h.geoPanel)
}
