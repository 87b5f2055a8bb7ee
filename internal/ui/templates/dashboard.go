// Package templates renders the dashboard page shell. Panel content is
// streamed in afterwards by the SSE handlers.
package templates

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Page carries the values the page shell needs before any panel is loaded.
type Page struct {
	Title     string
	StartDate string
	EndDate   string
	Version   string
}

type signals struct {
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	TrendMetric    string `json:"trendMetric"`
	CategoryMetric string `json:"categoryMetric"`
	PaymentSort    string `json:"paymentSort"`
	TrendData      any    `json:"trendData"`
	CategoriesData any    `json:"categoriesData"`
	PaymentsData   any    `json:"paymentsData"`
	CitiesData     any    `json:"citiesData"`
	GeoData        any    `json:"geoData"`
}

type option struct{ value, label string }

var (
	trendOptions    = []option{{"orders", "Orders"}, {"revenue", "Revenue"}, {"payment_value", "Payment value"}}
	categoryOptions = []option{{"items", "Items sold"}, {"revenue", "Revenue"}}
	paymentOptions  = []option{{"count", "Transactions"}, {"value", "Payment value"}}
)

const refreshAll = "@get('/sse/refresh-all')"

func Dashboard(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		initial, err := json.Marshal(signals{
			StartDate:      p.StartDate,
			EndDate:        p.EndDate,
			TrendMetric:    trendOptions[0].value,
			CategoryMetric: categoryOptions[0].value,
			PaymentSort:    paymentOptions[0].value,
		})
		if err != nil {
			return err
		}

		title := p.Title
		if title == "" {
			title = "E-Commerce Dashboard"
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>` + templ.EscapeString(title) + `</title>`)
		b.WriteString(`<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">`)
		b.WriteString(`<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>`)
		b.WriteString(`<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>`)
		b.WriteString(`<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>`)
		b.WriteString(`<style>` + styles + `</style></head>`)

		b.WriteString(`<body data-signals="` + templ.EscapeString(string(initial)) + `" data-init="` + refreshAll + `">`)
		b.WriteString(`<header><h1>` + templ.EscapeString(title) + `</h1>`)
		if p.Version != "" {
			b.WriteString(`<span class="version">dataset ` + templ.EscapeString(p.Version) + `</span>`)
		}
		b.WriteString(`</header>`)

		b.WriteString(`<section class="filters">`)
		dateInput(&b, "Start date", "startDate", p.StartDate, p.EndDate)
		dateInput(&b, "End date", "endDate", p.StartDate, p.EndDate)
		b.WriteString(`</section>`)
		b.WriteString(`<div id="dashboard-error" class="error-banner"></div>`)

		b.WriteString(`<main class="grid">`)
		panel(&b, "Monthly trend", "trend", "trendChart", "trendMetric", trendOptions, "renderTrend($trendData)")
		panel(&b, "Product categories", "categories", "categoriesChart", "categoryMetric", categoryOptions, "renderCategories($categoriesData)")
		panel(&b, "Payment methods", "payments", "paymentsChart", "paymentSort", paymentOptions, "renderPayments($paymentsData, $paymentSort)")
		panel(&b, "Top cities", "cities", "citiesChart", "", nil, "renderCities($citiesData)")
		b.WriteString(`<article class="panel wide"><h2>Customer locations</h2>`)
		b.WriteString(`<div id="geoMap" class="map" data-effect="renderGeo($geoData)"></div>`)
		b.WriteString(`<div id="geo-content"><p class="commentary">Loading...</p></div></article>`)
		b.WriteString(`</main>`)

		b.WriteString(`<script>` + charts + `</script></body></html>`)

		_, err = io.WriteString(w, b.String())
		return err
	})
}

func dateInput(b *strings.Builder, label, signal, lo, hi string) {
	b.WriteString(`<label>` + templ.EscapeString(label))
	b.WriteString(`<input type="date" data-bind="` + signal + `"`)
	b.WriteString(` min="` + templ.EscapeString(lo) + `" max="` + templ.EscapeString(hi) + `"`)
	b.WriteString(` data-on:change="` + refreshAll + `"></label>`)
}

func panel(b *strings.Builder, title, name, canvas, signal string, options []option, effect string) {
	b.WriteString(`<article class="panel"><h2>` + templ.EscapeString(title) + `</h2>`)
	if signal != "" {
		b.WriteString(`<select data-bind="` + signal + `" data-on:change="@get('/sse/` + name + `')">`)
		for _, o := range options {
			b.WriteString(`<option value="` + templ.EscapeString(o.value) + `">` + templ.EscapeString(o.label) + `</option>`)
		}
		b.WriteString(`</select>`)
	}
	b.WriteString(`<canvas id="` + canvas + `" data-effect="` + templ.EscapeString(effect) + `"></canvas>`)
	b.WriteString(`<div id="` + name + `-content"><p class="commentary">Loading...</p></div></article>`)
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6fa;color:#222}
header{display:flex;align-items:baseline;gap:1rem;padding:1rem 2rem;background:#1f2937;color:#fff}
.version{font-size:.8rem;opacity:.7}
.filters{display:flex;gap:1rem;padding:1rem 2rem}
.error-banner:not(:empty){margin:0 2rem;padding:.75rem;background:#fee2e2;color:#991b1b;border-radius:6px}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:1rem;padding:1rem 2rem}
.panel{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.1);overflow:auto;max-height:640px}
.panel.wide{grid-column:1/-1}
.map{height:420px}
.split{display:flex;gap:1rem}
.commentary{font-style:italic;color:#4b5563}
.modern-table{width:100%;border-collapse:collapse;font-size:.9rem}
.modern-table th,.modern-table td{padding:.4rem;border-bottom:1px solid #e5e7eb;text-align:left}
.category-badge{background:#e0e7ff;border-radius:4px;padding:0 .3rem}
`

const charts = `
const charts = {};
function bar(id, type, labels, values, label) {
  const el = document.getElementById(id);
  if (!el || !labels) return;
  if (charts[id]) charts[id].destroy();
  charts[id] = new Chart(el, {type, data: {labels, datasets: [{label, data: values.map(Number)}]}});
}
function renderTrend(t) {
  if (!t || !t.rows) return;
  bar('trendChart', 'line', t.rows.map(r => r.month), t.rows.map(r => r.value), t.value_column);
}
function renderCategories(c) {
  if (!c || !c.top) return;
  bar('categoriesChart', 'bar', c.top.map(r => r.product_type ?? '(uncategorised)'), c.top.map(r => r.total), c.value_column);
}
function renderPayments(p, sort) {
  if (!p) return;
  if (sort === 'value') {
    bar('paymentsChart', 'doughnut', p.map(r => r.payment_type), p.map(r => r.payment_value), 'payment value');
    return;
  }
  bar('paymentsChart', 'doughnut', p.map(r => r.payment_type), p.map(r => r.transaction_count), 'transactions');
}
function renderCities(c) {
  if (!c) return;
  bar('citiesChart', 'bar', c.map(r => r.customer_city), c.map(r => r.transaction_amount), 'transactions');
}
let geoMap, geoLayer;
function renderGeo(points) {
  if (!points || typeof L === 'undefined') return;
  if (!geoMap) {
    geoMap = L.map('geoMap').setView([-14.2, -51.9], 4);
    L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {attribution: '&copy; OpenStreetMap'}).addTo(geoMap);
  }
  if (geoLayer) geoLayer.remove();
  const max = Math.max(1, ...points.map(p => p.transaction_amount));
  geoLayer = L.layerGroup(points.map(p => {
    const w = p.transaction_amount / max;
    return L.circleMarker([p.geolocation_lat, p.geolocation_lng], {
      radius: 3 + 9 * Math.sqrt(w),
      color: 'hsl(' + Math.round(220 - 220 * w) + ',80%,45%)',
      fillOpacity: 0.6,
    }).bindPopup(p.customer_city + ': ' + p.transaction_amount);
  })).addTo(geoMap);
}
`
