// Package templates renders the dashboard page.
package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"ecommerce-dashboard/internal/filter"
)

// Page is the initial state of the dashboard. Chart data arrives later over
// the /sse/refresh stream.
type Page struct {
	Title         string
	Extent        filter.DateRange
	Sentinel      string
	Categories    []string
	Granularities []string
}

type pageView struct {
	Page
	Start       string
	End         string
	SignalsJSON string
}

// Signals is the initial Datastar signal set: the filter inputs bound to the
// form plus empty chart data.
func (p Page) Signals() (string, error) {
	signals := map[string]any{
		"start":           p.Extent.Start.Format(filter.DateLayout),
		"end":             p.Extent.End.Format(filter.DateLayout),
		"categories":      []string{p.Sentinel},
		"granularity":     "day",
		"categoryOptions": p.Categories,
		"rowCount":        0,
		"unfiltered":      true,
		"timeSeries":      []any{},
		"cityOrders":      []any{},
		"cityRevenue":     []any{},
		"categoryOrders":  []any{},
		"categoryRevenue": []any{},
		"rfmByCategory":   []any{},
		"rfmByCity":       []any{},
		"cityMarkers":     []any{},
	}
	raw, err := json.Marshal(signals)
	return string(raw), err
}

func Dashboard(page Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		signals, err := page.Signals()
		if err != nil {
			return err
		}
		if page.Title == "" {
			page.Title = "E-commerce Dashboard"
		}
		return dashboardTemplate.Execute(w, pageView{
			Page:        page,
			Start:       page.Extent.Start.Format(filter.DateLayout),
			End:         page.Extent.End.Format(filter.DateLayout),
			SignalsJSON: signals,
		})
	})
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/leaflet@1.9.4/dist/leaflet.css">
<script src="https://cdn.jsdelivr.net/npm/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chartjs-chart-matrix@2.0.1/dist/chartjs-chart-matrix.min.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6fa; color: #222; }
header { padding: 1rem 2rem; background: #1f2a44; color: #fff; }
form.filters { display: flex; gap: 1rem; flex-wrap: wrap; padding: 1rem 2rem; background: #fff; }
main { display: grid; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); gap: 1rem; padding: 1rem 2rem; }
section { background: #fff; border-radius: 8px; padding: 1rem; }
#map { height: 420px; }
.modern-table { width: 100%; border-collapse: collapse; }
.modern-table th, .modern-table td { padding: .35rem .5rem; border-bottom: 1px solid #eee; text-align: left; }
.error-banner { margin: 0 2rem; padding: .75rem; background: #fdecea; color: #a12622; }
</style>
</head>
<body data-signals="{{.SignalsJSON}}" data-init="@get('/sse/refresh')">
<header>
<h1>{{.Title}}</h1>
<p>Orders <span data-text="$rowCount"></span> order lines in view</p>
</header>
<form class="filters" data-on:change="@get('/sse/refresh')">
<label>Start <input type="date" data-bind:start min="{{.Start}}" max="{{.End}}" value="{{.Start}}"></label>
<label>End <input type="date" data-bind:end min="{{.Start}}" max="{{.End}}" value="{{.End}}"></label>
<label>Categories
<select multiple size="6" data-bind:categories data-sentinel="{{.Sentinel}}" data-effect="renderOptions(el, $categoryOptions, $categories)">
<option value="{{.Sentinel}}" selected>{{.Sentinel}}</option>
{{range .Categories}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
</label>
<label>Granularity
<select data-bind:granularity>
{{range .Granularities}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
</label>
</form>
<div id="dashboard-error"></div>
<main>
<section><h2>Orders and revenue over time</h2><canvas id="time-series-chart" data-effect="renderTimeSeries($timeSeries)"></canvas></section>
<section><h2>Top cities by orders</h2><canvas id="city-orders-chart" data-effect="renderBars('city-orders-chart', $cityOrders, 'orders')"></canvas></section>
<section><h2>Top cities by revenue</h2><canvas id="city-revenue-chart" data-effect="renderBars('city-revenue-chart', $cityRevenue, 'revenue')"></canvas></section>
<section><h2>Top categories by orders</h2><canvas id="category-orders-chart" data-effect="renderBars('category-orders-chart', $categoryOrders, 'orders')"></canvas></section>
<section><h2>Top categories by revenue</h2><canvas id="category-revenue-chart" data-effect="renderBars('category-revenue-chart', $categoryRevenue, 'revenue')"></canvas></section>
<section><h2>RFM segments by category</h2><canvas id="rfm-category-chart" data-effect="renderHeatmap('rfm-category-chart', $rfmByCategory)"></canvas></section>
<section><h2>RFM segments in the top cities</h2><canvas id="rfm-city-chart" data-effect="renderHeatmap('rfm-city-chart', $rfmByCity)"></canvas></section>
<section><h2>Revenue by city</h2><div id="map" data-effect="renderMap($cityMarkers)"></div></section>
<section><h2>City performance</h2><div id="city-table"></div></section>
<section><h2>Category performance</h2><div id="category-table"></div></section>
</main>
<script>
const charts = {};
function renderOptions(select, options, selected) {
  const keep = new Set(selected);
  const values = [select.dataset.sentinel, ...options];
  select.replaceChildren(...values.map(v => {
    const opt = new Option(v, v);
    opt.selected = keep.has(v);
    return opt;
  }));
}
function draw(id, config) {
  if (charts[id]) { charts[id].destroy(); }
  charts[id] = new Chart(document.getElementById(id), config);
}
function renderTimeSeries(buckets) {
  draw('time-series-chart', {
    type: 'line',
    data: {
      labels: buckets.map(b => b.bucket.slice(0, 10)),
      datasets: [
        { label: 'Orders', data: buckets.map(b => b.order_count), yAxisID: 'orders' },
        { label: 'Revenue', data: buckets.map(b => b.revenue), yAxisID: 'revenue' },
      ],
    },
    options: { scales: { orders: { position: 'left' }, revenue: { position: 'right' } } },
  });
}
function renderBars(id, rows, metric) {
  const values = rows.map(r => metric === 'orders' ? r.order_count : r.revenue);
  draw(id, {
    type: 'bar',
    data: { labels: rows.map(r => r.key), datasets: [{ label: metric, data: values }] },
    options: { indexAxis: 'y' },
  });
}
function renderHeatmap(id, cells) {
  const groups = [...new Set(cells.map(c => c.group))];
  const labels = [...new Set(cells.map(c => c.rfm_label))];
  const peak = Math.max(1, ...cells.map(c => c.count));
  draw(id, {
    type: 'matrix',
    data: { datasets: [{
      data: cells.map(c => ({ x: c.rfm_label, y: c.group, v: c.count })),
      backgroundColor: ctx => 'rgba(31, 42, 68, ' + (ctx.raw ? ctx.raw.v / peak : 0) + ')',
      width: ({ chart }) => (chart.chartArea || {}).width / Math.max(1, labels.length) - 1,
      height: ({ chart }) => (chart.chartArea || {}).height / Math.max(1, groups.length) - 1,
    }] },
    options: { scales: { x: { type: 'category', labels }, y: { type: 'category', labels: groups } } },
  });
}
let map, layer;
function renderMap(markers) {
  if (!map) {
    map = L.map('map').setView([-14.2, -51.9], 4);
    L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png').addTo(map);
  }
  if (layer) { layer.remove(); }
  layer = L.layerGroup(markers.map(m =>
    L.circleMarker([m.lat, m.lng], { radius: m.radius }).bindPopup(
      m.customer_city + ': ' + m.order_count + ' orders, R$' + m.revenue.toFixed(2)))).addTo(map);
}
</script>
</body>
</html>
`))
