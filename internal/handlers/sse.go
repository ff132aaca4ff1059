package handlers

import (
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

var performanceTableTemplate = template.Must(template.New("performanceTable").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`
<div id="{{.ID}}">
<table class="modern-table">
<thead><tr><th>#</th><th>{{.Label}}</th><th>Orders</th><th>Revenue</th></tr></thead>
<tbody>
{{range $i, $row := .Rows}}<tr>
<td>{{inc $i}}</td>
<td>{{$row.Key}}</td>
<td>{{$row.Orders}}</td>
<td><strong>R${{printf "%.2f" $row.Revenue}}</strong></td>
</tr>{{else}}<tr><td colspan="4" class="empty">No data for the selected filters</td></tr>{{end}}
</tbody>
</table>
</div>`))

var errorTemplate = template.Must(template.New("error").Parse(
	`<div id="dashboard-error" class="error-banner">{{.}}</div>`))

const clearedError = `<div id="dashboard-error"></div>`

type SSEHandlers struct {
	analytics *services.Analytics
	sentinel  string
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, sentinel string, logger *slog.Logger) *SSEHandlers {
	if sentinel == "" {
		sentinel = filter.DefaultSentinel
	}
	return &SSEHandlers{
		analytics: analytics,
		sentinel:  sentinel,
		logger:    logger,
	}
}

type tableData struct {
	ID    string
	Label string
	Rows  []models.GroupAggregate
}

func renderPerformanceTable(id, label string, rows []models.GroupAggregate) (string, error) {
	var buf strings.Builder
	err := performanceTableTemplate.Execute(&buf, tableData{ID: id, Label: label, Rows: rows})
	return buf.String(), err
}

// chartSignals is the signal patch the page's charts render from.
func chartSignals(report *services.Report) map[string]any {
	return map[string]any{
		"categoryOptions": report.Universe,
		"rowCount":        report.RowCount,
		"unfiltered":      report.Unfiltered,
		"timeSeries":      report.TimeSeries,
		"cityOrders":      report.TopCitiesByOrders,
		"cityRevenue":     report.TopCitiesByRevenue,
		"categoryOrders":  report.TopCategoriesByOrders,
		"categoryRevenue": report.TopCategoriesByRevenue,
		"rfmByCategory":   report.RFMByCategory,
		"rfmByCity":       report.RFMByTopCity,
		"cityMarkers":     report.CityMarkers,
	}
}

// HandleRefresh recomputes the dashboard for the filter signals and patches
// every chart signal and both performance tables.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var params queryParams
	if err := datastar.ReadSignals(r, &params); err != nil {
		h.logger.Warn("read signals", "error", err)
		params = queryParams{}
	}

	sse := datastar.NewSSE(w, r)

	q, err := params.query(h.analytics.Extent(), h.sentinel)
	if err != nil {
		h.patchError(sse, err)
		return
	}

	report, err := h.analytics.Query(r.Context(), q)
	if err != nil {
		h.patchError(sse, err)
		return
	}

	signals, err := json.Marshal(chartSignals(report))
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Debug("patch signals", "error", err)
		return
	}

	cityTable, err := renderPerformanceTable("city-table", "City", report.TopCitiesByRevenue)
	if err != nil {
		h.logger.Error("render city table", "error", err)
		return
	}
	categoryTable, err := renderPerformanceTable("category-table", "Category", report.TopCategoriesByRevenue)
	if err != nil {
		h.logger.Error("render category table", "error", err)
		return
	}

	for _, html := range []string{clearedError, cityTable, categoryTable} {
		if err := sse.PatchElements(html); err != nil {
			h.logger.Debug("patch elements", "error", err)
			return
		}
	}
}

func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, err error) {
	message := "An unexpected error occurred"
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}
	h.logger.Warn("dashboard refresh rejected", "error", err)

	var buf strings.Builder
	if execErr := errorTemplate.Execute(&buf, message); execErr != nil {
		h.logger.Error("render error banner", "error", execErr)
		return
	}
	if patchErr := sse.PatchElements(buf.String()); patchErr != nil {
		h.logger.Debug("patch elements", "error", patchErr)
	}
}
