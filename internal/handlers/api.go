package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics *services.Analytics
	sentinel  string
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, sentinel string, logger *slog.Logger) *APIHandlers {
	if sentinel == "" {
		sentinel = filter.DefaultSentinel
	}
	return &APIHandlers{
		analytics: analytics,
		sentinel:  sentinel,
		logger:    logger,
	}
}

type FiltersResponse struct {
	Extent        filter.DateRange `json:"extent"`
	Range         filter.DateRange `json:"range"`
	Sentinel      string           `json:"sentinel"`
	Categories    []string         `json:"categories"`
	Granularities []string         `json:"granularities"`
}

type TimeSeriesResponse struct {
	Granularity services.Granularity `json:"granularity"`
	Buckets     []models.TimeBucket  `json:"buckets"`
}

type PerformanceResponse struct {
	ByOrders  []models.GroupAggregate `json:"by_orders"`
	ByRevenue []models.GroupAggregate `json:"by_revenue"`
}

type RFMResponse struct {
	ByCategory []models.SegmentCount `json:"by_category"`
	ByTopCity  []models.SegmentCount `json:"by_top_city"`
}

func (h *APIHandlers) query(w http.ResponseWriter, r *http.Request) (services.Query, bool) {
	q, err := paramsFromURL(r).query(h.analytics.Extent(), h.sentinel)
	if err != nil {
		errors.WriteError(r.Context(), w, h.logger, err)
		return services.Query{}, false
	}
	return q, true
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	extent := h.analytics.Extent()
	rng, err := paramsFromURL(r).dateRange(extent)
	if err != nil {
		errors.WriteError(r.Context(), w, h.logger, err)
		return
	}

	data := FiltersResponse{
		Extent:        extent,
		Range:         rng,
		Sentinel:      h.sentinel,
		Categories:    h.analytics.Categories(rng),
		Granularities: []string{string(services.Daily), string(services.Weekly), string(services.Monthly), string(services.Yearly)},
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleTimeSeries(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	res := h.analytics.Resolve(q)
	data := TimeSeriesResponse{
		Granularity: q.Granularity,
		Buckets:     services.TimeSeries(res.Rows, q.Granularity),
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleCities(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	cities := services.CityPerformance(h.analytics.Resolve(q).Rows)
	data := PerformanceResponse{
		ByOrders:  services.TopByOrders(cities),
		ByRevenue: services.TopByRevenue(cities),
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	categories := services.CategoryPerformance(h.analytics.Resolve(q).Rows)
	data := PerformanceResponse{
		ByOrders:  services.TopByOrders(categories),
		ByRevenue: services.TopByRevenue(categories),
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleRFM(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	rows := h.analytics.Resolve(q).Rows
	data := RFMResponse{
		ByCategory: services.RFMByCategory(rows),
		ByTopCity:  services.RFMByTopCity(rows),
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleMap(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.Markers(q), map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}

	report, err := h.analytics.Query(r.Context(), q)
	if err != nil {
		errors.WriteError(r.Context(), w, h.logger, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, report, map[string]string{"Cache-Control": cacheControl})
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
