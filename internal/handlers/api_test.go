package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fact(orderID, city, category, label string, ts time.Time, price float64) models.FactRow {
	return models.FactRow{
		OrderID:           orderID,
		CustomerID:        "c-" + orderID,
		CustomerCity:      city,
		PurchaseTimestamp: ts,
		ProductID:         "p-" + category,
		Category:          category,
		CategoryEnglish:   category,
		Price:             price,
		RFMLabel:          label,
	}
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics()
	facts := []models.FactRow{
		fact("o1", "rio de janeiro", "health_beauty", "Champions", time.Date(2017, 1, 2, 10, 0, 0, 0, time.UTC), 100),
		fact("o1", "rio de janeiro", "health_beauty", "Champions", time.Date(2017, 1, 2, 10, 0, 0, 0, time.UTC), 50),
		fact("o2", "sao paulo", "toys", "Loyal", time.Date(2017, 1, 9, 8, 0, 0, 0, time.UTC), 40),
		fact("o3", "curitiba", "toys", "", time.Date(2017, 2, 20, 23, 30, 0, 0, time.UTC), 10),
	}
	geo := []models.Geolocation{
		{City: "rio de janeiro", Latitude: -22.9, Longitude: -43.2},
		{City: "sao paulo", Latitude: -23.5, Longitude: -46.6},
	}
	a.SetData(facts, geo)
	return a
}

func newAPI() *APIHandlers {
	return NewAPIHandlers(createTestAnalytics(), filter.DefaultSentinel, testLogger())
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, into))
}

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNewAPIHandlers_DefaultSentinel(t *testing.T) {
	h := NewAPIHandlers(services.NewAnalytics(), "", testLogger())
	assert.Equal(t, filter.DefaultSentinel, h.sentinel)
}

func TestHandleFilters(t *testing.T) {
	h := newAPI()

	var resp FiltersResponse
	decodeData(t, serve(h.HandleFilters, "/api/filters"), &resp)
	assert.Equal(t, "2017-01-02..2017-02-20", resp.Extent.String())
	assert.Equal(t, resp.Extent, resp.Range)
	assert.Equal(t, filter.DefaultSentinel, resp.Sentinel)
	assert.Equal(t, []string{"health_beauty", "toys"}, resp.Categories)
	assert.Equal(t, []string{"day", "week", "month", "year"}, resp.Granularities)

	var narrowed FiltersResponse
	decodeData(t, serve(h.HandleFilters, "/api/filters?start=2017-01-01&end=2017-01-02"), &narrowed)
	assert.Equal(t, []string{"health_beauty"}, narrowed.Categories)
}

func TestHandleTimeSeries(t *testing.T) {
	h := newAPI()

	var resp TimeSeriesResponse
	decodeData(t, serve(h.HandleTimeSeries, "/api/time-series?granularity=month"), &resp)
	assert.Equal(t, services.Monthly, resp.Granularity)
	require.Len(t, resp.Buckets, 2)
	assert.Equal(t, 2, resp.Buckets[0].Orders)
	assert.InDelta(t, 190.0, resp.Buckets[0].Revenue, 1e-9)
	assert.Equal(t, time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC), resp.Buckets[1].Start.UTC())
}

func TestHandleCities_CategoryFilter(t *testing.T) {
	h := newAPI()

	var resp PerformanceResponse
	decodeData(t, serve(h.HandleCities, "/api/cities?category=toys"), &resp)
	require.Len(t, resp.ByRevenue, 2)
	assert.Equal(t, "sao paulo", resp.ByRevenue[0].Key)
	assert.Equal(t, "curitiba", resp.ByRevenue[1].Key)
}

func TestHandleCities_BlankCategorySelectsNothing(t *testing.T) {
	h := newAPI()

	var resp PerformanceResponse
	decodeData(t, serve(h.HandleCities, "/api/cities?category="), &resp)
	assert.Empty(t, resp.ByOrders)
	assert.Empty(t, resp.ByRevenue)
}

func TestHandleCategories_SentinelWinsOnlyAlone(t *testing.T) {
	h := newAPI()

	var all PerformanceResponse
	decodeData(t, serve(h.HandleCategories, "/api/categories?category=Select+All+Categories"), &all)
	assert.Len(t, all.ByOrders, 2)

	var mixed PerformanceResponse
	decodeData(t, serve(h.HandleCategories, "/api/categories?category=Select+All+Categories&category=toys"), &mixed)
	require.Len(t, mixed.ByOrders, 1)
	assert.Equal(t, "toys", mixed.ByOrders[0].Key)
	assert.Equal(t, 2, mixed.ByOrders[0].Orders)
}

func TestHandleRFM(t *testing.T) {
	h := newAPI()

	var resp RFMResponse
	decodeData(t, serve(h.HandleRFM, "/api/rfm"), &resp)
	require.Len(t, resp.ByCategory, 2)
	assert.Equal(t, models.SegmentCount{Group: "health_beauty", Label: "Champions", Items: 2, Orders: 1, Revenue: 150}, resp.ByCategory[0])
	assert.Len(t, resp.ByTopCity, 2)
}

func TestHandleMap(t *testing.T) {
	h := newAPI()

	var markers []models.CityMarker
	decodeData(t, serve(h.HandleMap, "/api/map"), &markers)
	require.Len(t, markers, 2, "curitiba has no coordinate")
	for _, m := range markers {
		assert.GreaterOrEqual(t, m.Radius, 5.0)
		assert.LessOrEqual(t, m.Radius, 15.0)
	}
	assert.Equal(t, "rio de janeiro", markers[0].City)
	assert.InDelta(t, 15.0, markers[0].Radius, 1e-9)

	var toys []models.CityMarker
	decodeData(t, serve(h.HandleMap, "/api/map?category=toys"), &toys)
	require.Len(t, toys, 1)
	assert.Equal(t, "sao paulo", toys[0].City)
	assert.InDelta(t, 15.0, toys[0].Radius, 1e-9)
}

func TestHandleReport(t *testing.T) {
	h := newAPI()

	var report services.Report
	decodeData(t, serve(h.HandleReport, "/api/report?granularity=week"), &report)
	assert.True(t, report.Unfiltered)
	assert.Equal(t, 4, report.RowCount)
	assert.Equal(t, services.Weekly, report.Granularity)
	assert.Len(t, report.TimeSeries, 3)
}

func TestQueryValidation(t *testing.T) {
	h := newAPI()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
		code    string
	}{
		{"start after end", h.HandleReport, "/api/report?start=2017-02-01&end=2017-01-01", "VALIDATION_ERROR"},
		{"bad start", h.HandleReport, "/api/report?start=01/02/2017", "BAD_REQUEST"},
		{"bad end", h.HandleCities, "/api/cities?end=tomorrow", "BAD_REQUEST"},
		{"unknown granularity", h.HandleTimeSeries, "/api/time-series?granularity=hour", "VALIDATION_ERROR"},
		{"filters bad date", h.HandleFilters, "/api/filters?start=2017-13-01", "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.handler, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestHandleHealth(t *testing.T) {
	var data map[string]string
	decodeData(t, serve(newAPI().HandleHealth, "/health"), &data)
	assert.Equal(t, "healthy", data["status"])
}

func TestHandleStats(t *testing.T) {
	var data map[string]any
	decodeData(t, serve(newAPI().HandleStats, "/admin/stats"), &data)
	assert.EqualValues(t, 4, data["fact_rows"])
	assert.EqualValues(t, 2, data["cities"])
}
