package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/models"
)

func refresh(t *testing.T, signals string) string {
	t.Helper()
	h := NewSSEHandlers(createTestAnalytics(), filter.DefaultSentinel, testLogger())

	target := "/sse/refresh"
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.HandleRefresh(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	return w.Body.String()
}

func TestNewSSEHandlers_DefaultSentinel(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(), "", testLogger())
	assert.Equal(t, filter.DefaultSentinel, h.sentinel)
	assert.Equal(t, NewAPIHandlers(h.analytics, "", testLogger()).sentinel, h.sentinel)

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh?datastar="+url.QueryEscape(`{"categories":["Select All Categories"]}`), nil)
	w := httptest.NewRecorder()
	h.HandleRefresh(w, req)
	assert.Contains(t, w.Body.String(), `"rowCount":4`)
}

func TestRenderPerformanceTable(t *testing.T) {
	rows := []models.GroupAggregate{
		{Key: "rio de janeiro", Orders: 2, Revenue: 190},
		{Key: "<b>curitiba</b>", Orders: 1, Revenue: 10.5},
	}

	html, err := renderPerformanceTable("city-table", "City", rows)
	require.NoError(t, err)

	assert.Contains(t, html, `<div id="city-table">`)
	assert.Contains(t, html, "<th>City</th>")
	assert.Contains(t, html, "<td>1</td>")
	assert.Contains(t, html, "R$190.00")
	assert.Contains(t, html, "&lt;b&gt;curitiba&lt;/b&gt;")
}

func TestRenderPerformanceTable_Empty(t *testing.T) {
	html, err := renderPerformanceTable("category-table", "Category", nil)
	require.NoError(t, err)
	assert.Contains(t, html, "No data for the selected filters")
}

func TestHandleRefresh_DefaultSignals(t *testing.T) {
	body := refresh(t, "")

	assert.Contains(t, body, "event: datastar-patch-signals")
	assert.Contains(t, body, `"rowCount":4`)
	assert.Contains(t, body, `"unfiltered":true`)
	assert.Contains(t, body, "event: datastar-patch-elements")
	assert.Contains(t, body, `id="city-table"`)
	assert.Contains(t, body, `id="category-table"`)
}

func TestHandleRefresh_FilteredSignals(t *testing.T) {
	body := refresh(t, `{"start":"2017-01-01","end":"2017-01-31","categories":["toys"],"granularity":"week"}`)

	assert.Contains(t, body, `"rowCount":1`)
	assert.Contains(t, body, `"unfiltered":false`)
	assert.Contains(t, body, "sao paulo")
	assert.NotContains(t, body, "curitiba")
}

func TestHandleRefresh_CategoryOptionsFollowRange(t *testing.T) {
	body := refresh(t, `{"start":"2017-02-01","end":"2017-02-28"}`)
	assert.Contains(t, body, `"categoryOptions":["toys"]`)

	body = refresh(t, "")
	assert.Contains(t, body, `"categoryOptions":["health_beauty","toys"]`)
}

func TestHandleRefresh_InvalidRange(t *testing.T) {
	body := refresh(t, `{"start":"2017-03-01","end":"2017-01-01"}`)

	assert.Contains(t, body, `id="dashboard-error"`)
	assert.Contains(t, body, "is after end date")
	assert.False(t, strings.Contains(body, "datastar-patch-signals"))
}
