package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/join"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/observability"
)

// Context is the loaded, joined dataset. It is built once and only read
// afterwards; every query recomputes from it.
type Context struct {
	Facts       []models.FactRow
	Extent      filter.DateRange
	Coordinates map[string]models.Coordinate
	JoinStats   join.Stats
	LoadedAt    time.Time
}

func NewContext(facts []models.FactRow, geo []models.Geolocation, stats join.Stats) *Context {
	if facts == nil {
		facts = []models.FactRow{}
	}
	return &Context{
		Facts:       facts,
		Extent:      filter.Extent(facts),
		Coordinates: CityCoordinates(geo),
		JoinStats:   stats,
		LoadedAt:    time.Now(),
	}
}

// Query is one dashboard interaction. A zero Range means the full extent.
type Query struct {
	Range       filter.DateRange
	Categories  filter.CategorySelection
	Granularity Granularity
}

type Report struct {
	Range       filter.DateRange `json:"range"`
	Extent      filter.DateRange `json:"extent"`
	Granularity Granularity      `json:"granularity"`
	Universe    []string         `json:"categories"`
	Effective   []string         `json:"effective_categories"`
	Unfiltered  bool             `json:"unfiltered"`
	RowCount    int              `json:"row_count"`

	TimeSeries             []models.TimeBucket     `json:"time_series"`
	TopCitiesByOrders      []models.GroupAggregate `json:"top_cities_by_orders"`
	TopCitiesByRevenue     []models.GroupAggregate `json:"top_cities_by_revenue"`
	TopCategoriesByOrders  []models.GroupAggregate `json:"top_categories_by_orders"`
	TopCategoriesByRevenue []models.GroupAggregate `json:"top_categories_by_revenue"`
	RFMByCategory          []models.SegmentCount   `json:"rfm_by_category"`
	RFMByTopCity           []models.SegmentCount   `json:"rfm_by_top_city"`
	CityMarkers            []models.CityMarker     `json:"city_markers"`
}

type Analytics struct {
	mu     sync.RWMutex
	data   *Context
	logger *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		data:   NewContext(nil, nil, join.Stats{}),
		logger: slog.Default(),
	}
}

// WithLogger replaces the logger used for load and query logging.
func (a *Analytics) WithLogger(logger *slog.Logger) *Analytics {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// SetData installs already joined fact rows.
func (a *Analytics) SetData(facts []models.FactRow, geo []models.Geolocation) {
	data := NewContext(facts, geo, join.Stats{OrderItems: len(facts), Rows: len(facts)})

	a.mu.Lock()
	a.data = data
	a.mu.Unlock()
}

// LoadFromDir reads the input tables, joins them and installs the result.
func (a *Analytics) LoadFromDir(ctx context.Context, paths dataset.Paths, opts join.Options) error {
	start := time.Now()

	tables, err := dataset.Load(ctx, paths, a.logger)
	if err != nil {
		return err
	}

	facts, stats, err := join.Build(tables, opts)
	if err != nil {
		return fmt.Errorf("join dataset: %w", err)
	}

	data := NewContext(facts, tables.Geolocation, stats)

	a.mu.Lock()
	a.data = data
	a.mu.Unlock()

	observability.FactRows.Set(float64(len(facts)))
	a.logger.Info("fact table built",
		"rows", stats.Rows,
		"order_items", stats.OrderItems,
		"excluded", stats.Excluded(),
		"untranslated", stats.Untranslated,
		"unsegmented", stats.Unsegmented,
		"extent", data.Extent.String(),
		"cities_with_coordinates", len(data.Coordinates),
		"duration", time.Since(start),
	)
	if stats.DuplicateLabels > 0 || stats.DuplicateSegments > 0 {
		a.logger.Warn("duplicate keys in left-joined tables, first occurrence kept",
			"translations", stats.DuplicateLabels,
			"rfm", stats.DuplicateSegments,
		)
	}

	return nil
}

func (a *Analytics) Context() *Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data
}

func (a *Analytics) Extent() filter.DateRange {
	return a.Context().Extent
}

// Categories lists the categories observable inside r, for the multiselect.
func (a *Analytics) Categories(r filter.DateRange) []string {
	data := a.Context()
	if r.IsZero() {
		r = data.Extent
	}
	return filter.Universe(filter.ByDate(data.Facts, r))
}

// Resolve applies the query's filters without aggregating.
func (a *Analytics) Resolve(q Query) filter.Result {
	data := a.Context()
	r := q.Range
	if r.IsZero() {
		r = data.Extent
	}
	return filter.Resolve(data.Facts, data.Extent, r, q.Categories)
}

// Markers computes the city markers for q. Rows and coordinates come from
// the same load.
func (a *Analytics) Markers(q Query) []models.CityMarker {
	data := a.Context()
	r := q.Range
	if r.IsZero() {
		r = data.Extent
	}
	res := filter.Resolve(data.Facts, data.Extent, r, q.Categories)
	return CityMarkers(CityPerformance(res.Rows), data.Coordinates)
}

// Query resolves the filters and computes every chart of the dashboard.
func (a *Analytics) Query(ctx context.Context, q Query) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, span := observability.StartSpan(ctx, "dashboard.recompute")
	defer span.Finish()

	start := time.Now()
	data := a.Context()

	r := q.Range
	if r.IsZero() {
		r = data.Extent
	}
	granularity := q.Granularity
	if granularity == "" {
		granularity = Daily
	}

	res := filter.Resolve(data.Facts, data.Extent, r, q.Categories)
	cities := CityPerformance(res.Rows)
	categories := CategoryPerformance(res.Rows)

	report := &Report{
		Range:       r,
		Extent:      data.Extent,
		Granularity: granularity,
		Universe:    res.Universe,
		Effective:   res.Effective,
		Unfiltered:  res.Unfiltered,
		RowCount:    len(res.Rows),

		TimeSeries:             TimeSeries(res.Rows, granularity),
		TopCitiesByOrders:      TopByOrders(cities),
		TopCitiesByRevenue:     TopByRevenue(cities),
		TopCategoriesByOrders:  TopByOrders(categories),
		TopCategoriesByRevenue: TopByRevenue(categories),
		RFMByCategory:          RFMByCategory(res.Rows),
		RFMByTopCity:           RFMByTopCity(res.Rows),
		CityMarkers:            CityMarkers(cities, data.Coordinates),
	}

	span.SetTag("granularity", string(granularity))
	span.SetTag("rows", strconv.Itoa(report.RowCount))
	observability.RecomputeDuration.WithLabelValues(string(granularity)).Observe(time.Since(start).Seconds())
	observability.ResolvedRows.Observe(float64(report.RowCount))
	a.logger.Debug("dashboard recomputed",
		"range", r.String(),
		"categories", q.Categories.String(),
		"granularity", granularity,
		"rows", report.RowCount,
		"unfiltered", report.Unfiltered,
		"duration", time.Since(start),
	)

	return report, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	data := a.Context()

	return map[string]any{
		"fact_rows":   len(data.Facts),
		"loaded_at":   data.LoadedAt,
		"extent":      data.Extent,
		"cities":      len(data.Coordinates),
		"join":        data.JoinStats,
		"categories":  len(filter.Universe(data.Facts)),
		"empty_table": len(data.Facts) == 0,
	}
}
