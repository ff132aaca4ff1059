package services

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

// TopN is the fixed size of every top-N breakdown.
const TopN = 10

const (
	minMarkerRadius   = 5.0
	markerRadiusRange = 10.0
)

type Granularity string

const (
	Daily   Granularity = "day"
	Weekly  Granularity = "week"
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Daily, Weekly, Monthly, Yearly:
		return g, nil
	case "":
		return Daily, nil
	default:
		return "", fmt.Errorf("unknown granularity %q, must be one of: day, week, month, year", s)
	}
}

// BucketStart returns the first instant of the calendar period containing t.
// Weeks start on Monday.
func (g Granularity) BucketStart(t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch g {
	case Weekly:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// group accumulates distinct orders and summed price.
type group struct {
	orders  map[string]struct{}
	items   int
	revenue float64
}

func (g *group) add(r models.FactRow) {
	if g.orders == nil {
		g.orders = make(map[string]struct{})
	}
	g.orders[r.OrderID] = struct{}{}
	g.items++
	g.revenue += r.Price
}

func groupBy[K comparable](rows []models.FactRow, key func(models.FactRow) (K, bool)) map[K]*group {
	groups := make(map[K]*group)
	for _, r := range rows {
		k, ok := key(r)
		if !ok {
			continue
		}
		g := groups[k]
		if g == nil {
			g = &group{}
			groups[k] = g
		}
		g.add(r)
	}
	return groups
}

// TimeSeries buckets rows by calendar period. Only periods with at least one
// row are emitted, ordered by bucket start.
func TimeSeries(rows []models.FactRow, g Granularity) []models.TimeBucket {
	groups := groupBy(rows, func(r models.FactRow) (time.Time, bool) {
		return g.BucketStart(r.PurchaseTimestamp), true
	})

	result := make([]models.TimeBucket, 0, len(groups))
	for start, grp := range groups {
		result = append(result, models.TimeBucket{
			Start:   start,
			Orders:  len(grp.orders),
			Revenue: grp.revenue,
		})
	}
	slices.SortFunc(result, func(a, b models.TimeBucket) int {
		return a.Start.Compare(b.Start)
	})
	return result
}

func aggregateBy(rows []models.FactRow, key func(models.FactRow) string) []models.GroupAggregate {
	groups := groupBy(rows, func(r models.FactRow) (string, bool) {
		k := key(r)
		return k, k != ""
	})

	result := make([]models.GroupAggregate, 0, len(groups))
	for k, grp := range groups {
		result = append(result, models.GroupAggregate{
			Key:     k,
			Orders:  len(grp.orders),
			Revenue: grp.revenue,
		})
	}
	slices.SortFunc(result, func(a, b models.GroupAggregate) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return result
}

// CityPerformance aggregates every customer city, sorted by name.
func CityPerformance(rows []models.FactRow) []models.GroupAggregate {
	return aggregateBy(rows, func(r models.FactRow) string { return r.CustomerCity })
}

// CategoryPerformance aggregates every translated category, sorted by name.
func CategoryPerformance(rows []models.FactRow) []models.GroupAggregate {
	return aggregateBy(rows, func(r models.FactRow) string { return r.CategoryEnglish })
}

func byOrders(a, b models.GroupAggregate) int {
	if c := cmp.Compare(b.Orders, a.Orders); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

func byRevenue(a, b models.GroupAggregate) int {
	if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// topBy sorts a copy of groups with less and keeps the first n.
func topBy(groups []models.GroupAggregate, n int, less func(a, b models.GroupAggregate) int) []models.GroupAggregate {
	sorted := slices.Clone(groups)
	if sorted == nil {
		sorted = []models.GroupAggregate{}
	}
	slices.SortFunc(sorted, less)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func TopByOrders(groups []models.GroupAggregate) []models.GroupAggregate {
	return topBy(groups, TopN, byOrders)
}

func TopByRevenue(groups []models.GroupAggregate) []models.GroupAggregate {
	return topBy(groups, TopN, byRevenue)
}

// segmentedRows keeps rows that carry an RFM label, a category and a city.
func segmentedRows(rows []models.FactRow) []models.FactRow {
	out := make([]models.FactRow, 0)
	for _, r := range rows {
		if r.HasSegment() && r.HasCategory() && r.CustomerCity != "" {
			out = append(out, r)
		}
	}
	return out
}

type segmentKey struct {
	group string
	label string
}

func segmentCounts(rows []models.FactRow, groupOf func(models.FactRow) string) []models.SegmentCount {
	groups := groupBy(rows, func(r models.FactRow) (segmentKey, bool) {
		return segmentKey{group: groupOf(r), label: r.RFMLabel}, true
	})

	result := make([]models.SegmentCount, 0, len(groups))
	for k, grp := range groups {
		result = append(result, models.SegmentCount{
			Group:   k.group,
			Label:   k.label,
			Items:   grp.items,
			Orders:  len(grp.orders),
			Revenue: grp.revenue,
		})
	}
	slices.SortFunc(result, func(a, b models.SegmentCount) int {
		if c := cmp.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return result
}

// RFMByCategory counts order lines per (category, RFM label).
func RFMByCategory(rows []models.FactRow) []models.SegmentCount {
	return segmentCounts(segmentedRows(rows), func(r models.FactRow) string { return r.CategoryEnglish })
}

// RFMByTopCity counts order lines per (city, RFM label) for the TopN cities
// with the most segmented order lines.
func RFMByTopCity(rows []models.FactRow) []models.SegmentCount {
	segmented := segmentedRows(rows)

	lines := make(map[string]int)
	for _, r := range segmented {
		lines[r.CustomerCity]++
	}
	cities := make([]string, 0, len(lines))
	for c := range lines {
		cities = append(cities, c)
	}
	slices.SortFunc(cities, func(a, b string) int {
		if c := cmp.Compare(lines[b], lines[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(cities) > TopN {
		cities = cities[:TopN]
	}

	top := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		top[c] = struct{}{}
	}
	kept := make([]models.FactRow, 0, len(segmented))
	for _, r := range segmented {
		if _, ok := top[r.CustomerCity]; ok {
			kept = append(kept, r)
		}
	}

	return segmentCounts(kept, func(r models.FactRow) string { return r.CustomerCity })
}

// CityCoordinates averages latitude and longitude over every geolocation
// record of a city name.
func CityCoordinates(geo []models.Geolocation) map[string]models.Coordinate {
	type acc struct {
		lat, lng float64
		n        int
	}
	sums := make(map[string]*acc)
	for _, g := range geo {
		if g.City == "" {
			continue
		}
		a := sums[g.City]
		if a == nil {
			a = &acc{}
			sums[g.City] = a
		}
		a.lat += g.Latitude
		a.lng += g.Longitude
		a.n++
	}

	coords := make(map[string]models.Coordinate, len(sums))
	for city, a := range sums {
		coords[city] = models.Coordinate{
			Latitude:  a.lat / float64(a.n),
			Longitude: a.lng / float64(a.n),
		}
	}
	return coords
}

// CityMarkers places each city aggregate that has a coordinate on the map.
// Marker radius grows linearly with the city's share of the largest mapped
// revenue, from 5 to 15.
func CityMarkers(cities []models.GroupAggregate, coords map[string]models.Coordinate) []models.CityMarker {
	markers := make([]models.CityMarker, 0, len(cities))
	maxRevenue := 0.0
	for _, c := range cities {
		coord, ok := coords[c.Key]
		if !ok {
			continue
		}
		markers = append(markers, models.CityMarker{
			City:      c.Key,
			Orders:    c.Orders,
			Revenue:   c.Revenue,
			Latitude:  coord.Latitude,
			Longitude: coord.Longitude,
		})
		maxRevenue = max(maxRevenue, c.Revenue)
	}

	for i := range markers {
		markers[i].Radius = MarkerRadius(markers[i].Revenue, maxRevenue)
	}
	return markers
}

func MarkerRadius(revenue, maxRevenue float64) float64 {
	if maxRevenue <= 0 {
		return minMarkerRadius
	}
	r := minMarkerRadius + markerRadiusRange*revenue/maxRevenue
	if math.IsNaN(r) {
		return minMarkerRadius
	}
	return min(max(r, minMarkerRadius), minMarkerRadius+markerRadiusRange)
}
