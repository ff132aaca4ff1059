// Package filter resolves the dashboard's date-range and category filters
// into the subset of fact rows that the charts aggregate.
package filter

import (
	"slices"
	"time"

	"ecommerce-dashboard/internal/models"
)

const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether ts falls between the start of Start and the last
// second of End.
func (r DateRange) Contains(ts time.Time) bool {
	last := r.End.AddDate(0, 0, 1).Add(-time.Second)
	return !ts.Before(r.Start) && !ts.After(last)
}

func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Extent is the range of calendar days covered by the purchase timestamps.
// It is the zero DateRange for an empty table.
func Extent(rows []models.FactRow) DateRange {
	if len(rows) == 0 {
		return DateRange{}
	}
	lo, hi := rows[0].PurchaseTimestamp, rows[0].PurchaseTimestamp
	for _, r := range rows[1:] {
		if r.PurchaseTimestamp.Before(lo) {
			lo = r.PurchaseTimestamp
		}
		if r.PurchaseTimestamp.After(hi) {
			hi = r.PurchaseTimestamp
		}
	}
	return NewDateRange(lo, hi)
}

// Result is a resolved view together with the category lists derived on the
// way.
type Result struct {
	Rows []models.FactRow
	// Universe holds the sorted distinct categories inside the date range.
	Universe []string
	// Effective is the category list the rows were filtered by. It never
	// contains the sentinel.
	Effective []string
	// Unfiltered is set when Rows is the complete fact table.
	Unfiltered bool
}

// Universe returns the sorted distinct non-empty English categories in rows.
func Universe(rows []models.FactRow) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rows {
		if !r.HasCategory() {
			continue
		}
		if _, ok := seen[r.CategoryEnglish]; ok {
			continue
		}
		seen[r.CategoryEnglish] = struct{}{}
		out = append(out, r.CategoryEnglish)
	}
	slices.Sort(out)
	return out
}

// ByDate returns the rows whose purchase timestamp falls inside r.
func ByDate(facts []models.FactRow, r DateRange) []models.FactRow {
	out := make([]models.FactRow, 0)
	for _, row := range facts {
		if r.Contains(row.PurchaseTimestamp) {
			out = append(out, row)
		}
	}
	return out
}

// Resolve applies the date range and category selection to facts. extent
// must be Extent(facts). When the range covers the whole extent and every
// category is selected, the fact table itself is returned, including rows
// without a translated category.
func Resolve(facts []models.FactRow, extent, r DateRange, sel CategorySelection) Result {
	timed := ByDate(facts, r)
	universe := Universe(timed)
	effective := sel.Effective(universe)
	if effective == nil {
		effective = []string{}
	}

	if sel.IsAll() && r.Equal(extent) {
		return Result{Rows: facts, Universe: universe, Effective: effective, Unfiltered: true}
	}

	allowed := make(map[string]struct{}, len(effective))
	for _, c := range effective {
		allowed[c] = struct{}{}
	}

	rows := make([]models.FactRow, 0, len(timed))
	for _, row := range timed {
		if !row.HasCategory() {
			continue
		}
		if _, ok := allowed[row.CategoryEnglish]; ok {
			rows = append(rows, row)
		}
	}

	return Result{Rows: rows, Universe: universe, Effective: effective}
}
