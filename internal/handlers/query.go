package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/services"
)

// queryParams are the raw filter inputs, from the URL or from Datastar
// signals.
type queryParams struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Categories  []string `json:"categories"`
	Granularity string   `json:"granularity"`
}

func paramsFromURL(r *http.Request) queryParams {
	q := r.URL.Query()
	return queryParams{
		Start:       q.Get("start"),
		End:         q.Get("end"),
		Categories:  q["category"],
		Granularity: q.Get("granularity"),
	}
}

// dateRange parses start and end, defaulting each to the data extent.
func (p queryParams) dateRange(extent filter.DateRange) (filter.DateRange, error) {
	start, err := parseDay(p.Start, extent.Start)
	if err != nil {
		return filter.DateRange{}, errors.BadRequestWrap(err, "invalid start date, expected YYYY-MM-DD")
	}
	end, err := parseDay(p.End, extent.End)
	if err != nil {
		return filter.DateRange{}, errors.BadRequestWrap(err, "invalid end date, expected YYYY-MM-DD")
	}
	if start.After(end) {
		return filter.DateRange{}, errors.Validation(
			fmt.Sprintf("start date %s is after end date %s", start.Format(filter.DateLayout), end.Format(filter.DateLayout)))
	}
	return filter.NewDateRange(start, end), nil
}

func (p queryParams) query(extent filter.DateRange, sentinel string) (services.Query, error) {
	r, err := p.dateRange(extent)
	if err != nil {
		return services.Query{}, err
	}
	g, err := services.ParseGranularity(p.Granularity)
	if err != nil {
		return services.Query{}, errors.ValidationWrap(err, "invalid granularity")
	}
	return services.Query{
		Range:       r,
		Categories:  filter.ParseSelection(p.Categories, sentinel),
		Granularity: g,
	}, nil
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return time.Parse(filter.DateLayout, value)
}
