package models

import "time"

type TimeBucket struct {
	Start   time.Time `json:"bucket"`
	Orders  int       `json:"order_count"`
	Revenue float64   `json:"revenue"`
}

type GroupAggregate struct {
	Key     string  `json:"key"`
	Orders  int     `json:"order_count"`
	Revenue float64 `json:"revenue"`
}

// SegmentCount is the distribution of one RFM label inside a group (a
// category or a city). Items counts order lines, matching a row-size group by.
type SegmentCount struct {
	Group   string  `json:"group"`
	Label   string  `json:"rfm_label"`
	Items   int     `json:"count"`
	Orders  int     `json:"order_count"`
	Revenue float64 `json:"revenue"`
}

type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type CityMarker struct {
	City      string  `json:"customer_city"`
	Orders    int     `json:"order_count"`
	Revenue   float64 `json:"revenue"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Radius    float64 `json:"radius"`
}
