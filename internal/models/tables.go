package models

import "time"

// Rows of the seven input tables, reduced to the columns the dashboard uses.

type Order struct {
	OrderID           string
	CustomerID        string
	Status            string
	PurchaseTimestamp time.Time
}

type OrderItem struct {
	OrderID      string
	OrderItemID  string
	ProductID    string
	Price        float64
	FreightValue float64
}

type Customer struct {
	CustomerID       string
	CustomerUniqueID string
	City             string
	State            string
}

type Product struct {
	ProductID    string
	CategoryName string
}

type Geolocation struct {
	City      string
	Latitude  float64
	Longitude float64
}

type CategoryTranslation struct {
	CategoryName        string
	CategoryNameEnglish string
}

type RFMSegment struct {
	CustomerID string
	Label      string
}
