package models

import "time"

// FactRow is one order line enriched with order, customer, product, category
// translation and RFM attributes. CategoryEnglish and RFMLabel come from left
// joins and are empty when no match exists.
type FactRow struct {
	OrderID           string    `json:"order_id"`
	CustomerID        string    `json:"customer_id"`
	CustomerUniqueID  string    `json:"customer_unique_id,omitempty"`
	CustomerCity      string    `json:"customer_city"`
	CustomerState     string    `json:"customer_state,omitempty"`
	PurchaseTimestamp time.Time `json:"order_purchase_timestamp"`
	ProductID         string    `json:"product_id"`
	Category          string    `json:"product_category_name"`
	CategoryEnglish   string    `json:"product_category_name_english,omitempty"`
	Price             float64   `json:"price"`
	FreightValue      float64   `json:"freight_value"`
	RFMLabel          string    `json:"rfm_label,omitempty"`
}

func (r FactRow) HasCategory() bool {
	return r.CategoryEnglish != ""
}

func (r FactRow) HasSegment() bool {
	return r.RFMLabel != ""
}
