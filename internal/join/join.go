// Package join builds the denormalized fact table from the loaded inputs.
package join

import (
	"errors"
	"fmt"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/models"
)

// ErrIntegrity reports a join that would duplicate or lose order lines.
var ErrIntegrity = errors.New("join integrity violation")

// Stats describes how the order-item rows fared through the joins.
type Stats struct {
	OrderItems        int `json:"order_items"`
	Rows              int `json:"rows"`
	UnknownProduct    int `json:"excluded_unknown_product"`
	UnknownOrder      int `json:"excluded_unknown_order"`
	UnknownCustomer   int `json:"excluded_unknown_customer"`
	Untranslated      int `json:"untranslated"`
	Unsegmented       int `json:"unsegmented"`
	DuplicateLabels   int `json:"duplicate_translation_keys"`
	DuplicateSegments int `json:"duplicate_rfm_keys"`
}

func (s Stats) Excluded() int {
	return s.UnknownProduct + s.UnknownOrder + s.UnknownCustomer
}

type Options struct {
	// Strict turns any inner-join exclusion into an integrity error.
	Strict bool
}

// Build joins order items with products, orders with customers, the two
// results on order id, then left joins category translations and RFM
// segments. Exactly one fact row is emitted per surviving order item, in
// order-item file order.
func Build(tables *dataset.Tables, opts Options) ([]models.FactRow, Stats, error) {
	stats := Stats{OrderItems: len(tables.OrderItems)}

	products, err := uniqueIndex(tables.Products, "products", func(p models.Product) string { return p.ProductID })
	if err != nil {
		return nil, stats, err
	}
	orders, err := uniqueIndex(tables.Orders, "orders", func(o models.Order) string { return o.OrderID })
	if err != nil {
		return nil, stats, err
	}
	customers, err := uniqueIndex(tables.Customers, "customers", func(c models.Customer) string { return c.CustomerID })
	if err != nil {
		return nil, stats, err
	}

	translations, dupLabels := firstIndex(tables.Translations, func(t models.CategoryTranslation) string { return t.CategoryName })
	segments, dupSegments := firstIndex(tables.RFM, func(s models.RFMSegment) string { return s.CustomerID })
	stats.DuplicateLabels = dupLabels
	stats.DuplicateSegments = dupSegments

	rows := make([]models.FactRow, 0, len(tables.OrderItems))
	for _, item := range tables.OrderItems {
		product, ok := products[item.ProductID]
		if !ok {
			stats.UnknownProduct++
			continue
		}
		order, ok := orders[item.OrderID]
		if !ok {
			stats.UnknownOrder++
			continue
		}
		customer, ok := customers[order.CustomerID]
		if !ok {
			stats.UnknownCustomer++
			continue
		}

		row := models.FactRow{
			OrderID:           order.OrderID,
			CustomerID:        customer.CustomerID,
			CustomerUniqueID:  customer.CustomerUniqueID,
			CustomerCity:      customer.City,
			CustomerState:     customer.State,
			PurchaseTimestamp: order.PurchaseTimestamp,
			ProductID:         product.ProductID,
			Category:          product.CategoryName,
			Price:             item.Price,
			FreightValue:      item.FreightValue,
		}

		// Missing raw categories never match a translation, as with a null key.
		if tr, ok := translations[product.CategoryName]; ok && product.CategoryName != "" {
			row.CategoryEnglish = tr.CategoryNameEnglish
		}
		if !row.HasCategory() {
			stats.Untranslated++
		}

		if seg, ok := segments[customer.CustomerID]; ok {
			row.RFMLabel = seg.Label
		}
		if !row.HasSegment() {
			stats.Unsegmented++
		}

		rows = append(rows, row)
	}
	stats.Rows = len(rows)

	if stats.Rows != stats.OrderItems-stats.Excluded() {
		return nil, stats, fmt.Errorf("%w: %d fact rows from %d order items with %d excluded",
			ErrIntegrity, stats.Rows, stats.OrderItems, stats.Excluded())
	}
	if opts.Strict && stats.Excluded() > 0 {
		return nil, stats, fmt.Errorf("%w: %d order items excluded (unknown product %d, order %d, customer %d)",
			ErrIntegrity, stats.Excluded(), stats.UnknownProduct, stats.UnknownOrder, stats.UnknownCustomer)
	}

	return rows, stats, nil
}

// uniqueIndex indexes an inner-joined lookup table; a repeated key would
// multiply the rows that reference it.
func uniqueIndex[T any](rows []T, table string, key func(T) string) (map[string]T, error) {
	index := make(map[string]T, len(rows))
	for _, row := range rows {
		k := key(row)
		if _, dup := index[k]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q in %s", ErrIntegrity, k, table)
		}
		index[k] = row
	}
	return index, nil
}

// firstIndex keeps the first row per key and returns how many were dropped.
func firstIndex[T any](rows []T, key func(T) string) (map[string]T, int) {
	index := make(map[string]T, len(rows))
	dropped := 0
	for _, row := range rows {
		k := key(row)
		if _, dup := index[k]; dup {
			dropped++
			continue
		}
		index[k] = row
	}
	return index, dropped
}
