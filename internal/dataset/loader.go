// Package dataset reads the seven input tables of the dashboard.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-dashboard/internal/models"
)

// Column names shared with the join engine.
const (
	ColOrderID           = "order_id"
	ColCustomerID        = "customer_id"
	ColOrderStatus       = "order_status"
	ColPurchaseTimestamp = "order_purchase_timestamp"
	ColOrderItemID       = "order_item_id"
	ColProductID         = "product_id"
	ColPrice             = "price"
	ColFreightValue      = "freight_value"
	ColCustomerUniqueID  = "customer_unique_id"
	ColCustomerCity      = "customer_city"
	ColCustomerState     = "customer_state"
	ColCategoryName      = "product_category_name"
	ColCategoryEnglish   = "product_category_name_english"
	ColGeoCity           = "geolocation_city"
	ColGeoLat            = "geolocation_lat"
	ColGeoLng            = "geolocation_lng"
	ColRFMLabel          = "RFM_Label"
)

// Paths names the input files. Relative paths are resolved against a data
// directory with Under.
type Paths struct {
	Orders       string
	OrderItems   string
	Customers    string
	Products     string
	Geolocation  string
	Translations string
	RFM          string
}

func (p Paths) Under(dir string) Paths {
	join := func(name string) string {
		if name == "" || filepath.IsAbs(name) || dir == "" {
			return name
		}
		return filepath.Join(dir, name)
	}
	return Paths{
		Orders:       join(p.Orders),
		OrderItems:   join(p.OrderItems),
		Customers:    join(p.Customers),
		Products:     join(p.Products),
		Geolocation:  join(p.Geolocation),
		Translations: join(p.Translations),
		RFM:          join(p.RFM),
	}
}

// Tables holds the parsed inputs. It is never modified after Load returns.
type Tables struct {
	Orders       []models.Order
	OrderItems   []models.OrderItem
	Customers    []models.Customer
	Products     []models.Product
	Geolocation  []models.Geolocation
	Translations []models.CategoryTranslation
	RFM          []models.RFMSegment
}

// Load reads all seven tables concurrently. Any missing file, missing column
// or malformed cell fails the whole load.
func Load(ctx context.Context, paths Paths, logger *slog.Logger) (*Tables, error) {
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	tables := &Tables{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := loadOrders(gctx, paths.Orders)
		tables.Orders = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadOrderItems(gctx, paths.OrderItems)
		tables.OrderItems = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadCustomers(gctx, paths.Customers)
		tables.Customers = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadProducts(gctx, paths.Products)
		tables.Products = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadGeolocation(gctx, paths.Geolocation)
		tables.Geolocation = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadTranslations(gctx, paths.Translations)
		tables.Translations = rows
		return err
	})
	g.Go(func() error {
		rows, err := loadRFM(gctx, paths.RFM)
		tables.RFM = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	logger.Info("dataset loaded",
		"orders", len(tables.Orders),
		"order_items", len(tables.OrderItems),
		"customers", len(tables.Customers),
		"products", len(tables.Products),
		"geolocation", len(tables.Geolocation),
		"translations", len(tables.Translations),
		"rfm", len(tables.RFM),
		"duration", time.Since(start),
	)

	return tables, nil
}

func loadOrders(ctx context.Context, path string) ([]models.Order, error) {
	var rows []models.Order
	_, err := readTable(ctx, path, []string{ColOrderID, ColCustomerID, ColPurchaseTimestamp}, func(r record) error {
		ts, err := r.Time(ColPurchaseTimestamp)
		if err != nil {
			return err
		}
		rows = append(rows, models.Order{
			OrderID:           r.String(ColOrderID),
			CustomerID:        r.String(ColCustomerID),
			Status:            r.String(ColOrderStatus),
			PurchaseTimestamp: ts,
		})
		return nil
	})
	return rows, err
}

func loadOrderItems(ctx context.Context, path string) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	_, err := readTable(ctx, path, []string{ColOrderID, ColProductID, ColPrice}, func(r record) error {
		price, err := r.Float(ColPrice)
		if err != nil {
			return err
		}
		freight, err := r.OptionalFloat(ColFreightValue)
		if err != nil {
			return err
		}
		rows = append(rows, models.OrderItem{
			OrderID:      r.String(ColOrderID),
			OrderItemID:  r.String(ColOrderItemID),
			ProductID:    r.String(ColProductID),
			Price:        price,
			FreightValue: freight,
		})
		return nil
	})
	return rows, err
}

func loadCustomers(ctx context.Context, path string) ([]models.Customer, error) {
	var rows []models.Customer
	_, err := readTable(ctx, path, []string{ColCustomerID, ColCustomerCity}, func(r record) error {
		rows = append(rows, models.Customer{
			CustomerID:       r.String(ColCustomerID),
			CustomerUniqueID: r.String(ColCustomerUniqueID),
			City:             r.String(ColCustomerCity),
			State:            r.String(ColCustomerState),
		})
		return nil
	})
	return rows, err
}

func loadProducts(ctx context.Context, path string) ([]models.Product, error) {
	var rows []models.Product
	_, err := readTable(ctx, path, []string{ColProductID, ColCategoryName}, func(r record) error {
		rows = append(rows, models.Product{
			ProductID:    r.String(ColProductID),
			CategoryName: r.String(ColCategoryName),
		})
		return nil
	})
	return rows, err
}

func loadGeolocation(ctx context.Context, path string) ([]models.Geolocation, error) {
	var rows []models.Geolocation
	_, err := readTable(ctx, path, []string{ColGeoCity, ColGeoLat, ColGeoLng}, func(r record) error {
		lat, err := r.Float(ColGeoLat)
		if err != nil {
			return err
		}
		lng, err := r.Float(ColGeoLng)
		if err != nil {
			return err
		}
		rows = append(rows, models.Geolocation{
			City:      r.String(ColGeoCity),
			Latitude:  lat,
			Longitude: lng,
		})
		return nil
	})
	return rows, err
}

func loadTranslations(ctx context.Context, path string) ([]models.CategoryTranslation, error) {
	var rows []models.CategoryTranslation
	_, err := readTable(ctx, path, []string{ColCategoryName, ColCategoryEnglish}, func(r record) error {
		rows = append(rows, models.CategoryTranslation{
			CategoryName:        r.String(ColCategoryName),
			CategoryNameEnglish: r.String(ColCategoryEnglish),
		})
		return nil
	})
	return rows, err
}

func loadRFM(ctx context.Context, path string) ([]models.RFMSegment, error) {
	var rows []models.RFMSegment
	_, err := readTable(ctx, path, []string{ColCustomerID, ColRFMLabel}, func(r record) error {
		rows = append(rows, models.RFMSegment{
			CustomerID: r.String(ColCustomerID),
			Label:      r.String(ColRFMLabel),
		})
		return nil
	})
	return rows, err
}
