package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nexo/nexo-backend/internal/inventory/events"
	"github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// LowStockThreshold is the stock level at or below which a product is
// flagged and low-stock alerts are raised.
const LowStockThreshold = 10

// InventoryService handles product catalog and stock logic
type InventoryService struct {
	products *repository.ProductRepository
	alerts   *repository.AlertRepository
	events   *events.InventoryEventPublisher
	logger   *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	products *repository.ProductRepository,
	alerts *repository.AlertRepository,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		products: products,
		alerts:   alerts,
		events:   publisher,
		logger:   log,
	}
}

// ProductRequest is the payload for creating or updating a product
type ProductRequest struct {
	Name              string `json:"name" validate:"required,min=1,max=255"`
	SKU               string `json:"sku" validate:"required,min=1,max=100"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
	MinPriceCents     int64  `json:"min_price_cents" validate:"gte=0"`
	CurrentPriceCents int64  `json:"current_price_cents" validate:"gte=0"`
}

// ListProducts lists products, optionally filtered by a search term
func (s *InventoryService) ListProducts(ctx context.Context, search string) ([]*repository.Product, error) {
	return s.products.List(ctx, search)
}

// GetProduct gets one product
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*repository.Product, error) {
	return s.products.GetByID(ctx, id)
}

// CreateProduct adds a product. Re-using an existing SKU merges stock
// into the existing row instead of failing.
func (s *InventoryService) CreateProduct(ctx context.Context, req *ProductRequest) (*repository.Product, error) {
	if req.CurrentPriceCents < req.MinPriceCents {
		return nil, errors.Validation(map[string]string{
			"current_price_cents": "must not be below min_price_cents",
		})
	}

	product := &repository.Product{
		Name:              strings.TrimSpace(req.Name),
		SKU:               strings.TrimSpace(req.SKU),
		Quantity:          req.Quantity,
		MinPriceCents:     req.MinPriceCents,
		CurrentPriceCents: req.CurrentPriceCents,
	}

	inserted, err := s.products.Upsert(ctx, product)
	if err != nil {
		return nil, err
	}

	if inserted {
		s.events.PublishProductCreated(ctx, product)
	} else {
		s.events.PublishProductUpdated(ctx, product, map[string]any{"quantity": product.Quantity})
	}
	return product, nil
}

// UpdateProduct replaces a product's fields
func (s *InventoryService) UpdateProduct(ctx context.Context, id string, req *ProductRequest) (*repository.Product, error) {
	if req.CurrentPriceCents < req.MinPriceCents {
		return nil, errors.Validation(map[string]string{
			"current_price_cents": "must not be below min_price_cents",
		})
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(req.Name)
	product.SKU = strings.TrimSpace(req.SKU)
	product.Quantity = req.Quantity
	product.MinPriceCents = req.MinPriceCents
	product.CurrentPriceCents = req.CurrentPriceCents

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.events.PublishProductUpdated(ctx, product, map[string]any{
		"name":                product.Name,
		"sku":                 product.SKU,
		"quantity":            product.Quantity,
		"min_price_cents":     product.MinPriceCents,
		"current_price_cents": product.CurrentPriceCents,
	})

	// Replenished above the threshold closes outstanding alerts.
	if !product.LowStock(LowStockThreshold) {
		if err := s.alerts.ResolveForProduct(ctx, product.ID); err != nil {
			s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("failed to resolve stock alerts")
		}
	}

	return product, nil
}

// DeleteProduct removes a product
func (s *InventoryService) DeleteProduct(ctx context.Context, id string) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.events.PublishProductDeleted(ctx, id, orgID)
	return nil
}

// ListAlerts lists open low-stock alerts
func (s *InventoryService) ListAlerts(ctx context.Context) ([]*repository.StockAlert, error) {
	return s.alerts.ListUnresolved(ctx)
}

// ResolveAlert marks an alert as handled
func (s *InventoryService) ResolveAlert(ctx context.Context, id string) error {
	return s.alerts.Resolve(ctx, id)
}

// ImportResult summarizes a CSV bulk import
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Rows    int `json:"rows"`
}

// csv header names accepted by ImportCSV, position independent
const (
	colName         = "name"
	colSKU          = "sku"
	colQuantity     = "quantity"
	colMinPrice     = "min_price"
	colCurrentPrice = "current_price"
)

// ImportCSV parses a product CSV (header: name,sku,quantity,min_price,
// optionally current_price; prices are decimals) and upserts every row
// by SKU in a single transaction. Any bad row rejects the whole file.
func (s *InventoryService) ImportCSV(ctx context.Context, r io.Reader, importedBy string) (*ImportResult, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.BadRequest("empty or unreadable CSV file")
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colName, colSKU, colQuantity, colMinPrice} {
		if _, ok := cols[required]; !ok {
			return nil, errors.BadRequest(fmt.Sprintf("CSV is missing the %q column", required))
		}
	}

	var products []*repository.Product
	rowErrors := map[string]string{}
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrors[fmt.Sprintf("line_%d", line)] = "malformed CSV row"
			continue
		}

		product, rowErr := parseProductRow(record, cols)
		if rowErr != "" {
			rowErrors[fmt.Sprintf("line_%d", line)] = rowErr
			continue
		}
		products = append(products, product)
	}

	if len(rowErrors) > 0 {
		return nil, errors.Validation(rowErrors)
	}
	if len(products) == 0 {
		return nil, errors.BadRequest("CSV contains no product rows")
	}

	created, updated, err := s.products.UpsertMany(ctx, products)
	if err != nil {
		return nil, err
	}

	s.events.PublishProductsImported(ctx, messaging.ProductImportedEvent{
		OrganizationID: orgID,
		ImportedBy:     importedBy,
		Created:        created,
		Updated:        updated,
	})

	s.logger.Info().
		Str("organization_id", orgID).
		Int("created", created).
		Int("updated", updated).
		Msg("product CSV imported")

	return &ImportResult{Created: created, Updated: updated, Rows: len(products)}, nil
}

func parseProductRow(record []string, cols map[string]int) (*repository.Product, string) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := field(colName)
	if name == "" {
		return nil, "name must not be empty"
	}
	sku := field(colSKU)
	if sku == "" {
		return nil, "sku must not be empty"
	}

	quantity, err := strconv.Atoi(field(colQuantity))
	if err != nil || quantity < 0 {
		return nil, "quantity must be a non-negative integer"
	}

	minPriceCents, ok := parsePriceCents(field(colMinPrice))
	if !ok {
		return nil, "min_price must be a non-negative decimal"
	}

	currentPriceCents := minPriceCents
	if raw := field(colCurrentPrice); raw != "" {
		currentPriceCents, ok = parsePriceCents(raw)
		if !ok {
			return nil, "current_price must be a non-negative decimal"
		}
		if currentPriceCents < minPriceCents {
			return nil, "current_price must not be below min_price"
		}
	}

	return &repository.Product{
		Name:              name,
		SKU:               sku,
		Quantity:          quantity,
		MinPriceCents:     minPriceCents,
		CurrentPriceCents: currentPriceCents,
	}, ""
}

// maxPriceCents caps imported prices well below the int64 overflow
// point for the cents conversion.
const maxPriceCents = int64(1) << 50

// parsePriceCents converts a decimal price string to integer cents.
func parsePriceCents(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	cents := math.Round(f * 100)
	if cents > float64(maxPriceCents) {
		return 0, false
	}
	return int64(cents), true
}
