package service

import (
	"context"

	inventory "github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/internal/sales/events"
	"github.com/nexo/nexo-backend/internal/sales/repository"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// SaleService handles point-of-sale checkout
type SaleService struct {
	sales    *repository.SaleRepository
	products *inventory.ProductRepository
	events   *events.SalesEventPublisher
	logger   *logger.Logger
}

// NewSaleService creates a new sale service
func NewSaleService(
	sales *repository.SaleRepository,
	products *inventory.ProductRepository,
	publisher *events.SalesEventPublisher,
	log *logger.Logger,
) *SaleService {
	return &SaleService{
		sales:    sales,
		products: products,
		events:   publisher,
		logger:   log,
	}
}

// SaleItemRequest is one line of a checkout request. The bounds keep
// unit_price x quantity summed over a full cart inside int64.
type SaleItemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"required,gte=1,lte=100000"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0,lte=100000000000"`
}

// CreateSaleRequest is the checkout payload. The client is optional,
// anonymous walk-in sales carry no client.
type CreateSaleRequest struct {
	ClientID *string           `json:"client_id" validate:"omitempty,uuid"`
	Items    []SaleItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// List lists recent sales
func (s *SaleService) List(ctx context.Context, limit int) ([]*repository.Sale, error) {
	return s.sales.List(ctx, limit)
}

// Get gets a sale with its items
func (s *SaleService) Get(ctx context.Context, id string) (*repository.Sale, error) {
	return s.sales.GetByID(ctx, id)
}

// Create validates and records a sale. The submitted prices are checked
// against each product's price floor and the total is computed here, a
// client-supplied total is never trusted. Stock is checked up front and
// enforced again by the guarded decrement inside the sale transaction.
func (s *SaleService) Create(ctx context.Context, req *CreateSaleRequest) (*repository.Sale, error) {
	principal := actor.FromContext(ctx)
	if principal == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	sale := &repository.Sale{
		ClientID: req.ClientID,
		SellerID: principal.ID,
	}

	var total int64
	for _, line := range req.Items {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if line.UnitPriceCents < product.MinPriceCents {
			return nil, errors.PriceBelowFloor(product.SKU)
		}
		if line.Quantity > product.Quantity {
			return nil, errors.InsufficientStock(product.SKU)
		}

		sku := product.SKU
		name := product.Name
		sale.Items = append(sale.Items, &repository.SaleItem{
			ProductID:      product.ID,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			ProductSKU:     &sku,
			ProductName:    &name,
		})
		total += line.UnitPriceCents * int64(line.Quantity)
	}
	sale.TotalAmountCents = total

	if err := s.sales.CreateWithItems(ctx, sale); err != nil {
		return nil, err
	}

	s.events.PublishSaleCompleted(ctx, sale)

	s.logger.Info().
		Str("sale_id", sale.ID).
		Str("seller_id", sale.SellerID).
		Int64("total_cents", sale.TotalAmountCents).
		Int("items", len(sale.Items)).
		Msg("sale completed")

	return sale, nil
}
