package events

import (
	"context"

	"github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "nexo-server", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishProductCreated publishes a product created event
func (p *InventoryEventPublisher) PublishProductCreated(ctx context.Context, product *repository.Product) {
	if p == nil {
		return
	}
	data := messaging.ProductCreatedEvent{
		ProductID:      product.ID,
		OrganizationID: product.OrganizationID,
		SKU:            product.SKU,
		Name:           product.Name,
	}
	if err := p.publisher.Publish(ctx, messaging.EventProductCreated, data); err != nil {
		p.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to publish product created event")
	}
}

// PublishProductUpdated publishes a product updated event
func (p *InventoryEventPublisher) PublishProductUpdated(ctx context.Context, product *repository.Product, fields map[string]any) {
	if p == nil {
		return
	}
	data := messaging.ProductUpdatedEvent{
		ProductID:      product.ID,
		OrganizationID: product.OrganizationID,
		Fields:         fields,
	}
	if err := p.publisher.Publish(ctx, messaging.EventProductUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to publish product updated event")
	}
}

// PublishProductDeleted publishes a product deleted event
func (p *InventoryEventPublisher) PublishProductDeleted(ctx context.Context, productID, orgID string) {
	if p == nil {
		return
	}
	data := messaging.ProductDeletedEvent{
		ProductID:      productID,
		OrganizationID: orgID,
	}
	if err := p.publisher.Publish(ctx, messaging.EventProductDeleted, data); err != nil {
		p.logger.Error().Err(err).Str("product_id", productID).Msg("failed to publish product deleted event")
	}
}

// PublishProductsImported publishes a bulk import summary event
func (p *InventoryEventPublisher) PublishProductsImported(ctx context.Context, data messaging.ProductImportedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventProductImported, data); err != nil {
		p.logger.Error().Err(err).Str("organization_id", data.OrganizationID).Msg("failed to publish product imported event")
	}
}

// PublishStockLow publishes a low stock event
func (p *InventoryEventPublisher) PublishStockLow(ctx context.Context, product *repository.Product, threshold int) {
	if p == nil {
		return
	}
	data := messaging.StockLowEvent{
		ProductID:      product.ID,
		OrganizationID: product.OrganizationID,
		SKU:            product.SKU,
		Name:           product.Name,
		Quantity:       product.Quantity,
		Threshold:      threshold,
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockLow, data); err != nil {
		p.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to publish stock low event")
	}
}
