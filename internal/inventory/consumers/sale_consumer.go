package consumers

import (
	"context"
	"fmt"

	"github.com/nexo/nexo-backend/internal/inventory/events"
	"github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/internal/inventory/service"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// SaleEventConsumer raises low-stock alerts after sales commit. Alert
// creation is decoupled from the sale transaction so a slow or failing
// alert write can never block a checkout.
type SaleEventConsumer struct {
	consumer  *messaging.Consumer
	products  *repository.ProductRepository
	alerts    *repository.AlertRepository
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewSaleEventConsumer creates a new sale event consumer
func NewSaleEventConsumer(
	rmq *messaging.RabbitMQ,
	products *repository.ProductRepository,
	alerts *repository.AlertRepository,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) (*SaleEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory.sale-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeSalesEvents, "sales.sale.#"); err != nil {
		return nil, err
	}

	c := &SaleEventConsumer{
		consumer:  consumer,
		products:  products,
		alerts:    alerts,
		publisher: publisher,
		logger:    log,
	}

	consumer.RegisterHandler(messaging.EventSaleCompleted, c.handleSaleCompleted)

	return c, nil
}

// Start starts consuming messages
func (c *SaleEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the consumer
func (c *SaleEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *SaleEventConsumer) handleSaleCompleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.SaleCompletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("failed to unmarshal sale completed event: %w", err)
	}

	orgCtx := tenant.WithOrgID(ctx, data.OrganizationID)

	for _, item := range data.Items {
		if err := c.checkStock(orgCtx, item.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (c *SaleEventConsumer) checkStock(ctx context.Context, productID string) error {
	product, err := c.products.GetByID(ctx, productID)
	if err != nil {
		// Product deleted between sale and alert check, nothing to flag.
		c.logger.Warn().Err(err).Str("product_id", productID).Msg("product not found for stock check")
		return nil
	}

	if !product.LowStock(service.LowStockThreshold) {
		return nil
	}

	open, err := c.alerts.HasOpenAlert(ctx, product.ID)
	if err != nil {
		return err
	}
	if open {
		return nil
	}

	alert := &repository.StockAlert{
		ProductID:    product.ID,
		Message:      fmt.Sprintf("%s (%s) is low on stock: %d units left", product.Name, product.SKU, product.Quantity),
		CurrentStock: product.Quantity,
	}
	if product.Quantity == 0 {
		alert.Severity = "critical"
		alert.Message = fmt.Sprintf("%s (%s) is out of stock", product.Name, product.SKU)
	}

	if err := c.alerts.Create(ctx, alert); err != nil {
		return err
	}

	c.publisher.PublishStockLow(ctx, product, service.LowStockThreshold)

	c.logger.Info().
		Str("product_id", product.ID).
		Str("sku", product.SKU).
		Int("quantity", product.Quantity).
		Msg("low stock alert created")

	return nil
}
