package consumers

import (
	"context"
	"fmt"

	"github.com/nexo/nexo-backend/internal/dashboard/service"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
)

// StatsInvalidator drops stale dashboard snapshots when sales or bulk
// imports change the underlying numbers.
type StatsInvalidator struct {
	consumer  *messaging.Consumer
	dashboard *service.DashboardService
	logger    *logger.Logger
}

// NewStatsInvalidator creates a new stats invalidator consumer
func NewStatsInvalidator(
	rmq *messaging.RabbitMQ,
	dashboard *service.DashboardService,
	log *logger.Logger,
) (*StatsInvalidator, error) {
	consumer, err := messaging.NewConsumer(rmq, "dashboard.stats-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeSalesEvents, "sales.sale.#"); err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(messaging.ExchangeInventoryEvents, "inventory.product.#"); err != nil {
		return nil, err
	}

	c := &StatsInvalidator{
		consumer:  consumer,
		dashboard: dashboard,
		logger:    log,
	}

	consumer.RegisterHandler(messaging.EventSaleCompleted, c.handleSaleCompleted)
	consumer.RegisterHandler(messaging.EventProductImported, c.handleProductImported)

	return c, nil
}

// Start starts consuming messages
func (c *StatsInvalidator) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the consumer
func (c *StatsInvalidator) Close() error {
	return c.consumer.Close()
}

func (c *StatsInvalidator) handleSaleCompleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.SaleCompletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("failed to unmarshal sale completed event: %w", err)
	}
	c.dashboard.Invalidate(data.OrganizationID)
	return nil
}

func (c *StatsInvalidator) handleProductImported(ctx context.Context, event *messaging.Event) error {
	var data messaging.ProductImportedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("failed to unmarshal product imported event: %w", err)
	}
	c.dashboard.Invalidate(data.OrganizationID)
	return nil
}
