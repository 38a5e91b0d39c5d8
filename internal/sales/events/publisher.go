package events

import (
	"context"

	"github.com/nexo/nexo-backend/internal/sales/repository"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
)

// SalesEventPublisher publishes sale-related events
type SalesEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewSalesEventPublisher creates a new sales event publisher
func NewSalesEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*SalesEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeSalesEvents, "nexo-server", log)
	if err != nil {
		return nil, err
	}

	return &SalesEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishSaleCompleted publishes a sale completed event with a snapshot
// of every sold line
func (p *SalesEventPublisher) PublishSaleCompleted(ctx context.Context, sale *repository.Sale) {
	if p == nil {
		return
	}

	items := make([]messaging.SaleItemSnapshot, 0, len(sale.Items))
	for _, item := range sale.Items {
		snapshot := messaging.SaleItemSnapshot{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceCents: item.UnitPriceCents,
		}
		if item.ProductSKU != nil {
			snapshot.SKU = *item.ProductSKU
		}
		items = append(items, snapshot)
	}

	data := messaging.SaleCompletedEvent{
		SaleID:         sale.ID,
		OrganizationID: sale.OrganizationID,
		SellerID:       sale.SellerID,
		ClientID:       sale.ClientID,
		TotalCents:     sale.TotalAmountCents,
		Items:          items,
	}
	if err := p.publisher.Publish(ctx, messaging.EventSaleCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("sale_id", sale.ID).Msg("failed to publish sale completed event")
	}
}
