package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Sale events
	EventSaleCompleted = "sales.sale.completed"

	// Inventory events
	EventProductCreated  = "inventory.product.created"
	EventProductUpdated  = "inventory.product.updated"
	EventProductDeleted  = "inventory.product.deleted"
	EventProductImported = "inventory.product.imported"
	EventStockAdjusted   = "inventory.stock.adjusted"
	EventStockLow        = "inventory.stock.low"

	// Organization events
	EventOrgCreated  = "org.created"
	EventOrgUpdated  = "org.updated"
	EventOrgDeleted  = "org.deleted"
	EventOrgSwitched = "org.switched"

	// Auth events
	EventUserLoggedIn  = "auth.user.logged_in"
	EventUserLoggedOut = "auth.user.logged_out"
)

// Exchange names
const (
	ExchangeSalesEvents     = "sales.events"
	ExchangeInventoryEvents = "inventory.events"
	ExchangeOrgEvents       = "org.events"
	ExchangeAuthEvents      = "auth.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Sale Events

// SaleItemSnapshot captures one sold line for downstream consumers.
type SaleItemSnapshot struct {
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// SaleCompletedEvent is published after a sale commits. The inventory
// consumer uses it to raise low-stock alerts, the dashboard cache to
// invalidate leaderboards.
type SaleCompletedEvent struct {
	SaleID         string             `json:"sale_id"`
	OrganizationID string             `json:"organization_id"`
	SellerID       string             `json:"seller_id"`
	ClientID       *string            `json:"client_id,omitempty"`
	TotalCents     int64              `json:"total_cents"`
	Items          []SaleItemSnapshot `json:"items"`
}

// Inventory Events

// ProductCreatedEvent is published when a product is created
type ProductCreatedEvent struct {
	ProductID      string `json:"product_id"`
	OrganizationID string `json:"organization_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
}

// ProductUpdatedEvent is published when a product is updated
type ProductUpdatedEvent struct {
	ProductID      string         `json:"product_id"`
	OrganizationID string         `json:"organization_id"`
	Fields         map[string]any `json:"fields"`
}

// ProductDeletedEvent is published when a product is deleted
type ProductDeletedEvent struct {
	ProductID      string `json:"product_id"`
	OrganizationID string `json:"organization_id"`
}

// ProductImportedEvent is published after a CSV bulk import finishes
type ProductImportedEvent struct {
	OrganizationID string `json:"organization_id"`
	ImportedBy     string `json:"imported_by"`
	Created        int    `json:"created"`
	Updated        int    `json:"updated"`
	Failed         int    `json:"failed"`
}

// StockAdjustedEvent is published when stock changes outside a sale
type StockAdjustedEvent struct {
	ProductID      string `json:"product_id"`
	OrganizationID string `json:"organization_id"`
	Adjustment     int    `json:"adjustment"`
	NewQuantity    int    `json:"new_quantity"`
	PerformedBy    string `json:"performed_by"`
	Reason         string `json:"reason"`
}

// StockLowEvent is published when a product's stock drops below its threshold
type StockLowEvent struct {
	ProductID      string `json:"product_id"`
	OrganizationID string `json:"organization_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Threshold      int    `json:"threshold"`
}

// Organization Events

// OrgCreatedEvent is published when an organization is created
type OrgCreatedEvent struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	CreatedBy      string `json:"created_by"`
}

// OrgUpdatedEvent is published when an organization is updated
type OrgUpdatedEvent struct {
	OrganizationID string         `json:"organization_id"`
	Fields         map[string]any `json:"fields"`
}

// OrgDeletedEvent is published when an organization is deleted
type OrgDeletedEvent struct {
	OrganizationID string `json:"organization_id"`
	DeletedBy      string `json:"deleted_by"`
}

// OrgSwitchedEvent is published when a user changes their active organization
type OrgSwitchedEvent struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	PreviousOrgID  string `json:"previous_org_id,omitempty"`
}

// Auth Events

// UserLoggedInEvent is published on successful login
type UserLoggedInEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UserLoggedOutEvent is published on logout
type UserLoggedOutEvent struct {
	UserID string `json:"user_id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
