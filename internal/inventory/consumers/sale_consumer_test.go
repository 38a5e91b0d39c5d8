package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/testutil"
)

const testOrgID = "3f6f4a1e-9b7d-4c55-8f11-aa22bb33cc44"

func newConsumerEnv(t *testing.T) (*SaleEventConsumer, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)

	c := &SaleEventConsumer{
		products: repository.NewProductRepository(db),
		alerts:   repository.NewAlertRepository(db),
		logger:   log,
	}
	return c, mockDB
}

func saleEvent(t *testing.T, data messaging.SaleCompletedEvent) *messaging.Event {
	t.Helper()

	event, err := messaging.NewEvent(messaging.EventSaleCompleted, "test", "", data)
	require.NoError(t, err)
	return event
}

func productRows(id string, quantity int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "sku", "quantity",
		"min_price_cents", "current_price_cents", "created_at", "updated_at",
	}).AddRow(id, testOrgID, "Martillo", "MAR-001", quantity, 500, 800, time.Now(), time.Now())
}

const productByIDQuery = `SELECT id, organization_id, name, sku, quantity, min_price_cents, current_price_cents, created_at, updated_at FROM products WHERE id = $1`
const openAlertQuery = `SELECT COUNT(*) FROM stock_alerts WHERE product_id = $1 AND NOT resolved`

func TestHandleSaleCompleted(t *testing.T) {
	t.Run("low stock raises an alert", func(t *testing.T) {
		c, mockDB := newConsumerEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows("prod-1", 3))
		mockDB.ExpectOrgQuery(testOrgID, openAlertQuery, testutil.MockRows("count").AddRow(0))

		mockDB.ExpectOrgTx(testOrgID)
		mockDB.Mock.ExpectQuery(`INSERT INTO stock_alerts`).
			WithArgs(testutil.AnyUUID{}, testOrgID, "prod-1", "low_stock", "warning",
				"Martillo (MAR-001) is low on stock: 3 units left", 3).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mockDB.ExpectCommit()

		err := c.handleSaleCompleted(context.Background(), saleEvent(t, messaging.SaleCompletedEvent{
			SaleID:         "sale-1",
			OrganizationID: testOrgID,
			Items:          []messaging.SaleItemSnapshot{{ProductID: "prod-1", SKU: "MAR-001", Quantity: 2, PriceCents: 800}},
		}))
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("zero stock is critical", func(t *testing.T) {
		c, mockDB := newConsumerEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows("prod-1", 0))
		mockDB.ExpectOrgQuery(testOrgID, openAlertQuery, testutil.MockRows("count").AddRow(0))

		mockDB.ExpectOrgTx(testOrgID)
		mockDB.Mock.ExpectQuery(`INSERT INTO stock_alerts`).
			WithArgs(testutil.AnyUUID{}, testOrgID, "prod-1", "low_stock", "critical",
				"Martillo (MAR-001) is out of stock", 0).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mockDB.ExpectCommit()

		err := c.handleSaleCompleted(context.Background(), saleEvent(t, messaging.SaleCompletedEvent{
			SaleID:         "sale-1",
			OrganizationID: testOrgID,
			Items:          []messaging.SaleItemSnapshot{{ProductID: "prod-1", Quantity: 1}},
		}))
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("healthy stock raises nothing", func(t *testing.T) {
		c, mockDB := newConsumerEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows("prod-1", 50))

		err := c.handleSaleCompleted(context.Background(), saleEvent(t, messaging.SaleCompletedEvent{
			SaleID:         "sale-1",
			OrganizationID: testOrgID,
			Items:          []messaging.SaleItemSnapshot{{ProductID: "prod-1", Quantity: 1}},
		}))
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("open alert is not duplicated", func(t *testing.T) {
		c, mockDB := newConsumerEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows("prod-1", 3))
		mockDB.ExpectOrgQuery(testOrgID, openAlertQuery, testutil.MockRows("count").AddRow(1))

		err := c.handleSaleCompleted(context.Background(), saleEvent(t, messaging.SaleCompletedEvent{
			SaleID:         "sale-1",
			OrganizationID: testOrgID,
			Items:          []messaging.SaleItemSnapshot{{ProductID: "prod-1", Quantity: 1}},
		}))
		require.NoError(t, err)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("deleted product is skipped", func(t *testing.T) {
		c, mockDB := newConsumerEnv(t)

		// Empty result set maps to not-found, which the consumer treats
		// as nothing to flag.
		mockDB.ExpectOrgTx(testOrgID)
		mockDB.Mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
			WillReturnRows(testutil.MockRows("id"))
		mockDB.ExpectRollback()

		err := c.handleSaleCompleted(context.Background(), saleEvent(t, messaging.SaleCompletedEvent{
			SaleID:         "sale-1",
			OrganizationID: testOrgID,
			Items:          []messaging.SaleItemSnapshot{{ProductID: "prod-1", Quantity: 1}},
		}))
		require.NoError(t, err)
	})
}
