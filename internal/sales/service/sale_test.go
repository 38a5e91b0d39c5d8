package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventory "github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/internal/sales/repository"
	"github.com/nexo/nexo-backend/internal/sales/service"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/policy"
	"github.com/nexo/nexo-backend/pkg/tenant"
	"github.com/nexo/nexo-backend/pkg/testutil"
)

const (
	testOrgID    = "3f6f4a1e-9b7d-4c55-8f11-aa22bb33cc44"
	testSellerID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	testProdID   = "aaaa1111-bb22-cc33-dd44-eeee55556666"
)

func newSaleEnv(t *testing.T) (*service.SaleService, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)

	svc := service.NewSaleService(
		repository.NewSaleRepository(db),
		inventory.NewProductRepository(db),
		nil,
		log,
	)
	return svc, mockDB
}

func sellerCtx() context.Context {
	ctx := tenant.WithOrgID(context.Background(), testOrgID)
	return actor.WithActor(ctx, &actor.Actor{
		ID:       testSellerID,
		FullName: "Ana Vendedora",
		Email:    "ana@test.nexo.app",
		Role:     policy.RoleSeller,
	})
}

const productByIDQuery = `SELECT id, organization_id, name, sku, quantity, min_price_cents, current_price_cents, created_at, updated_at FROM products WHERE id = $1`

func productRows(quantity int, minPrice, currentPrice int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "sku", "quantity",
		"min_price_cents", "current_price_cents", "created_at", "updated_at",
	}).AddRow(testProdID, testOrgID, "Martillo", "MAR-001", quantity, minPrice, currentPrice, time.Now(), time.Now())
}

func TestCreateSale(t *testing.T) {
	t.Run("computes the total server side", func(t *testing.T) {
		svc, mockDB := newSaleEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows(20, 500, 800))

		mockDB.ExpectOrgTx(testOrgID)
		mockDB.Mock.ExpectQuery(`INSERT INTO sales`).
			WithArgs(testutil.AnyUUID{}, testOrgID, nil, testSellerID, int64(2400)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mockDB.Mock.ExpectExec(`UPDATE products SET quantity = quantity - \$2`).
			WithArgs(testProdID, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectExec(`INSERT INTO sale_items`).
			WithArgs(testutil.AnyUUID{}, testutil.AnyUUID{}, testProdID, int64(800), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectCommit()

		sale, err := svc.Create(sellerCtx(), &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 3, UnitPriceCents: 800},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(2400), sale.TotalAmountCents)
		assert.Equal(t, testSellerID, sale.SellerID)
		require.Len(t, sale.Items, 1)
		require.NotNil(t, sale.Items[0].ProductSKU)
		assert.Equal(t, "MAR-001", *sale.Items[0].ProductSKU)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("price below the floor is rejected", func(t *testing.T) {
		svc, mockDB := newSaleEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows(20, 500, 800))

		_, err := svc.Create(sellerCtx(), &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 1, UnitPriceCents: 499},
			},
		})

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "PRICE_BELOW_FLOOR", appErr.Code)
		assert.Equal(t, "MAR-001", appErr.Details["sku"])
	})

	t.Run("selling above the floor is allowed", func(t *testing.T) {
		svc, mockDB := newSaleEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows(20, 500, 800))

		mockDB.ExpectOrgTx(testOrgID)
		mockDB.Mock.ExpectQuery(`INSERT INTO sales`).
			WithArgs(testutil.AnyUUID{}, testOrgID, nil, testSellerID, int64(1000)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mockDB.Mock.ExpectExec(`UPDATE products SET quantity = quantity - \$2`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectExec(`INSERT INTO sale_items`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectCommit()

		sale, err := svc.Create(sellerCtx(), &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 1, UnitPriceCents: 1000},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), sale.TotalAmountCents)
	})

	t.Run("ordering more than stock is rejected", func(t *testing.T) {
		svc, mockDB := newSaleEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows(2, 500, 800))

		_, err := svc.Create(sellerCtx(), &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 3, UnitPriceCents: 800},
			},
		})

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	})

	t.Run("concurrent stock depletion aborts the transaction", func(t *testing.T) {
		svc, mockDB := newSaleEnv(t)

		mockDB.ExpectOrgQuery(testOrgID, productByIDQuery, productRows(3, 500, 800))

		mockDB.ExpectOrgTx(testOrgID)
		mockDB.Mock.ExpectQuery(`INSERT INTO sales`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		// Stock changed between validation and commit, the guarded
		// decrement matches no row.
		mockDB.Mock.ExpectExec(`UPDATE products SET quantity = quantity - \$2`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mockDB.ExpectRollback()

		_, err := svc.Create(sellerCtx(), &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 3, UnitPriceCents: 800},
			},
		})

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("anonymous request is unauthorized", func(t *testing.T) {
		svc, _ := newSaleEnv(t)

		_, err := svc.Create(tenant.WithOrgID(context.Background(), testOrgID), &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 1, UnitPriceCents: 800},
			},
		})

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	})
}

func TestCreateSaleRequestBounds(t *testing.T) {
	t.Run("oversized unit price fails validation", func(t *testing.T) {
		req := &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 1, UnitPriceCents: 1 << 62},
			},
		}

		err := httputil.Validate(req)

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		assert.Contains(t, appErr.Details, "UnitPriceCents")
	})

	t.Run("oversized quantity fails validation", func(t *testing.T) {
		req := &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 1 << 30, UnitPriceCents: 100},
			},
		}

		err := httputil.Validate(req)

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		assert.Contains(t, appErr.Details, "Quantity")
	})

	t.Run("a plausible cart passes", func(t *testing.T) {
		req := &service.CreateSaleRequest{
			Items: []service.SaleItemRequest{
				{ProductID: testProdID, Quantity: 3, UnitPriceCents: 800},
			},
		}

		assert.NoError(t, httputil.Validate(req))
	})
}
