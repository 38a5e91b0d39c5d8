package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/inventory/repository"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}
	defer suite.Cleanup(ctx)
	defer testutil.TerminateContainer(ctx)

	os.Exit(m.Run())
}

func seedProduct(t *testing.T, ctx context.Context, repo *repository.ProductRepository, sku string, quantity int) *repository.Product {
	t.Helper()

	product := &repository.Product{
		Name:              "Producto " + sku,
		SKU:               sku,
		Quantity:          quantity,
		MinPriceCents:     500,
		CurrentPriceCents: 800,
	}
	inserted, err := repo.Upsert(ctx, product)
	require.NoError(t, err)
	require.True(t, inserted)
	return product
}

func TestProductRepository_UpsertMergesBySKU(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Upsert")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewProductRepository(suite.DB)

	first := seedProduct(t, orgCtx, repo, "MAR-001", 20)

	second := &repository.Product{
		Name:              "Martillo Grande",
		SKU:               "MAR-001",
		Quantity:          15,
		MinPriceCents:     600,
		CurrentPriceCents: 900,
	}
	inserted, err := repo.Upsert(orgCtx, second)
	require.NoError(t, err)

	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 35, second.Quantity)

	got, err := repo.GetBySKU(orgCtx, "MAR-001")
	require.NoError(t, err)
	assert.Equal(t, "Martillo Grande", got.Name)
	assert.Equal(t, int64(600), got.MinPriceCents)
}

func TestProductRepository_OrgIsolation(t *testing.T) {
	ctx := context.Background()
	orgA := suite.SetupOrg(t, ctx, "Tienda A")
	orgB := suite.SetupOrg(t, ctx, "Tienda B")
	repo := repository.NewProductRepository(suite.DB)

	product := seedProduct(t, suite.OrgContext(orgA), repo, "ISO-001", 5)

	// Same SKU in another org is a separate row, not a merge.
	inserted, err := repo.Upsert(suite.OrgContext(orgB), &repository.Product{
		Name: "Otro", SKU: "ISO-001", Quantity: 3,
		MinPriceCents: 100, CurrentPriceCents: 100,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	_, err = repo.GetByID(suite.OrgContext(orgB), product.ID)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	listA, err := repo.List(suite.OrgContext(orgA), "")
	require.NoError(t, err)
	assert.Len(t, listA, 1)
}

func TestProductRepository_ListSearch(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Search")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewProductRepository(suite.DB)

	seedProduct(t, orgCtx, repo, "MAR-010", 10)
	seedProduct(t, orgCtx, repo, "DES-020", 10)

	results, err := repo.List(orgCtx, "mar-0")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "MAR-010", results[0].SKU)
}

func TestProductRepository_UpsertMany(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Import")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewProductRepository(suite.DB)

	seedProduct(t, orgCtx, repo, "EXIST-01", 10)

	created, updated, err := repo.UpsertMany(orgCtx, []*repository.Product{
		{Name: "Nuevo", SKU: "NEW-01", Quantity: 5, MinPriceCents: 100, CurrentPriceCents: 150},
		{Name: "Existente", SKU: "EXIST-01", Quantity: 5, MinPriceCents: 100, CurrentPriceCents: 150},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, updated)

	got, err := repo.GetBySKU(orgCtx, "EXIST-01")
	require.NoError(t, err)
	assert.Equal(t, 15, got.Quantity)
}

func TestProductRepository_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Delete")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewProductRepository(suite.DB)

	err := repo.Delete(orgCtx, "11111111-2222-3333-4444-555555555555")

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestAlertRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Alertas")
	orgCtx := suite.OrgContext(org)
	products := repository.NewProductRepository(suite.DB)
	alerts := repository.NewAlertRepository(suite.DB)

	product := seedProduct(t, orgCtx, products, "ALR-001", 2)

	alert := &repository.StockAlert{
		ProductID:    product.ID,
		Message:      "Producto ALR-001 is low on stock: 2 units left",
		CurrentStock: 2,
	}
	require.NoError(t, alerts.Create(orgCtx, alert))
	assert.Equal(t, "low_stock", alert.AlertType)
	assert.Equal(t, "warning", alert.Severity)

	open, err := alerts.HasOpenAlert(orgCtx, product.ID)
	require.NoError(t, err)
	assert.True(t, open)

	list, err := alerts.ListUnresolved(orgCtx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ProductSKU)
	assert.Equal(t, "ALR-001", *list[0].ProductSKU)

	require.NoError(t, alerts.ResolveForProduct(orgCtx, product.ID))

	open, err = alerts.HasOpenAlert(orgCtx, product.ID)
	require.NoError(t, err)
	assert.False(t, open)

	list, err = alerts.ListUnresolved(orgCtx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
