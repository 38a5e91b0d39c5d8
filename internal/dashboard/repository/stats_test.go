package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/dashboard/repository"
	inventory "github.com/nexo/nexo-backend/internal/inventory/repository"
	sales "github.com/nexo/nexo-backend/internal/sales/repository"
	"github.com/nexo/nexo-backend/pkg/testutil"
)

var (
	suite   *testutil.IntegrationSuite
	factory = testutil.NewFixtureFactory()
)

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

func seedProfile(t *testing.T, ctx context.Context, orgID, fullName string) testutil.ProfileFixture {
	t.Helper()

	profile := factory.Profile(testutil.WithFullName(fullName), testutil.WithOrganization(orgID))
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO profiles (id, email, password_hash, full_name, role, organization_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.ID, profile.Email, profile.PasswordHash, profile.FullName, profile.Role, profile.OrganizationID,
	)
	require.NoError(t, err)
	return profile
}

func seedSale(t *testing.T, ctx context.Context, repo *sales.SaleRepository, sellerID string, clientID *string, productID string, quantity int, unitPrice int64) {
	t.Helper()

	sale := &sales.Sale{
		ClientID:         clientID,
		SellerID:         sellerID,
		TotalAmountCents: unitPrice * int64(quantity),
		Items: []*sales.SaleItem{
			{ProductID: productID, UnitPriceCents: unitPrice, Quantity: quantity},
		},
	}
	require.NoError(t, repo.CreateWithItems(ctx, sale))
}

func TestStatsRepository(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Analítica")
	orgCtx := suite.OrgContext(org)

	products := inventory.NewProductRepository(suite.DB)
	salesRepo := sales.NewSaleRepository(suite.DB)
	stats := repository.NewStatsRepository(suite.DB)

	hammer := &inventory.Product{Name: "Martillo", SKU: "MAR-001", Quantity: 100, MinPriceCents: 500, CurrentPriceCents: 800}
	screws := &inventory.Product{Name: "Tornillos", SKU: "TOR-001", Quantity: 5, MinPriceCents: 10, CurrentPriceCents: 20}
	for _, p := range []*inventory.Product{hammer, screws} {
		_, err := products.Upsert(orgCtx, p)
		require.NoError(t, err)
	}

	seller := seedProfile(t, ctx, org.ID, "Ana Vendedora")

	clientFixture := factory.Client(org.ID)
	_, err := suite.RawDB.ExecContext(ctx,
		`INSERT INTO clients (id, organization_id, full_name, email, phone) VALUES ($1, $2, $3, $4, $5)`,
		clientFixture.ID, clientFixture.OrganizationID, "María García", clientFixture.Email, clientFixture.Phone,
	)
	require.NoError(t, err)

	seedSale(t, orgCtx, salesRepo, seller.ID, &clientFixture.ID, hammer.ID, 3, 800)
	seedSale(t, orgCtx, salesRepo, seller.ID, nil, screws.ID, 2, 20)

	got, err := stats.Stats(orgCtx, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(2440), got.Totals.RevenueCents)
	assert.Equal(t, int64(2), got.Totals.SaleCount)

	require.Len(t, got.TopClients, 2)
	assert.Equal(t, "María García", got.TopClients[0].Name)
	assert.Equal(t, int64(2400), got.TopClients[0].TotalCents)
	assert.Equal(t, repository.AnonymousClientLabel, got.TopClients[1].Name)

	require.Len(t, got.TopSellers, 1)
	assert.Equal(t, "Ana Vendedora", got.TopSellers[0].Name)
	assert.Equal(t, int64(2), got.TopSellers[0].SaleCount)

	require.Len(t, got.TopProducts, 2)
	assert.Equal(t, "MAR-001", got.TopProducts[0].SKU)
	assert.Equal(t, int64(3), got.TopProducts[0].UnitsSold)
	assert.Equal(t, int64(2400), got.TopProducts[0].RevenueCents)

	// Screws started at 5, sold 2, left at 3 which is under the threshold.
	assert.Equal(t, int64(1), got.LowStockCount)
}

func TestStatsRepository_EmptyOrg(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Vacía")
	orgCtx := suite.OrgContext(org)

	stats := repository.NewStatsRepository(suite.DB)

	got, err := stats.Stats(orgCtx, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(0), got.Totals.RevenueCents)
	assert.Equal(t, int64(0), got.Totals.SaleCount)
	assert.Empty(t, got.TopClients)
	assert.Empty(t, got.TopSellers)
	assert.Empty(t, got.TopProducts)
}
