package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/clients/repository"
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

func strPtr(s string) *string { return &s }

func TestClientRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Clientes")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewClientRepository(suite.DB)

	client := &repository.Client{
		FullName: "María García",
		Email:    strPtr("maria@example.com"),
		Phone:    strPtr("+34 600 123 456"),
	}
	require.NoError(t, repo.Create(orgCtx, client))

	assert.NotEmpty(t, client.ID)
	assert.Equal(t, org.ID, client.OrganizationID)
	assert.False(t, client.CreatedAt.IsZero())

	anonymous := &repository.Client{FullName: "Carlos Ruiz"}
	require.NoError(t, repo.Create(orgCtx, anonymous))

	clients, err := repo.List(orgCtx, "")
	require.NoError(t, err)
	require.Len(t, clients, 2)

	// Ordered by full_name.
	assert.Equal(t, "Carlos Ruiz", clients[0].FullName)
	assert.Equal(t, "María García", clients[1].FullName)
	assert.Nil(t, clients[0].Email)
}

func TestClientRepository_SearchByName(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Búsqueda")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewClientRepository(suite.DB)

	for _, name := range []string{"Ana Martín", "Pedro Márquez", "Lucía Torres"} {
		require.NoError(t, repo.Create(orgCtx, &repository.Client{FullName: name}))
	}

	results, err := repo.List(orgCtx, "már")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Pedro Márquez", results[0].FullName)
}

func TestClientRepository_OrgIsolation(t *testing.T) {
	ctx := context.Background()
	orgA := suite.SetupOrg(t, ctx, "Tienda Clientes A")
	orgB := suite.SetupOrg(t, ctx, "Tienda Clientes B")
	repo := repository.NewClientRepository(suite.DB)

	client := &repository.Client{FullName: "Solo En A"}
	require.NoError(t, repo.Create(suite.OrgContext(orgA), client))

	_, err := repo.GetByID(suite.OrgContext(orgB), client.ID)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestClientRepository_Delete(t *testing.T) {
	ctx := context.Background()
	org := suite.SetupOrg(t, ctx, "Ferretería Bajas")
	orgCtx := suite.OrgContext(org)
	repo := repository.NewClientRepository(suite.DB)

	client := &repository.Client{FullName: "Cliente Temporal"}
	require.NoError(t, repo.Create(orgCtx, client))
	require.NoError(t, repo.Delete(orgCtx, client.ID))

	err := repo.Delete(orgCtx, client.ID)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
