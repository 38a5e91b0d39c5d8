package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container  *PostgresContainer
	RawDB      *sqlx.DB
	DB         *database.DB
	OrgManager *OrgManager
	Fixtures   *FixtureFactory
	Logger     *logger.Logger
	t          *testing.T
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//
//	    suite, err := testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer suite.Cleanup(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
//
//	func TestSomething(t *testing.T) {
//	    ctx := context.Background()
//	    org := suite.SetupOrg(t, ctx, "Test Store")
//	    ctx = suite.OrgContext(org)
//	    // ... run tests against this organization
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	// Create wrapped database using DSN
	log := logger.New("test", "test")
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	// Apply the schema once; orgs are rows, not schemas
	if err := container.ApplySchema(ctx, db); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container:  container,
		RawDB:      db,
		DB:         wrappedDB,
		OrgManager: NewOrgManager(db),
		Fixtures:   NewFixtureFactory(),
		Logger:     log,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// SetupOrg creates an organization for a specific test.
// Each test should use its own organization for isolation.
func (s *IntegrationSuite) SetupOrg(t *testing.T, ctx context.Context, name string) *TestOrg {
	t.Helper()

	org, err := s.OrgManager.CreateOrg(ctx, name)
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	t.Cleanup(func() {
		if err := s.OrgManager.DropOrg(ctx, org); err != nil {
			t.Logf("warning: failed to drop organization %s: %v", org.Name, err)
		}
	})

	return org
}

// OrgContext returns a context with the organization set
func (s *IntegrationSuite) OrgContext(org *TestOrg) context.Context {
	return WithTestOrg(context.Background(), org)
}

// Cleanup cleans up all test resources
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	if err := s.OrgManager.Cleanup(ctx); err != nil {
		return err
	}
	// Note: We don't terminate the container here since it's shared
	return nil
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB   *MockDB
	Fixtures *FixtureFactory
	t        *testing.T
}

// NewUnitTestSuite creates a new unit test suite
func NewUnitTestSuite(t *testing.T) *UnitTestSuite {
	return &UnitTestSuite{
		MockDB:   NewMockDB(t),
		Fixtures: NewFixtureFactory(),
		t:        t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsCI returns true if running in CI environment
func IsCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
