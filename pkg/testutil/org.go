package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// TestOrg represents an organization created for testing
type TestOrg struct {
	ID   string
	Name string
}

// OrgManager manages test organizations in a pooled RLS database
type OrgManager struct {
	db   *sqlx.DB
	orgs []TestOrg
	mu   sync.Mutex
}

// NewOrgManager creates a new organization manager for tests
func NewOrgManager(db *sqlx.DB) *OrgManager {
	return &OrgManager{
		db:   db,
		orgs: make([]TestOrg, 0),
	}
}

// CreateOrg inserts a new organization row for testing.
// Each test can have its own organization so RLS isolation can be verified.
//
// Usage:
//
//	om := testutil.NewOrgManager(db)
//	org, err := om.CreateOrg(ctx, "Test Store")
//	ctx = testutil.WithTestOrg(ctx, org)
//
//	// All repository operations now run against this organization
//	products, err := productRepo.List(ctx)
func (om *OrgManager) CreateOrg(ctx context.Context, name string) (*TestOrg, error) {
	om.mu.Lock()
	defer om.mu.Unlock()

	id := uuid.New().String()

	_, err := om.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name)
		VALUES ($1, $2)
	`, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create test organization: %w", err)
	}

	o := TestOrg{ID: id, Name: name}
	om.orgs = append(om.orgs, o)
	return &o, nil
}

// DropOrg removes a test organization and everything linked to it
func (om *OrgManager) DropOrg(ctx context.Context, o *TestOrg) error {
	om.mu.Lock()
	defer om.mu.Unlock()

	if err := om.deleteOrgRows(ctx, o.ID); err != nil {
		return err
	}

	for i, tracked := range om.orgs {
		if tracked.ID == o.ID {
			om.orgs = append(om.orgs[:i], om.orgs[i+1:]...)
			break
		}
	}

	return nil
}

// Cleanup removes all organizations created by this manager.
// Call this in TestMain or test cleanup.
func (om *OrgManager) Cleanup(ctx context.Context) error {
	om.mu.Lock()
	defer om.mu.Unlock()

	var lastErr error
	for _, o := range om.orgs {
		if err := om.deleteOrgRows(ctx, o.ID); err != nil {
			lastErr = err
		}
	}

	om.orgs = make([]TestOrg, 0)
	return lastErr
}

// deleteOrgRows removes org rows in FK order. Runs as the table owner,
// which bypasses RLS, so cleanup reaches every organization.
func (om *OrgManager) deleteOrgRows(ctx context.Context, orgID string) error {
	statements := []string{
		`DELETE FROM sale_items WHERE sale_id IN (SELECT id FROM sales WHERE organization_id = $1)`,
		`DELETE FROM sales WHERE organization_id = $1`,
		`DELETE FROM stock_alerts WHERE organization_id = $1`,
		`DELETE FROM products WHERE organization_id = $1`,
		`DELETE FROM clients WHERE organization_id = $1`,
		`DELETE FROM sessions WHERE user_id IN (SELECT id FROM profiles WHERE organization_id = $1)`,
		`DELETE FROM profiles WHERE organization_id = $1`,
		`DELETE FROM organizations WHERE id = $1`,
	}

	for _, stmt := range statements {
		if _, err := om.db.ExecContext(ctx, stmt, orgID); err != nil {
			return fmt.Errorf("failed to clean up test organization: %w", err)
		}
	}
	return nil
}

// WithTestOrg creates a context with the organization set for testing.
// This is the primary way to set up org context in tests.
func WithTestOrg(ctx context.Context, o *TestOrg) context.Context {
	return tenant.WithOrg(ctx, o.ID, o.Name)
}

// WithTestOrgID creates a context with a custom organization ID.
// Useful for testing error cases or edge conditions.
func WithTestOrgID(ctx context.Context, orgID string) context.Context {
	return tenant.WithOrgID(ctx, orgID)
}

// TestOrgContext creates a context with a fake organization for simple
// unit tests that don't need actual database isolation.
func TestOrgContext() context.Context {
	return tenant.WithOrg(context.Background(), "00000000-0000-0000-0000-000000000001", "Test Org")
}

// Migrations returns the full schema for tests, in apply order.
// Mirrors the production schema: pooled tables keyed by organization_id
// with row level security on every org-scoped table.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT organizations_name_key UNIQUE (name)
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'seller',
			organization_id UUID REFERENCES organizations(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT profiles_role_valid CHECK (role IN ('admin', 'supervisor', 'seller'))
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			refresh_token_hash VARCHAR(64) UNIQUE NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked_at TIMESTAMPTZ,
			user_agent TEXT,
			ip_address VARCHAR(45),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_used_at TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			name VARCHAR(255) NOT NULL,
			sku VARCHAR(100) NOT NULL,
			quantity INT NOT NULL DEFAULT 0,
			min_price_cents BIGINT NOT NULL DEFAULT 0,
			current_price_cents BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT products_org_sku_key UNIQUE (organization_id, sku),
			CONSTRAINT products_stock_nonnegative CHECK (quantity >= 0),
			CONSTRAINT products_price_nonnegative CHECK (min_price_cents >= 0 AND current_price_cents >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(50),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sales (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			client_id UUID REFERENCES clients(id),
			seller_id UUID NOT NULL REFERENCES profiles(id),
			total_amount_cents BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sale_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			sale_id UUID NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
			product_id UUID NOT NULL REFERENCES products(id),
			unit_price_cents BIGINT NOT NULL,
			quantity INT NOT NULL,
			CONSTRAINT sale_items_quantity_positive CHECK (quantity > 0)
		)`,

		`CREATE TABLE IF NOT EXISTS stock_alerts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			alert_type VARCHAR(50) NOT NULL DEFAULT 'low_stock',
			severity VARCHAR(20) NOT NULL DEFAULT 'warning',
			message TEXT NOT NULL,
			current_stock INT NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_products_org ON products(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_org ON clients(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_org_created ON sales(organization_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_alerts_org ON stock_alerts(organization_id) WHERE NOT resolved`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

		// RLS policies for org-scoped tables. The owner bypasses RLS, so
		// tests that need to verify isolation connect as a separate role.
		`ALTER TABLE products ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY products_org_isolation ON products
			USING (organization_id = current_setting('app.current_org')::uuid)
			WITH CHECK (organization_id = current_setting('app.current_org')::uuid)`,

		`ALTER TABLE clients ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY clients_org_isolation ON clients
			USING (organization_id = current_setting('app.current_org')::uuid)
			WITH CHECK (organization_id = current_setting('app.current_org')::uuid)`,

		`ALTER TABLE sales ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY sales_org_isolation ON sales
			USING (organization_id = current_setting('app.current_org')::uuid)
			WITH CHECK (organization_id = current_setting('app.current_org')::uuid)`,

		`ALTER TABLE sale_items ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY sale_items_org_isolation ON sale_items
			USING (sale_id IN (SELECT id FROM sales))
			WITH CHECK (sale_id IN (SELECT id FROM sales))`,

		`ALTER TABLE stock_alerts ENABLE ROW LEVEL SECURITY`,
		`CREATE POLICY stock_alerts_org_isolation ON stock_alerts
			USING (organization_id = current_setting('app.current_org')::uuid)
			WITH CHECK (organization_id = current_setting('app.current_org')::uuid)`,
	}
}
