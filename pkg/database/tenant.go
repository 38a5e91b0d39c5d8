package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithOrgRLS executes a function with RLS-based organization isolation.
// This is the KEY isolation mechanism for RLS-based pooled multi-tenancy.
//
// Usage in repositories:
//
//	orgID, err := tenant.OrgID(ctx)
//	if err != nil { return err }
//	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
//	})
//
// How it works:
//  1. Starts a transaction
//  2. Sets "SET LOCAL search_path TO <schema>, public" (from db.searchPath)
//  3. Sets "SET LOCAL app.current_org = '<org-uuid>'"
//  4. RLS policies filter rows automatically: USING (organization_id = current_setting('app.current_org')::uuid)
//  5. Commits transaction (auto-cleanup of session variables)
//
// Why this is secure:
//   - SET LOCAL is scoped to transaction (automatic cleanup)
//   - Even with connection pooling (PgBouncer), next request gets clean state
//   - RLS policies are enforced by PostgreSQL engine, app code can't bypass them
//   - WITH CHECK prevents inserting rows for the wrong organization
func (db *DB) WithOrgRLS(ctx context.Context, orgID string, fn func(context.Context) error) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		searchPath := db.searchPath
		if searchPath == "" {
			searchPath = "public"
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", searchPath)); err != nil {
			return fmt.Errorf("failed to set search_path to %s: %w", searchPath, err)
		}

		// Set org context for RLS policies.
		// NOTE: SET LOCAL doesn't support parameterized queries ($1), must use fmt.Sprintf.
		// This is safe because orgID is a UUID validated upstream (not user input).
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL app.current_org = '%s'", orgID)); err != nil {
			return fmt.Errorf("failed to set app.current_org to %s: %w", orgID, err)
		}

		txCtx := context.WithValue(ctx, txKey{}, tx)

		return fn(txCtx)
	})
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// GetContext runs the query through the context transaction when one is
// active, falling back to the pool otherwise. Repositories always call
// these wrappers so queries inside WithOrgRLS stay on the RLS transaction.
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if tx := db.getTx(ctx); tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return db.DB.GetContext(ctx, dest, query, args...)
}

// SelectContext runs the query through the context transaction when one is active.
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if tx := db.getTx(ctx); tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return db.DB.SelectContext(ctx, dest, query, args...)
}

// ExecContext runs the statement through the context transaction when one is active.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if tx := db.getTx(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return db.DB.ExecContext(ctx, query, args...)
}

// QueryRowxContext runs the query through the context transaction when one is active.
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	if tx := db.getTx(ctx); tx != nil {
		return tx.QueryRowxContext(ctx, query, args...)
	}
	return db.DB.QueryRowxContext(ctx, query, args...)
}
