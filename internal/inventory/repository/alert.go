package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// StockAlert represents a low-stock alert for a product
type StockAlert struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	ProductID      string    `db:"product_id" json:"product_id"`
	AlertType      string    `db:"alert_type" json:"alert_type"`
	Severity       string    `db:"severity" json:"severity"`
	Message        string    `db:"message" json:"message"`
	CurrentStock   int       `db:"current_stock" json:"current_stock"`
	Resolved       bool      `db:"resolved" json:"resolved"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`

	// Joined for the alerts list
	ProductName *string `db:"product_name" json:"product_name,omitempty"`
	ProductSKU  *string `db:"product_sku" json:"product_sku,omitempty"`
}

// AlertRepository handles stock alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create records an alert
func (r *AlertRepository) Create(ctx context.Context, alert *StockAlert) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	alert.OrganizationID = orgID
	if alert.AlertType == "" {
		alert.AlertType = "low_stock"
	}
	if alert.Severity == "" {
		alert.Severity = "warning"
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			INSERT INTO stock_alerts (id, organization_id, product_id, alert_type, severity, message, current_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`
		return r.db.QueryRowxContext(ctx, query,
			alert.ID, alert.OrganizationID, alert.ProductID,
			alert.AlertType, alert.Severity, alert.Message, alert.CurrentStock,
		).Scan(&alert.CreatedAt)
	})
}

// ListUnresolved lists open alerts, newest first, with product context
func (r *AlertRepository) ListUnresolved(ctx context.Context) ([]*StockAlert, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	alerts := []*StockAlert{}
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT a.id, a.organization_id, a.product_id, a.alert_type, a.severity,
			       a.message, a.current_stock, a.resolved, a.created_at,
			       p.name AS product_name, p.sku AS product_sku
			FROM stock_alerts a
			JOIN products p ON p.id = a.product_id
			WHERE NOT a.resolved
			ORDER BY a.created_at DESC
		`
		return r.db.SelectContext(ctx, &alerts, query)
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// HasOpenAlert reports whether the product already has an unresolved
// low-stock alert, so the consumer does not pile up duplicates.
func (r *AlertRepository) HasOpenAlert(ctx context.Context, productID string) (bool, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return false, err
	}

	var count int
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT COUNT(*) FROM stock_alerts WHERE product_id = $1 AND NOT resolved`
		return r.db.GetContext(ctx, &count, query, productID)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Resolve marks an alert as handled
func (r *AlertRepository) Resolve(ctx context.Context, id string) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `UPDATE stock_alerts SET resolved = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.NotFound("alert")
		}
		return nil
	})
}

// ResolveForProduct closes all open alerts for a product, used when
// stock is replenished above the threshold.
func (r *AlertRepository) ResolveForProduct(ctx context.Context, productID string) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx,
			`UPDATE stock_alerts SET resolved = TRUE WHERE product_id = $1 AND NOT resolved`, productID)
		return err
	})
}
