package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// Sale is a completed point-of-sale transaction
type Sale struct {
	ID               string    `db:"id" json:"id"`
	OrganizationID   string    `db:"organization_id" json:"organization_id"`
	ClientID         *string   `db:"client_id" json:"client_id,omitempty"`
	SellerID         string    `db:"seller_id" json:"seller_id"`
	TotalAmountCents int64     `db:"total_amount_cents" json:"total_amount_cents"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`

	// Joined for listings and receipts.
	ClientName       *string `db:"client_name" json:"client_name,omitempty"`
	SellerName       *string `db:"seller_name" json:"seller_name,omitempty"`
	OrganizationName *string `db:"organization_name" json:"-"`

	Items []*SaleItem `json:"items,omitempty"`
}

// SaleItem is one sold line within a sale
type SaleItem struct {
	ID             string `db:"id" json:"id"`
	SaleID         string `db:"sale_id" json:"sale_id"`
	ProductID      string `db:"product_id" json:"product_id"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
	Quantity       int    `db:"quantity" json:"quantity"`

	// Joined from products.
	ProductName *string `db:"product_name" json:"product_name,omitempty"`
	ProductSKU  *string `db:"product_sku" json:"product_sku,omitempty"`
}

// SubtotalCents is the line total
func (i *SaleItem) SubtotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// SaleRepository handles sale persistence
type SaleRepository struct {
	db *database.DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *database.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

const saleColumns = `s.id, s.organization_id, s.client_id, s.seller_id, s.total_amount_cents, s.created_at`

// List lists sales newest first with the client name joined in.
// ORG-ISOLATED: rows are limited to the active organization via RLS.
func (r *SaleRepository) List(ctx context.Context, limit int) ([]*Sale, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	sales := []*Sale{}
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT ` + saleColumns + `, c.full_name AS client_name, p.full_name AS seller_name
			FROM sales s
			LEFT JOIN clients c ON c.id = s.client_id
			LEFT JOIN profiles p ON p.id = s.seller_id
			ORDER BY s.created_at DESC
			LIMIT $1
		`
		return r.db.SelectContext(ctx, &sales, query, limit)
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// GetByID gets a sale with its items
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*Sale, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var sale Sale
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			SELECT ` + saleColumns + `, c.full_name AS client_name, p.full_name AS seller_name,
			       o.name AS organization_name
			FROM sales s
			LEFT JOIN clients c ON c.id = s.client_id
			LEFT JOIN profiles p ON p.id = s.seller_id
			JOIN organizations o ON o.id = s.organization_id
			WHERE s.id = $1
		`
		if err := r.db.GetContext(ctx, &sale, query, id); err != nil {
			return err
		}

		itemsQuery := `
			SELECT i.id, i.sale_id, i.product_id, i.unit_price_cents, i.quantity,
			       pr.name AS product_name, pr.sku AS product_sku
			FROM sale_items i
			JOIN products pr ON pr.id = i.product_id
			WHERE i.sale_id = $1
			ORDER BY pr.name
		`
		return r.db.SelectContext(ctx, &sale.Items, itemsQuery, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("sale")
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// CreateWithItems records a sale, its items and the stock decrements in
// one transaction. A line whose product no longer has enough stock
// aborts the whole sale with an insufficient stock conflict, so checkout
// is safe against concurrent sales of the same product.
func (r *SaleRepository) CreateWithItems(ctx context.Context, sale *Sale) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	sale.OrganizationID = orgID

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		saleQuery := `
			INSERT INTO sales (id, organization_id, client_id, seller_id, total_amount_cents)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`
		err := r.db.QueryRowxContext(ctx, saleQuery,
			sale.ID, sale.OrganizationID, sale.ClientID, sale.SellerID, sale.TotalAmountCents,
		).Scan(&sale.CreatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		for _, item := range sale.Items {
			// Guarded decrement, fails closed when stock ran out
			// between validation and commit.
			result, err := r.db.ExecContext(ctx,
				`UPDATE products SET quantity = quantity - $2, updated_at = NOW()
				 WHERE id = $1 AND quantity >= $2`,
				item.ProductID, item.Quantity,
			)
			if err != nil {
				if appErr := database.MapPQError(err); appErr != nil {
					return appErr
				}
				return err
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				sku := item.ProductID
				if item.ProductSKU != nil {
					sku = *item.ProductSKU
				}
				return errors.InsufficientStock(sku)
			}

			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.SaleID = sale.ID

			_, err = r.db.ExecContext(ctx,
				`INSERT INTO sale_items (id, sale_id, product_id, unit_price_cents, quantity)
				 VALUES ($1, $2, $3, $4, $5)`,
				item.ID, item.SaleID, item.ProductID, item.UnitPriceCents, item.Quantity,
			)
			if err != nil {
				if appErr := database.MapPQError(err); appErr != nil {
					return appErr
				}
				return err
			}
		}
		return nil
	})
}
