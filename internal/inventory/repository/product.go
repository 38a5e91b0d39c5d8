package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// Product represents a catalog product with its stock level.
// Prices are integer cents; min_price_cents is the sale price floor.
type Product struct {
	ID                string    `db:"id" json:"id"`
	OrganizationID    string    `db:"organization_id" json:"organization_id"`
	Name              string    `db:"name" json:"name"`
	SKU               string    `db:"sku" json:"sku"`
	Quantity          int       `db:"quantity" json:"quantity"`
	MinPriceCents     int64     `db:"min_price_cents" json:"min_price_cents"`
	CurrentPriceCents int64     `db:"current_price_cents" json:"current_price_cents"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether the product is at or below the alert threshold.
func (p *Product) LowStock(threshold int) bool {
	return p.Quantity <= threshold
}

// ProductRepository handles product persistence
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, organization_id, name, sku, quantity, min_price_cents, current_price_cents, created_at, updated_at`

// List lists products ordered by name, optionally filtered by a
// case-insensitive name or SKU search term.
// ORG-ISOLATED: rows are limited to the active organization via RLS.
func (r *ProductRepository) List(ctx context.Context, search string) ([]*Product, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	products := []*Product{}
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		if search == "" {
			query := `SELECT ` + productColumns + ` FROM products ORDER BY name`
			return r.db.SelectContext(ctx, &products, query)
		}
		query := `
			SELECT ` + productColumns + `
			FROM products
			WHERE name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%'
			ORDER BY name
		`
		return r.db.SelectContext(ctx, &products, query, search)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var product Product
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
		return r.db.GetContext(ctx, &product, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetBySKU gets a product by SKU within the active organization
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var product Product
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`
		return r.db.GetContext(ctx, &product, query, sku)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// upsertQuery inserts a product or, when the SKU already exists in the
// organization, adds the incoming quantity to the stock and refreshes
// name and prices. Manual creation and CSV import share this path.
// xmax = 0 distinguishes a fresh insert from a conflict update.
const upsertQuery = `
	INSERT INTO products (id, organization_id, name, sku, quantity, min_price_cents, current_price_cents)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (organization_id, sku) DO UPDATE SET
		name = EXCLUDED.name,
		quantity = products.quantity + EXCLUDED.quantity,
		min_price_cents = EXCLUDED.min_price_cents,
		current_price_cents = EXCLUDED.current_price_cents,
		updated_at = NOW()
	RETURNING id, quantity, created_at, updated_at, (xmax = 0) AS inserted
`

func (r *ProductRepository) upsertOne(ctx context.Context, orgID string, product *Product) (bool, error) {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.OrganizationID = orgID

	var inserted bool
	err := r.db.QueryRowxContext(ctx, upsertQuery,
		product.ID, product.OrganizationID, product.Name, product.SKU,
		product.Quantity, product.MinPriceCents, product.CurrentPriceCents,
	).Scan(&product.ID, &product.Quantity, &product.CreatedAt, &product.UpdatedAt, &inserted)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return false, appErr
		}
		return false, err
	}
	return inserted, nil
}

// Upsert inserts or merges one product by SKU. Returns true when a new
// row was created rather than an existing one updated.
func (r *ProductRepository) Upsert(ctx context.Context, product *Product) (bool, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		var err error
		inserted, err = r.upsertOne(ctx, orgID, product)
		return err
	})
	return inserted, err
}

// UpsertMany upserts a batch of products in one transaction, so a bad
// row rolls back the whole file. Returns created and updated counts.
func (r *ProductRepository) UpsertMany(ctx context.Context, products []*Product) (created, updated int, err error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return 0, 0, err
	}

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		for _, product := range products {
			inserted, err := r.upsertOne(ctx, orgID, product)
			if err != nil {
				return err
			}
			if inserted {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// Update updates a product's name, prices and stock level
func (r *ProductRepository) Update(ctx context.Context, product *Product) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			UPDATE products SET
				name = $2, sku = $3, quantity = $4,
				min_price_cents = $5, current_price_cents = $6,
				updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			product.ID, product.Name, product.SKU, product.Quantity,
			product.MinPriceCents, product.CurrentPriceCents,
		).Scan(&product.UpdatedAt)
		if err == sql.ErrNoRows {
			return errors.NotFound("product")
		}
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return errors.Conflict("product has recorded sales and cannot be deleted")
			}
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
			return errors.NotFound("product")
		}
		return nil
	})
}
