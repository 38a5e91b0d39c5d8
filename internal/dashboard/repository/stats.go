package repository

import (
	"context"

	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// Fallback labels for rows whose joined name is gone or was never set.
const (
	AnonymousClientLabel = "Consumidor Final"
	UnknownSellerLabel   = "Vendedor Desconocido"
)

// Totals are the organization-wide sale aggregates
type Totals struct {
	RevenueCents int64 `db:"revenue_cents" json:"revenue_cents"`
	SaleCount    int64 `db:"sale_count" json:"sale_count"`
}

// RankedEntry is one row of a top-N ranking
type RankedEntry struct {
	Name       string `db:"name" json:"name"`
	TotalCents int64  `db:"total_cents" json:"total_cents"`
	SaleCount  int64  `db:"sale_count" json:"sale_count"`
}

// RankedProduct is one row of the top-products ranking
type RankedProduct struct {
	Name         string `db:"name" json:"name"`
	SKU          string `db:"sku" json:"sku"`
	UnitsSold    int64  `db:"units_sold" json:"units_sold"`
	RevenueCents int64  `db:"revenue_cents" json:"revenue_cents"`
}

// DashboardStats is the full analytics payload
type DashboardStats struct {
	Totals        Totals           `json:"totals"`
	TopClients    []*RankedEntry   `json:"top_clients"`
	TopSellers    []*RankedEntry   `json:"top_sellers"`
	TopProducts   []*RankedProduct `json:"top_products"`
	LowStockCount int64            `json:"low_stock_count"`
}

// StatsRepository computes dashboard aggregates
type StatsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const rankingLimit = 5

// Stats computes all dashboard aggregates in one RLS transaction so the
// numbers are a consistent snapshot.
// ORG-ISOLATED: rows are limited to the active organization via RLS.
func (r *StatsRepository) Stats(ctx context.Context, lowStockThreshold int) (*DashboardStats, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TopClients:  []*RankedEntry{},
		TopSellers:  []*RankedEntry{},
		TopProducts: []*RankedProduct{},
	}

	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		totalsQuery := `
			SELECT COALESCE(SUM(total_amount_cents), 0) AS revenue_cents,
			       COUNT(*) AS sale_count
			FROM sales
		`
		if err := r.db.GetContext(ctx, &stats.Totals, totalsQuery); err != nil {
			return err
		}

		clientsQuery := `
			SELECT COALESCE(c.full_name, '` + AnonymousClientLabel + `') AS name,
			       SUM(s.total_amount_cents) AS total_cents,
			       COUNT(*) AS sale_count
			FROM sales s
			LEFT JOIN clients c ON c.id = s.client_id
			GROUP BY 1
			ORDER BY total_cents DESC
			LIMIT $1
		`
		if err := r.db.SelectContext(ctx, &stats.TopClients, clientsQuery, rankingLimit); err != nil {
			return err
		}

		sellersQuery := `
			SELECT COALESCE(p.full_name, '` + UnknownSellerLabel + `') AS name,
			       SUM(s.total_amount_cents) AS total_cents,
			       COUNT(*) AS sale_count
			FROM sales s
			LEFT JOIN profiles p ON p.id = s.seller_id
			GROUP BY 1
			ORDER BY total_cents DESC
			LIMIT $1
		`
		if err := r.db.SelectContext(ctx, &stats.TopSellers, sellersQuery, rankingLimit); err != nil {
			return err
		}

		productsQuery := `
			SELECT pr.name, pr.sku,
			       SUM(i.quantity) AS units_sold,
			       SUM(i.quantity * i.unit_price_cents) AS revenue_cents
			FROM sale_items i
			JOIN sales s ON s.id = i.sale_id
			JOIN products pr ON pr.id = i.product_id
			GROUP BY pr.id, pr.name, pr.sku
			ORDER BY units_sold DESC
			LIMIT $1
		`
		if err := r.db.SelectContext(ctx, &stats.TopProducts, productsQuery, rankingLimit); err != nil {
			return err
		}

		lowStockQuery := `SELECT COUNT(*) FROM products WHERE quantity <= $1`
		return r.db.GetContext(ctx, &stats.LowStockCount, lowStockQuery, lowStockThreshold)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
