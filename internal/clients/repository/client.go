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

// Client is a customer record in the CRM directory
type Client struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ClientRepository handles client persistence
type ClientRepository struct {
	db *database.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *database.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, organization_id, full_name, email, phone, created_at`

// List lists clients ordered by name, optionally filtered by a
// case-insensitive name search.
// ORG-ISOLATED: rows are limited to the active organization via RLS.
func (r *ClientRepository) List(ctx context.Context, search string) ([]*Client, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	clients := []*Client{}
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		if search == "" {
			query := `SELECT ` + clientColumns + ` FROM clients ORDER BY full_name`
			return r.db.SelectContext(ctx, &clients, query)
		}
		query := `
			SELECT ` + clientColumns + ` FROM clients
			WHERE full_name ILIKE '%' || $1 || '%'
			ORDER BY full_name
		`
		return r.db.SelectContext(ctx, &clients, query, search)
	})
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// GetByID gets a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return nil, err
	}

	var client Client
	err = r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
		return r.db.GetContext(ctx, &client, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("client")
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// Create inserts a client
func (r *ClientRepository) Create(ctx context.Context, client *Client) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	client.OrganizationID = orgID

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		query := `
			INSERT INTO clients (id, organization_id, full_name, email, phone)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			client.ID, client.OrganizationID, client.FullName, client.Email, client.Phone,
		).Scan(&client.CreatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
		return nil
	})
}

// Delete removes a client. A client referenced by sales cannot be
// deleted and maps to a conflict.
func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	orgID, err := tenant.OrgID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithOrgRLS(ctx, orgID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return errors.Conflict("client has recorded sales and cannot be deleted")
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
			return errors.NotFound("client")
		}
		return nil
	})
}
