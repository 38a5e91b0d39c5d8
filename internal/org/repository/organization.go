package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/errors"
)

// Organization represents a tenant organization
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrganizationRepository handles organization persistence.
// Organizations are the tenancy root, so queries here are global
// and never run under an org scope.
type OrganizationRepository struct {
	db *database.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *database.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// List returns all organizations ordered by name
func (r *OrganizationRepository) List(ctx context.Context) ([]*Organization, error) {
	query := `SELECT id, name, created_at, updated_at FROM organizations ORDER BY name`

	orgs := []*Organization{}
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetByID gets an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	query := `SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`

	var org Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("organization")
		}
		return nil, err
	}
	return &org, nil
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}

	query := `
		INSERT INTO organizations (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, org.ID, org.Name).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// Delete removes an organization. An organization with dependent rows
// (profiles, products, sales...) cannot be deleted and maps to a conflict.
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM organizations WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return errors.Conflict("organization has linked records and cannot be deleted")
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("organization")
	}
	return nil
}

// FirstOrganizationID returns the id of the first organization by name,
// or an empty string when none exist. Implements the login default for
// admins without a pinned organization.
func (r *OrganizationRepository) FirstOrganizationID(ctx context.Context) (string, error) {
	query := `SELECT id FROM organizations ORDER BY name LIMIT 1`

	var id string
	if err := r.db.GetContext(ctx, &id, query); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return id, nil
}
