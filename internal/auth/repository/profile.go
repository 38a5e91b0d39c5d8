package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// Profile is a row in the profiles table. Profiles drive authentication
// and role resolution, so they are read outside of any org scope.
type Profile struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	FullName       string    `db:"full_name" json:"full_name"`
	Role           string    `db:"role" json:"role"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileRepository reads profiles for the login and refresh flows.
type ProfileRepository struct {
	db  *database.DB
	log *logger.Logger
}

func NewProfileRepository(db *database.DB, log *logger.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		log: log.WithComponent("profile-repository"),
	}
}

const profileColumns = `id, email, password_hash, full_name, role, organization_id, created_at, updated_at`

// GetByEmail finds a profile by email, case-insensitively.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE LOWER(email) = LOWER($1)`

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("profile")
		}
		r.log.Error().Err(err).Str("email", email).Msg("Failed to get profile by email")
		return nil, err
	}

	return &profile, nil
}

// GetByID finds a profile by its UUID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("profile")
		}
		r.log.Error().Err(err).Str("profile_id", id).Msg("Failed to get profile by id")
		return nil, err
	}

	return &profile, nil
}
