package service

import (
	"context"
	"strings"

	"github.com/nexo/nexo-backend/internal/clients/repository"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// ClientService handles the customer directory
type ClientService struct {
	repo   *repository.ClientRepository
	logger *logger.Logger
}

// NewClientService creates a new client service
func NewClientService(repo *repository.ClientRepository, log *logger.Logger) *ClientService {
	return &ClientService{repo: repo, logger: log}
}

// ClientRequest is the payload for registering a client
type ClientRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
}

// List lists clients, optionally filtered by a name search term
func (s *ClientService) List(ctx context.Context, search string) ([]*repository.Client, error) {
	return s.repo.List(ctx, search)
}

// Get gets one client
func (s *ClientService) Get(ctx context.Context, id string) (*repository.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a client. Email and phone are optional, blank values
// are stored as NULL.
func (s *ClientService) Create(ctx context.Context, req *ClientRequest) (*repository.Client, error) {
	client := &repository.Client{
		FullName: strings.TrimSpace(req.FullName),
		Email:    normalizeOptional(req.Email),
		Phone:    normalizeOptional(req.Phone),
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("client_id", client.ID).
		Str("organization_id", client.OrganizationID).
		Msg("client registered")

	return client, nil
}

// Delete removes a client
func (s *ClientService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
