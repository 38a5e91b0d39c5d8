package service

import (
	"context"
	"strings"

	"github.com/nexo/nexo-backend/internal/org/repository"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/switchboard"
)

// EventPublisher publishes organization lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// OrgService handles organization management and the active-org switchboard.
type OrgService struct {
	repo        *repository.OrganizationRepository
	switchboard *switchboard.Store
	publisher   EventPublisher
	logger      *logger.Logger
}

// NewOrgService creates a new organization service
func NewOrgService(repo *repository.OrganizationRepository, sb *switchboard.Store, publisher EventPublisher, log *logger.Logger) *OrgService {
	return &OrgService{
		repo:        repo,
		switchboard: sb,
		publisher:   publisher,
		logger:      log,
	}
}

// CreateRequest is the payload for creating an organization
type CreateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// List returns all organizations ordered by name
func (s *OrgService) List(ctx context.Context) ([]*repository.Organization, error) {
	return s.repo.List(ctx)
}

// Get returns one organization
func (s *OrgService) Get(ctx context.Context, id string) (*repository.Organization, error) {
	return s.repo.GetByID(ctx, id)
}

// Create creates a new organization
func (s *OrgService) Create(ctx context.Context, req *CreateRequest) (*repository.Organization, error) {
	org := &repository.Organization{Name: strings.TrimSpace(req.Name)}
	if org.Name == "" {
		return nil, errors.Validation(map[string]string{"name": "must not be empty"})
	}

	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, messaging.EventOrgCreated, &messaging.OrgCreatedEvent{
		OrganizationID: org.ID,
		Name:           org.Name,
		CreatedBy:      actorID(ctx),
	})
	return org, nil
}

// Delete removes an organization
func (s *OrgService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, messaging.EventOrgDeleted, &messaging.OrgDeletedEvent{
		OrganizationID: id,
		DeletedBy:      actorID(ctx),
	})
	return nil
}

func actorID(ctx context.Context) string {
	if a := actor.FromContext(ctx); a != nil {
		return a.ID
	}
	return ""
}

// Switch changes the caller's active organization. Only admins float
// between organizations; everyone else is pinned to their own.
func (s *OrgService) Switch(ctx context.Context, principal *actor.Actor, orgID string) (*repository.Organization, error) {
	if !principal.IsAdmin() {
		return nil, errors.Forbidden("only admins can switch organizations")
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var previousOrgID string
	if prev, ok := s.switchboard.Current(principal.ID); ok {
		previousOrgID = prev.OrgID
	}

	s.switchboard.Select(switchboard.Selection{
		UserID:  principal.ID,
		OrgID:   org.ID,
		OrgName: org.Name,
	})

	s.publishEvent(ctx, messaging.EventOrgSwitched, &messaging.OrgSwitchedEvent{
		UserID:         principal.ID,
		OrganizationID: org.ID,
		PreviousOrgID:  previousOrgID,
	})

	s.logger.Info().
		Str("user_id", principal.ID).
		Str("organization_id", org.ID).
		Msg("active organization switched")

	return org, nil
}

func (s *OrgService) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish org event")
	}
}
