package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexo/nexo-backend/internal/auth/jwt"
	"github.com/nexo/nexo-backend/internal/auth/repository"
	"github.com/nexo/nexo-backend/pkg/config"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/policy"
)

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return uuid.New().String()
}

// EventPublisher publishes auth lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// OrgDirectory resolves the organization an admin lands on after login.
// Admins have no pinned organization, so the first one by name is used.
type OrgDirectory interface {
	FirstOrganizationID(ctx context.Context) (string, error)
}

// AuthService handles authentication logic
type AuthService struct {
	sessions   *repository.SessionRepository
	profiles   *repository.ProfileRepository
	orgs       OrgDirectory
	jwtManager *jwt.Manager
	publisher  EventPublisher
	config     *config.Config
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	sessions *repository.SessionRepository,
	profiles *repository.ProfileRepository,
	orgs OrgDirectory,
	jwtManager *jwt.Manager,
	publisher EventPublisher,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		sessions:   sessions,
		profiles:   profiles,
		orgs:       orgs,
		jwtManager: jwtManager,
		publisher:  publisher,
		config:     cfg,
		logger:     log,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
	User         *UserInfo `json:"user"`
	DefaultOrgID string    `json:"default_org_id,omitempty"`
	RedirectTo   string    `json:"redirect_to"`
}

// UserInfo represents user information
type UserInfo struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	OrganizationID *string `json:"organization_id,omitempty"`
}

func profileInfo(p *repository.Profile) *UserInfo {
	return &UserInfo{
		ID:             p.ID,
		Email:          p.Email,
		Name:           p.FullName,
		Role:           string(policy.Normalize(p.Role)),
		OrganizationID: p.OrganizationID,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, userAgent, ipAddress string) (*LoginResponse, error) {
	user, err := s.validateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.jwtManager.GetRefreshExpiry())

	orgID := s.defaultOrgID(ctx, user)

	tokenInfo := &jwt.UserInfo{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		OrganizationID: orgID,
	}

	// Generate a session ID first
	sessionID := generateSessionID()

	// Generate tokens with the session ID
	tokens, err := s.jwtManager.GenerateTokenPair(tokenInfo, sessionID)
	if err != nil {
		return nil, errors.Internal("failed to generate tokens")
	}

	// Create session with the actual refresh token
	_, err = s.sessions.CreateWithID(ctx, sessionID, user.ID, tokens.RefreshToken, expiresAt, userAgent, ipAddress)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create session")
		return nil, errors.Internal("failed to create session")
	}

	s.publishEvent(ctx, messaging.EventUserLoggedIn, &messaging.UserLoggedInEvent{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})

	return &LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		TokenType:    tokens.TokenType,
		User:         user,
		DefaultOrgID: orgID,
		RedirectTo:   policy.HomePath(policy.Role(user.Role)),
	}, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.sessions.RevokeByRefreshToken(ctx, refreshToken); err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke session")
	}
	if claims, err := s.jwtManager.ValidateRefreshToken(refreshToken); err == nil {
		s.publishEvent(ctx, messaging.EventUserLoggedOut, &messaging.UserLoggedOutEvent{UserID: claims.UserID})
	}
	return nil
}

// Refresh rotates the token pair using a refresh token. The stored
// session hash is replaced, so a stolen old token stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, *UserInfo, error) {
	// Validate refresh token
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	// Get session
	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, errors.Unauthorized("invalid session")
	}

	// Check session is not revoked
	if session.RevokedAt != nil {
		return nil, nil, errors.Unauthorized("session revoked")
	}

	// Re-resolve the profile so role changes apply on rotation
	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, errors.Unauthorized("invalid session")
	}
	user := profileInfo(profile)

	tokenInfo := &jwt.UserInfo{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		OrganizationID: s.defaultOrgID(ctx, user),
	}

	tokens, err := s.jwtManager.GenerateTokenPair(tokenInfo, session.ID)
	if err != nil {
		return nil, nil, errors.Internal("failed to generate tokens")
	}

	if err := s.sessions.UpdateRefreshTokenHash(ctx, session.ID, tokens.RefreshToken); err != nil {
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to rotate refresh token")
		return nil, nil, errors.Internal("failed to rotate session")
	}
	s.sessions.UpdateLastUsed(ctx, session.ID)

	return tokens, user, nil
}

// GetCurrentUser gets the current user by profile id
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*UserInfo, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileInfo(profile), nil
}

// validateCredentials checks the password against the stored bcrypt hash
func (s *AuthService) validateCredentials(ctx context.Context, email, password string) (*UserInfo, error) {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	return profileInfo(profile), nil
}

// defaultOrgID picks the org a user starts in. Supervisors and sellers
// are pinned to their own org. Admins get the first org by name, or
// none when no organizations exist yet.
func (s *AuthService) defaultOrgID(ctx context.Context, user *UserInfo) string {
	if user.OrganizationID != nil && *user.OrganizationID != "" {
		return *user.OrganizationID
	}
	if s.orgs == nil {
		return ""
	}
	orgID, err := s.orgs.FirstOrganizationID(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to resolve default organization")
		return ""
	}
	return orgID
}

func (s *AuthService) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish auth event")
	}
}
