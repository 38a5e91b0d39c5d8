package handler

import (
	"net/http"

	"github.com/nexo/nexo-backend/internal/auth/jwt"
	"github.com/nexo/nexo-backend/internal/auth/service"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/config"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/policy"
)

// CookieSession resolves the request principal from the auth cookies.
// When the access token has expired but a refresh token is present, it
// rotates the pair transparently and writes the new cookies.
type CookieSession struct {
	service    *service.AuthService
	jwtManager *jwt.Manager
	config     *config.Config
	logger     *logger.Logger
}

func NewCookieSession(svc *service.AuthService, jwtManager *jwt.Manager, cfg *config.Config, log *logger.Logger) *CookieSession {
	return &CookieSession{
		service:    svc,
		jwtManager: jwtManager,
		config:     cfg,
		logger:     log,
	}
}

// Resolve returns the authenticated actor, or nil when the request
// carries no usable session.
func (cs *CookieSession) Resolve(w http.ResponseWriter, r *http.Request) *actor.Actor {
	accessToken := cookieValue(r, AccessTokenCookie)
	if accessToken != "" {
		claims, err := cs.jwtManager.ValidateAccessToken(accessToken)
		if err == nil {
			return claimsActor(claims)
		}
		cs.logger.Debug().Err(err).Msg("access token rejected, trying refresh")
	}

	refreshToken := cookieValue(r, RefreshTokenCookie)
	if refreshToken == "" {
		return nil
	}

	tokens, user, err := cs.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		ClearAuthCookies(w, &cs.config.Auth)
		return nil
	}

	SetAuthCookies(w, &cs.config.Auth,
		tokens.AccessToken, tokens.RefreshToken,
		cs.config.JWT.AccessExpiry, cs.config.JWT.RefreshExpiry)

	var orgID *string
	if user.OrganizationID != nil && *user.OrganizationID != "" {
		orgID = user.OrganizationID
	}
	return &actor.Actor{
		ID:             user.ID,
		FullName:       user.Name,
		Email:          user.Email,
		Role:           policy.Normalize(user.Role),
		OrganizationID: orgID,
	}
}

func claimsActor(claims *jwt.Claims) *actor.Actor {
	var orgID *string
	if claims.OrganizationID != "" {
		id := claims.OrganizationID
		orgID = &id
	}
	return &actor.Actor{
		ID:             claims.UserID,
		FullName:       claims.Name,
		Email:          claims.Email,
		Role:           policy.Normalize(claims.Role),
		OrganizationID: orgID,
	}
}
