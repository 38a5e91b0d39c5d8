package handler

import (
	"net/http"
	"strings"

	"github.com/nexo/nexo-backend/internal/auth/service"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/config"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service *service.AuthService
	config  *config.Config
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, cfg *config.Config, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		config:  cfg,
		logger:  log,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	userAgent := r.UserAgent()
	ipAddress := r.RemoteAddr

	response, err := h.service.Login(r.Context(), &req, userAgent, ipAddress)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	SetAuthCookies(w, &h.config.Auth,
		response.AccessToken, response.RefreshToken,
		h.config.JWT.AccessExpiry, h.config.JWT.RefreshExpiry)
	if response.DefaultOrgID != "" {
		SetOrgCookie(w, &h.config.Auth, response.DefaultOrgID, h.config.JWT.RefreshExpiry)
	}

	httputil.JSON(w, http.StatusOK, response)
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := cookieValue(r, RefreshTokenCookie)
	if refreshToken == "" {
		// Fall back to the Authorization header for API clients
		authHeader := r.Header.Get("Authorization")
		if parts := strings.Split(authHeader, " "); len(parts) == 2 {
			refreshToken = parts[1]
		}
	}

	if refreshToken != "" {
		if err := h.service.Logout(r.Context(), refreshToken); err != nil {
			h.logger.Warn().Err(err).Msg("logout error")
		}
	}

	ClearAuthCookies(w, &h.config.Auth)
	httputil.NoContent(w)
}

// Refresh handles token rotation
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := cookieValue(r, RefreshTokenCookie)
	if refreshToken == "" {
		var req struct {
			RefreshToken string `json:"refresh_token" validate:"required"`
		}
		if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
			httputil.ErrorLocalized(w, r, err)
			return
		}
		if err := httputil.Validate(&req); err != nil {
			httputil.ErrorLocalized(w, r, err)
			return
		}
		refreshToken = req.RefreshToken
	}

	tokens, user, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		ClearAuthCookies(w, &h.config.Auth)
		httputil.ErrorLocalized(w, r, err)
		return
	}

	SetAuthCookies(w, &h.config.Auth,
		tokens.AccessToken, tokens.RefreshToken,
		h.config.JWT.AccessExpiry, h.config.JWT.RefreshExpiry)

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.ExpiresAt,
		"token_type":    tokens.TokenType,
		"user":          user,
	})
}

// Me returns the current user's information
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := actor.FromContext(r.Context())
	if principal == nil {
		httputil.ErrorLocalized(w, r, errors.Unauthorized("not authenticated"))
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), principal.ID)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}
