package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authhandler "github.com/nexo/nexo-backend/internal/auth/handler"
	"github.com/nexo/nexo-backend/internal/org/service"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/config"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/policy"
)

// OrgHandler handles organization and switchboard endpoints
type OrgHandler struct {
	service *service.OrgService
	config  *config.Config
	logger  *logger.Logger
}

// NewOrgHandler creates a new organization handler
func NewOrgHandler(svc *service.OrgService, cfg *config.Config, log *logger.Logger) *OrgHandler {
	return &OrgHandler{
		service: svc,
		config:  cfg,
		logger:  log,
	}
}

// List returns all organizations
func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.List(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, orgs)
}

// Create creates a new organization
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	org, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.Created(w, org)
}

// Delete removes an organization
func (h *OrgHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// SwitchRequest is the payload for changing the active organization
type SwitchRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
}

// Switch changes the caller's active organization and rewrites the
// org cookie so subsequent requests land in the new scope.
func (h *OrgHandler) Switch(w http.ResponseWriter, r *http.Request) {
	principal := actor.FromContext(r.Context())
	if principal == nil {
		httputil.ErrorLocalized(w, r, errors.Unauthorized("not authenticated"))
		return
	}

	var req SwitchRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	org, err := h.service.Switch(r.Context(), principal, req.OrganizationID)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	authhandler.SetOrgCookie(w, &h.config.Auth, org.ID, h.config.JWT.RefreshExpiry)

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"organization": org,
		"switched_at":  time.Now().UTC(),
	})
}

// Navigation returns the role-filtered menu for the current user
func (h *OrgHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	principal := actor.FromContext(r.Context())
	if principal == nil {
		httputil.ErrorLocalized(w, r, errors.Unauthorized("not authenticated"))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"role":  principal.Role,
		"home":  policy.HomePath(principal.Role),
		"links": policy.NavLinks(principal.Role),
	})
}
