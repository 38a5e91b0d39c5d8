package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexo/nexo-backend/internal/inventory/service"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// AlertHandler handles stock alert endpoints
type AlertHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(svc *service.InventoryService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service: svc,
		logger:  log,
	}
}

// List lists open low-stock alerts, newest first
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.ListAlerts(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, alerts)
}

// Resolve marks an alert as handled
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.ResolveAlert(r.Context(), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.NoContent(w)
}
