package handler

import (
	"net/http"

	"github.com/nexo/nexo-backend/internal/dashboard/service"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// DashboardHandler handles analytics endpoints
type DashboardHandler struct {
	service *service.DashboardService
	logger  *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(svc *service.DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		logger:  log,
	}
}

// Stats serves the dashboard aggregates for the active organization
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}
