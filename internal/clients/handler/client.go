package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexo/nexo-backend/internal/clients/service"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// ClientHandler handles client endpoints
type ClientHandler struct {
	service *service.ClientService
	logger  *logger.Logger
}

// NewClientHandler creates a new client handler
func NewClientHandler(svc *service.ClientService, log *logger.Logger) *ClientHandler {
	return &ClientHandler{
		service: svc,
		logger:  log,
	}
}

// List lists clients, optionally filtered with ?search=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	clients, err := h.service.List(r.Context(), search)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, clients)
}

// Get gets a client by ID
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, client)
}

// Create registers a client
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ClientRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	client, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.Created(w, client)
}

// Delete removes a client
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.NoContent(w)
}
