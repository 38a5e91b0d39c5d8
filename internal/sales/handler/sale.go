package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nexo/nexo-backend/internal/sales/service"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// SaleHandler handles sale endpoints
type SaleHandler struct {
	service *service.SaleService
	logger  *logger.Logger
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(svc *service.SaleService, log *logger.Logger) *SaleHandler {
	return &SaleHandler{
		service: svc,
		logger:  log,
	}
}

// List lists recent sales, ?limit= caps the page size
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sales, err := h.service.List(r.Context(), limit)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sales)
}

// Get gets a sale with its items
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sale)
}

// Create runs a checkout
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSaleRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	sale, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.Created(w, sale)
}

// Receipt streams the PDF receipt for a sale
func (h *SaleHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	receipt, err := h.service.Receipt(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(receipt.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(receipt.Content); err != nil {
		h.logger.Warn().Err(err).Str("sale_id", id).Msg("failed to stream receipt")
	}
}
