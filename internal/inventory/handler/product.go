package handler

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexo/nexo-backend/internal/inventory/service"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
)

// maxImportBytes caps bulk import uploads at 5 MiB.
const maxImportBytes = 5 << 20

// ProductHandler handles product endpoints
type ProductHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(svc *service.InventoryService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  log,
	}
}

// List lists products, optionally filtered with ?search=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	products, err := h.service.ListProducts(r.Context(), search)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, products)
}

// Get gets a product by ID
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, product)
}

// Create adds a product (merges stock if the SKU already exists)
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ProductRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.Created(w, product)
}

// Update replaces a product's fields
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.ProductRequest
	if err := httputil.DecodeJSONLocalized(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, product)
}

// Delete removes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// BulkImport ingests a product CSV, either as a multipart "file" field
// or as a raw text/csv body.
func (h *ProductHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	body, err := importBody(r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	defer body.Close()

	result, err := h.service.ImportCSV(r.Context(), body, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func importBody(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, errors.BadRequest("invalid multipart upload")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.BadRequest("multipart upload is missing the \"file\" field")
		}
		return file, nil
	}
	return http.MaxBytesReader(nil, r.Body, maxImportBytes), nil
}
