package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// Handler serves the product endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler wires the product endpoints to service.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers product routes. The router is expected to sit behind the auth middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/product", h.List)
	r.Post("/product", h.Create)
}

// List responds with the caller's products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrTokenMissing, "")
		return
	}
	items, err := h.service.List(r.Context(), id.AccountID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Error fetching products")
		return
	}
	httpx.OK(w, r, http.StatusOK, newProductList(items), "Products fetched successfully")
}

// Create adds a product for the caller and responds with 201.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.ErrTokenMissing, "")
		return
	}
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.service.Create(r.Context(), id.AccountID, CreateProductInput{
		ProductCode: req.ProductCode,
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Server error during product creation")
		return
	}
	httpx.OK(w, r, http.StatusCreated, newProductResponse(created), "Product created successfully")
}
