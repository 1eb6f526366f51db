package product

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tasknest/tasknest-api/internal/auth"
	"github.com/tasknest/tasknest-api/internal/httputil"
	"github.com/tasknest/tasknest-api/internal/logging"
)

// Store abstracts product persistence for the handler. Implemented by Repository.
type Store interface {
	ListByUser(ctx context.Context, userID int64) ([]Product, error)
	FindBySKU(ctx context.Context, sku string, userID int64) (*Product, error)
	Create(ctx context.Context, userID int64, input CreateInput) (*Product, error)
	Update(ctx context.Context, sku string, userID int64, input UpdateInput) error
	Delete(ctx context.Context, sku string, userID int64) error
}

// Handler contains HTTP handlers for product endpoints. All routes sit behind
// the authentication and active-account gates.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// CreateProductRequest represents the product creation request body. The SKU
// is assigned by the server and cannot be supplied here.
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	CategoryID  int64   `json:"category_id"`
	Stock       int     `json:"stock"`
	Status      string  `json:"status"`
	Brand       string  `json:"brand"`
}

// UpdateProductRequest represents the product update request body
type UpdateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	CategoryID  int64   `json:"category_id"`
	Stock       int     `json:"stock"`
	Status      string  `json:"status"`
	Brand       string  `json:"brand"`
}

// validate requires every field of a new product. Zero values are rejected
// across the board; stock gets its own error since a zero or negative count
// is a distinct mistake from an omitted field.
func (req *CreateProductRequest) validate() (string, bool) {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name", false
	case strings.TrimSpace(req.Description) == "":
		return "description", false
	case req.Price == 0:
		return "price", false
	case req.CategoryID == 0:
		return "category_id", false
	case strings.TrimSpace(req.Status) == "":
		return "status", false
	case strings.TrimSpace(req.Brand) == "":
		return "brand", false
	}
	return "", true
}

// List returns the caller's own products
// @Summary      List products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Product
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /products [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	products, err := h.store.ListByUser(r.Context(), account.ID)
	if err != nil {
		logger.Error("failed to list products", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list products", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, products, http.StatusOK)
}

// Get returns a single product by SKU
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        sku path string true "Product SKU"
// @Success      200 {object} Product
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /products/{sku} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	sku := chi.URLParam(r, "sku")

	p, err := h.store.FindBySKU(r.Context(), sku, account.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "product not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get product", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get product", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, p, http.StatusOK)
}

// Create adds a new product owned by the caller
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateProductRequest true "Product fields"
// @Success      201 {object} Product
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Router       /products [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if field, ok := req.validate(); !ok {
		httputil.RespondErrorWithCode(w, "missing required field: "+field, httputil.CodeMissingField, http.StatusBadRequest)
		return
	}

	if req.Stock <= 0 {
		httputil.RespondErrorWithCode(w, "stock must be greater than zero", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if !ValidStatus(req.Status) {
		httputil.RespondErrorWithCode(w, "invalid product status", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	p, err := h.store.Create(r.Context(), account.ID, CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Stock:       req.Stock,
		Status:      req.Status,
		Brand:       req.Brand,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httputil.RespondErrorWithCode(w, "product already exists", httputil.CodeAlreadyExists, http.StatusConflict)
			return
		}
		logger.Error("failed to create product", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create product", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("product created", "sku", p.SKU, "user_id", account.ID)

	httputil.RespondJSON(w, p, http.StatusCreated)
}

// Update rewrites one of the caller's own products
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        sku path string true "Product SKU"
// @Param        request body UpdateProductRequest true "Product fields"
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /products/{sku} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	sku := chi.URLParam(r, "sku")

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		httputil.RespondErrorWithCode(w, "missing required field: name", httputil.CodeMissingField, http.StatusBadRequest)
		return
	}

	if !ValidStatus(req.Status) {
		httputil.RespondErrorWithCode(w, "invalid product status", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	input := UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Stock:       req.Stock,
		Status:      req.Status,
		Brand:       req.Brand,
	}

	if err := h.store.Update(r.Context(), sku, account.ID, input); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "product not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update product", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update product", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "product updated"}, http.StatusOK)
}

// Delete removes one of the caller's own products
// @Summary      Delete a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        sku path string true "Product SKU"
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /products/{sku} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	sku := chi.URLParam(r, "sku")

	if err := h.store.Delete(r.Context(), sku, account.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "product not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete product", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete product", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "product deleted"}, http.StatusOK)
}
