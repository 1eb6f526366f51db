package category

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tasknest/tasknest-api/internal/httputil"
	"github.com/tasknest/tasknest-api/internal/logging"
)

// Store abstracts category persistence for the handler. Implemented by Repository.
type Store interface {
	List(ctx context.Context) ([]Category, error)
	FindByID(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, name string) (*Category, error)
	Delete(ctx context.Context, id int64) error
}

// Handler contains HTTP handlers for category endpoints. Categories are
// shared data, so handlers never consult the resolved account beyond the
// gates applied by the router.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// CreateCategoryRequest represents the category creation request body
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// List returns all categories
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Category
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /categories [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	categories, err := h.store.List(r.Context())
	if err != nil {
		logger.Error("failed to list categories", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list categories", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, categories, http.StatusOK)
}

// Get returns a single category by id
// @Summary      Get a category
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        categoryID path int true "Category ID"
// @Success      200 {object} Category
// @Failure      404 {object} httputil.ErrorResponse "Category not found"
// @Router       /categories/{categoryID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid category id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	c, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "category not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get category", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get category", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, c, http.StatusOK)
}

// Create adds a new category
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateCategoryRequest true "Category fields"
// @Success      201 {object} Category
// @Failure      409 {object} httputil.ErrorResponse "Category already exists"
// @Router       /categories [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		httputil.RespondErrorWithCode(w, "missing required field: name", httputil.CodeMissingField, http.StatusBadRequest)
		return
	}

	c, err := h.store.Create(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httputil.RespondErrorWithCode(w, "category already exists", httputil.CodeAlreadyExists, http.StatusConflict)
			return
		}
		logger.Error("failed to create category", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create category", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("category created", "category_id", c.ID)

	httputil.RespondJSON(w, c, http.StatusCreated)
}

// Delete removes a category
// @Summary      Delete a category
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        categoryID path int true "Category ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "Category not found"
// @Router       /categories/{categoryID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid category id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "category not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete category", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete category", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "category deleted"}, http.StatusOK)
}
