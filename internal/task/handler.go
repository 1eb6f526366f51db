package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tasknest/tasknest-api/internal/auth"
	"github.com/tasknest/tasknest-api/internal/httputil"
	"github.com/tasknest/tasknest-api/internal/logging"
)

// Store abstracts task persistence for the handler. Implemented by Repository.
type Store interface {
	ListByUser(ctx context.Context, userID int64) ([]Task, error)
	FindByID(ctx context.Context, id, userID int64) (*Task, error)
	Create(ctx context.Context, userID int64, title, description string) (*Task, error)
	Update(ctx context.Context, id, userID int64, title, description string) error
	Delete(ctx context.Context, id, userID int64) error
}

// Handler contains HTTP handlers for task endpoints. All routes sit behind
// the authentication and active-account gates; ownership filtering happens
// here against the resolved account.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// CreateTaskRequest represents the task creation request body
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTaskRequest represents the task update request body
type UpdateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// List returns the caller's own tasks
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Task
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	tasks, err := h.store.ListByUser(r.Context(), account.ID)
	if err != nil {
		logger.Error("failed to list tasks", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list tasks", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, tasks, http.StatusOK)
}

// Get returns a single task by id
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        taskID path int true "Task ID"
// @Success      200 {object} Task
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{taskID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid task id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	t, err := h.store.FindByID(r.Context(), id, account.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get task", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// Create adds a new task owned by the caller
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTaskRequest true "Task fields"
// @Success      201 {object} Task
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		httputil.RespondErrorWithCode(w, "missing required field: title", httputil.CodeMissingField, http.StatusBadRequest)
		return
	}

	t, err := h.store.Create(r.Context(), account.ID, req.Title, req.Description)
	if err != nil {
		logger.Error("failed to create task", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("task created", "task_id", t.ID, "user_id", account.ID)

	httputil.RespondJSON(w, t, http.StatusCreated)
}

// Update rewrites one of the caller's own tasks
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        taskID path int true "Task ID"
// @Param        request body UpdateTaskRequest true "Task fields"
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{taskID} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid task id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		httputil.RespondErrorWithCode(w, "missing required field: title", httputil.CodeMissingField, http.StatusBadRequest)
		return
	}

	if err := h.store.Update(r.Context(), id, account.ID, req.Title, req.Description); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to update task", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "task updated"}, http.StatusOK)
}

// Delete removes one of the caller's own tasks
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        taskID path int true "Task ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{taskID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid task id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), id, account.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "task not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete task", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete task", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "task deleted"}, http.StatusOK)
}
