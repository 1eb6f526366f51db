package task

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest-api/internal/auth"
	"github.com/tasknest/tasknest-api/internal/user"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListByUser(ctx context.Context, userID int64) ([]Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]Task), args.Error(1)
}

func (m *mockStore) FindByID(ctx context.Context, id, userID int64) (*Task, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, userID int64, title, description string) (*Task, error) {
	args := m.Called(ctx, userID, title, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id, userID int64, title, description string) error {
	args := m.Called(ctx, id, userID, title, description)
	return args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// newRouter wires the handler the way the real router does, with a fixed
// authenticated account injected ahead of it.
func newRouter(store Store, account *user.Account) http.Handler {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			resolver := &staticResolver{account: account}
			m := auth.NewMiddleware(resolver)
			m.Authenticate(next).ServeHTTP(w, req)
		})
	})
	r.Get("/tasks", h.List)
	r.Post("/tasks", h.Create)
	r.Get("/tasks/{taskID}", h.Get)
	r.Put("/tasks/{taskID}", h.Update)
	r.Delete("/tasks/{taskID}", h.Delete)
	return r
}

type staticResolver struct {
	account *user.Account
}

func (s *staticResolver) ResolveAccount(_ context.Context, _ string) (*user.Account, error) {
	if s.account == nil {
		return nil, auth.ErrInvalidCredentials
	}
	return s.account, nil
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer test-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListScopedToOwner(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	account := &user.Account{ID: 42, Username: "alice", Active: true}

	// The handler must query with the resolved account's id, nothing else.
	store.On("ListByUser", mock.Anything, int64(42)).Return([]Task{{ID: 1, Title: "laundry", UserID: 42}}, nil)

	rec := doRequest(t, newRouter(store, account), http.MethodGet, "/tasks", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(42), tasks[0].UserID)
	store.AssertExpectations(t)
}

func TestGetForeignTaskLooksMissing(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	account := &user.Account{ID: 42, Username: "alice", Active: true}

	// The row exists but belongs to someone else; the repository reports
	// not-found because ownership is part of the predicate.
	store.On("FindByID", mock.Anything, int64(7), int64(42)).Return(nil, ErrNotFound)

	rec := doRequest(t, newRouter(store, account), http.MethodGet, "/tasks/7", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRequiresTitle(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	account := &user.Account{ID: 42, Username: "alice", Active: true}

	rec := doRequest(t, newRouter(store, account), http.MethodPost, "/tasks", CreateTaskRequest{Description: "no title"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "Create")
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	account := &user.Account{ID: 42, Username: "alice", Active: true}

	store.On("Create", mock.Anything, int64(42), "laundry", "whites only").
		Return(&Task{ID: 3, Title: "laundry", Description: "whites only", UserID: 42}, nil)

	rec := doRequest(t, newRouter(store, account), http.MethodPost, "/tasks", CreateTaskRequest{
		Title:       "laundry",
		Description: "whites only",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var created Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(3), created.ID)
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	router := newRouter(store, nil) // resolver fails

	rec := doRequest(t, router, http.MethodGet, "/tasks", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	store.AssertNotCalled(t, "ListByUser")
}
