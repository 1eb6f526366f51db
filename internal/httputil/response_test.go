package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondJSON(rec, map[string]string{"status": "ok"}, http.StatusCreated)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRespondErrorWithCode(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondErrorWithCode(rec, "task not found", CodeNotFound, http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "task not found", body.Error)
	assert.Equal(t, CodeNotFound, body.Code)
}

func TestRespondErrorOmitsEmptyCode(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondError(rec, "boom", http.StatusInternalServerError)

	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}
