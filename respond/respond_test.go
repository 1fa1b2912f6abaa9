package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorMapsCodedErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	Error(rec, req, apperr.Forbidden("Forbidden"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Forbidden", decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	Error(rec, req, apperr.ValidationWithDetails("validation failed", map[string]string{"rating": "is required"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Equal(t, map[string]any{"rating": "is required"}, body["details"])
}

func TestErrorHidesInternalErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	Error(rec, req, errors.New("mongo: connection refused at 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}
