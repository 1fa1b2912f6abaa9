package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeAlreadyExists, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeUpstream, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load review: %w", NotFound("Review not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestStatus(t *testing.T) {
	t.Run("coded error keeps message", func(t *testing.T) {
		status, msg, _, logIt := Status(Forbidden("Forbidden"))
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "Forbidden", msg)
		assert.False(t, logIt)
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		status, msg, _, logIt := Status(errors.New("mongo: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal server error", msg)
		assert.True(t, logIt)
	})

	t.Run("upstream hides cause", func(t *testing.T) {
		err := Upstream(errors.New("dial tcp: timeout"), "Failed to fetch books")
		status, msg, _, logIt := Status(err)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Failed to fetch books", msg)
		assert.True(t, logIt)
		assert.Contains(t, err.Error(), "dial tcp")
	})

	t.Run("validation details pass through", func(t *testing.T) {
		details := map[string]string{"rating": "must be less than or equal to 5"}
		status, _, got, _ := Status(ValidationWithDetails("validation failed", details))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, details, got)
	})
}
