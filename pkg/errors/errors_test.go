package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NotFound("patient", nil), http.StatusNotFound},
		{"bad request", BadRequest("bad", nil), http.StatusBadRequest},
		{"conflict", NewConflict("dup", nil), http.StatusConflict},
		{"unavailable", NewUnavailable("down", nil), http.StatusServiceUnavailable},
		{"internal", Internal(stderrors.New("boom")), http.StatusInternalServerError},
		{"validation", Validation([]string{"first_name is required"}, nil), http.StatusBadRequest},
		{"rate limited", &AppError{Code: ErrTooManyRequests}, http.StatusTooManyRequests},
		{"too large", &AppError{Code: ErrTooLarge}, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAppErrorWrapping(t *testing.T) {
	cause := stderrors.New("no rows")
	err := fmt.Errorf("failed to get patient: %w", NotFound("patient", cause))

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))
	assert.ErrorIs(t, err, cause)

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "patient not found: no rows", appErr.Error())
}

func TestAsPlainError(t *testing.T) {
	_, ok := As(stderrors.New("plain"))
	assert.False(t, ok)
}
