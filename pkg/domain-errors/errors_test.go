package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped domain error", func(t *testing.T) {
		err := fmt.Errorf("start check: %w", New(CodeInvalidLength, "identity number must have 12 digits"))
		assert.True(t, HasCode(err, CodeInvalidLength))
		assert.False(t, HasCode(err, CodeInvalidPattern))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, Is(nil, CodeInternal))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(cause, CodeInternal, "failed to load check")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, "failed to load check", err.Message)
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidLength, http.StatusBadRequest},
		{CodeInvalidPattern, http.StatusBadRequest},
		{CodeOTPMismatch, http.StatusBadRequest},
		{CodeOTPExpired, http.StatusGone},
		{CodeTooManyAttempts, http.StatusTooManyRequests},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidState, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.code))
		})
	}
}
