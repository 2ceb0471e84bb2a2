package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorCarriesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	err := NewError(ctx, LayerDomain, ErrorTypeValidation, "bad input", nil, "abc")

	assert.Equal(t, "req-123", err.GetRequestID())
	assert.Equal(t, "abc", err.GetUUID())
	assert.Equal(t, "[domain][VALIDATION][abc] bad input", err.Error())
}

func TestAsErrorKeepsType(t *testing.T) {
	ctx := context.Background()
	inner := NewError(ctx, LayerRepository, ErrorTypeNotFound, "room not found", nil, "r1")

	wrapped := AsError(ctx, LayerDomain, fmt.Errorf("lookup: %w", inner), "load history")
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, LayerDomain, wrapped.Layer)
	assert.Equal(t, "r1", wrapped.UUID)
	assert.True(t, IsErrorType(wrapped, ErrorTypeNotFound))

	plain := AsError(ctx, LayerDomain, errors.New("boom"), "load history")
	assert.Equal(t, ErrorTypeInternal, plain.Type)

	assert.Nil(t, AsError(ctx, LayerDomain, nil, "noop"))
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errType ErrorType
		status  int
	}{
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeValidation, http.StatusBadRequest},
		{ErrorTypeConflict, http.StatusConflict},
		{ErrorTypeUnauthorized, http.StatusUnauthorized},
		{ErrorTypeForbidden, http.StatusForbidden},
		{ErrorTypeExternal, http.StatusBadGateway},
		{ErrorTypeExpired, http.StatusGone},
		{ErrorTypeDatabaseError, http.StatusInternalServerError},
		{ErrorType("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.status, ErrorTypeToHTTPStatus(tt.errType))
		})
	}
}

func TestIsErrorTypeOnPlainError(t *testing.T) {
	assert.False(t, IsErrorType(nil, ErrorTypeNotFound))
	assert.False(t, IsErrorType(errors.New("x"), ErrorTypeNotFound))
	assert.Nil(t, GetPlatformError(errors.New("x")))
}
