package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Pairing code not found")
		assert.Equal(t, "NOT_FOUND: Pairing code not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("websocket closed")
		err := SendFailed(cause)
		assert.Contains(t, err.Error(), "SEND_FAILED")
		assert.Contains(t, err.Error(), "Failed to send message")
		assert.Contains(t, err.Error(), "websocket closed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "phone"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"NotFound", func() *AppError { return NotFound("QR code") }, ErrCodeNotFound},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"MissingRequired", func() *AppError { return MissingRequired("phone") }, ErrCodeMissingRequired},
		{"SessionUnavailable", SessionUnavailable, ErrCodeSessionUnavailable},
		{"SendFailed", func() *AppError { return SendFailed(errors.New("x")) }, ErrCodeSendFailed},
		{"RateLimitExceeded", RateLimitExceeded, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
		{"Database", func() *AppError { return Database(errors.New("x")) }, ErrCodeDatabase},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestAsAppError(t *testing.T) {
	t.Run("finds wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("send: %w", SessionUnavailable())
		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeSessionUnavailable, appErr.Code)
		assert.True(t, IsAppError(wrapped))
	})

	t.Run("returns false for plain errors", func(t *testing.T) {
		appErr, ok := AsAppError(errors.New("plain"))
		assert.False(t, ok)
		assert.Nil(t, appErr)
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeSendFailed, GetCode(SendFailed(nil)))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}
