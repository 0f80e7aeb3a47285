package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndInspect(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeAuthExchangeFailed, "token exchange failed")

	assert.True(t, IsCode(err, ErrCodeAuthExchangeFailed))
	assert.False(t, IsCode(err, ErrCodeStateMismatch))
	assert.Equal(t, ErrCodeAuthExchangeFailed, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "AUTH_EXCHANGE_FAILED")

	wrapped := fmt.Errorf("callback: %w", err)
	assert.True(t, IsCode(wrapped, ErrCodeAuthExchangeFailed))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestGetCodeUnstructured(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}

func TestAPICallReason(t *testing.T) {
	t.Run("Tagged", func(t *testing.T) {
		err := APICallFailed(ReasonUnlinked, NotFound("linkage", "imgur/u1"))

		reason, ok := GetAPICallReason(err)
		require.True(t, ok)
		assert.Equal(t, ReasonUnlinked, reason)
		assert.True(t, IsCode(err, ErrCodeAPICallFailed))
	})

	t.Run("OtherCode", func(t *testing.T) {
		_, ok := GetAPICallReason(New(ErrCodeLinkConflict, "conflict"))
		assert.False(t, ok)
	})
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeStateMismatch, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeLinkConflict, http.StatusConflict},
		{ErrCodeAPICallFailed, http.StatusBadGateway},
		{ErrCodeConfiguration, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorCodeToHTTPStatus(tt.code))
		})
	}
}
