package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsSentinelIdentity(t *testing.T) {
	err := Clone(ErrInvalidInput, "event_date is required")
	require.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "event_date is required", err.Message)
	assert.Equal(t, "invalid temporal input", ErrInvalidInput.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestFromErrorUnwrapsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", Clone(ErrNotFound, "event not found"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "event not found", appErr.Message)
}
