package relay

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR: topic is required", NewError(ErrCodeValidation, "topic is required").Error())

	cause := errors.New("connection reset")
	err := NewErrorWithCause(ErrCodeDatabase, "failed to save message", cause)
	assert.Equal(t, "DATABASE_ERROR: failed to save message: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsNoData(t *testing.T) {
	assert.True(t, IsNoData(ErrNoData))
	assert.True(t, IsNoData(NewErrorWithCause(ErrCodeNoData, "topic not found: 3", ErrNoData)))
	assert.True(t, IsNoData(fmt.Errorf("lookup: %w", ErrNoData)))
	assert.False(t, IsNoData(NewError(ErrCodeDatabase, "boom")))
	assert.False(t, IsNoData(NewErrorWithCause(ErrCodeDatabase, "scan failed", ErrNoData)))
	assert.False(t, IsNoData(errors.New("plain")))
	assert.False(t, IsNoData(nil))
}

func TestHasCode(t *testing.T) {
	inner := NewError(ErrCodePublish, "broker session is not connected")
	outer := NewErrorWithCause(ErrCodeSubscription, "subscribe request failed", inner)
	wrapped := fmt.Errorf("relay: %w", outer)

	assert.True(t, HasCode(wrapped, ErrCodeSubscription))
	assert.True(t, HasCode(wrapped, ErrCodePublish))
	assert.False(t, HasCode(wrapped, ErrCodeDatabase))
	assert.False(t, HasCode(errors.New("plain"), ErrCodePublish))
	assert.False(t, HasCode(nil, ErrCodePublish))
}
