package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "bad matrix", Config("bad matrix").Error())

	wrapped := Wrap(ErrCodeConfig, "parse document", errors.New("yaml: line 3"))
	assert.Equal(t, "parse document: yaml: line 3", wrapped.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("save run", cause)

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeConfig, CodeOf(Config("x")))
	assert.Equal(t, ErrCodeCapacity, CodeOf(Capacityf("capacity %d", 0)))
	assert.Equal(t, ErrCodeValidation, CodeOf(Validation("x")))
	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("x")))
	assert.Equal(t, ErrCodeConflict, CodeOf(Conflict("x")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("loading: %w", ConfigField("Services", "blank"))
	assert.Equal(t, ErrCodeConfig, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeConfig))
	assert.False(t, IsCode(wrapped, ErrCodeCapacity))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Config("bad filter")))
	assert.True(t, IsFatal(Capacity("no workers")))
	assert.False(t, IsFatal(Validation("bad input")))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestConfigField(t *testing.T) {
	err := ConfigField("SupportedClouds", "at least one cloud identifier is required")
	assert.Equal(t, "SupportedClouds", err.Field)
	assert.Equal(t, ErrCodeConfig, err.Code)
}
