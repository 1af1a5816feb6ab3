package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad %s", "input")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("missing"))))
	assert.Equal(t, KindConflict, KindOf(Conflict("busy")))
	assert.Equal(t, KindStorage, KindOf(errors.New("driver exploded")))
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("material.update_stock", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "material.update_stock", err.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, Is(err, KindStorage))
	assert.False(t, Is(err, KindConflict))
}

func TestMessagesAreFormatted(t *testing.T) {
	err := Validation("quantity must be >= 0, got %d", -3)
	assert.Equal(t, "quantity must be >= 0, got -3", err.Error())
}
