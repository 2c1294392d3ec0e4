package raffle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestError_Error tests message formatting with and without a raffle ID.
func TestError_Error(t *testing.T) {
	err := NewError(CodeExceedsCapacity, 42, "want %d, have room for %d", 100, 99)
	msg := err.Error()
	assert.Contains(t, msg, "EXCEEDS_CAPACITY")
	assert.Contains(t, msg, "raffle=42")

	bare := NewError(CodeInvalidSchedule, 0, "end time not in the future")
	assert.NotContains(t, bare.Error(), "raffle=")
}

// TestCodeOf tests code extraction through wrapping.
func TestCodeOf(t *testing.T) {
	err := NewNotFound(9)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	wrapped := fmt.Errorf("buy tickets: %w", err)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))

	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeRaffleEnded))
}

// TestNewTransferFailed tests cause wrapping.
func TestNewTransferFailed(t *testing.T) {
	cause := errors.New("insufficient funds")
	err := NewTransferFailed(3, cause)

	require.Equal(t, CodeTransferFailed, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insufficient funds")
}
