package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonRecoverableError(t *testing.T) {
	err := NewNonRecoverableError("test error")
	assert.Equal(t, "test error", err.Error())
	assert.True(t, IsNonRecoverable(err))

	base := errors.New("base error")
	wrapped := WrapNonRecoverableError("wrapper", base)
	assert.Equal(t, "wrapper: base error", wrapped.Error())
	assert.Equal(t, base, wrapped.Unwrap())

	assert.False(t, IsNonRecoverable(errors.New("regular error")))
	assert.False(t, IsNonRecoverable(nil))
}

func TestIsNonRecoverableSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("delivery failed: %w", NewNonRecoverableError("tenant gone"))
	assert.True(t, IsNonRecoverable(err))
}

func TestTenantNotFoundError(t *testing.T) {
	err := NewTenantNotFoundError("tenant-123", "no configs found")
	assert.Contains(t, err.Error(), "tenant-123")
	assert.Contains(t, err.Error(), "no configs found")

	base := errors.New("dynamodb error")
	wrapped := WrapTenantNotFoundError("tenant-456", "lookup failed", base)
	assert.Contains(t, wrapped.Error(), "tenant-456")
	assert.Equal(t, base, wrapped.Unwrap())

	// A missing tenant configuration cannot be fixed by a redelivery,
	// so tenant lookup failures must classify as non-recoverable.
	var nonRecoverable *NonRecoverableError
	require.True(t, errors.As(err, &nonRecoverable))
}

func TestInvalidObjectKeyError(t *testing.T) {
	err := NewInvalidObjectKeyError("invalid format")
	assert.Contains(t, err.Error(), "invalid object key")
	assert.Contains(t, err.Error(), "invalid format")

	base := errors.New("path split error")
	wrapped := WrapInvalidObjectKeyError("malformed", base)
	assert.Contains(t, wrapped.Error(), "malformed")
	assert.Equal(t, base, wrapped.Unwrap())

	var nonRecoverable *NonRecoverableError
	require.True(t, errors.As(err, &nonRecoverable))
}
