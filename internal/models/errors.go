// Package models defines the shared data types and the error taxonomy
// the tenant and delivery layers exchange.
package models

import (
	"errors"
	"fmt"
)

// NonRecoverableError marks a failure retrying cannot fix: a missing
// tenant configuration, a malformed object key, permanently rejected
// data. Callers use IsNonRecoverable to decide whether a redelivery
// would ever succeed.
type NonRecoverableError struct {
	Message string
	Err     error
}

func (e *NonRecoverableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NonRecoverableError) Unwrap() error { return e.Err }

// NewNonRecoverableError creates a non-recoverable error from a message.
func NewNonRecoverableError(message string) *NonRecoverableError {
	return &NonRecoverableError{Message: message}
}

// WrapNonRecoverableError marks an existing error non-recoverable.
func WrapNonRecoverableError(message string, err error) *NonRecoverableError {
	return &NonRecoverableError{Message: message, Err: err}
}

// IsNonRecoverable reports whether err classifies as non-recoverable,
// either directly or through an error type declaring itself one via As.
func IsNonRecoverable(err error) bool {
	var nonRecoverable *NonRecoverableError
	return errors.As(err, &nonRecoverable)
}

// asNonRecoverable is the shared errors.As hook for error types that
// classify as non-recoverable without wrapping a NonRecoverableError.
// errors.As requires the hook to fill in the target on a match.
func asNonRecoverable(target interface{}, err error) bool {
	p, ok := target.(**NonRecoverableError)
	if !ok {
		return false
	}
	*p = &NonRecoverableError{Message: err.Error()}
	return true
}

// TenantNotFoundError means a tenant has no usable delivery
// configuration: the DynamoDB lookup found nothing, everything found
// was disabled, or a found config failed validation.
type TenantNotFoundError struct {
	TenantID string
	Message  string
	Err      error
}

func (e *TenantNotFoundError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("tenant %s: %s: %v", e.TenantID, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("tenant %s: %s", e.TenantID, e.Message)
	default:
		return fmt.Sprintf("tenant not found: %s", e.TenantID)
	}
}

func (e *TenantNotFoundError) Unwrap() error { return e.Err }

func (e *TenantNotFoundError) As(target interface{}) bool {
	return asNonRecoverable(target, e)
}

// NewTenantNotFoundError creates a tenant-not-found error.
func NewTenantNotFoundError(tenantID, message string) *TenantNotFoundError {
	return &TenantNotFoundError{TenantID: tenantID, Message: message}
}

// WrapTenantNotFoundError wraps an existing error as tenant-not-found.
func WrapTenantNotFoundError(tenantID, message string, err error) *TenantNotFoundError {
	return &TenantNotFoundError{TenantID: tenantID, Message: message, Err: err}
}

// InvalidObjectKeyError means an S3 object key did not have the
// cluster_id/namespace/application/pod_name/file layout
// tenant.ExtractInfoFromKey requires to derive a tenant identity.
type InvalidObjectKeyError struct {
	Message string
	Err     error
}

func (e *InvalidObjectKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid object key: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("invalid object key: %s", e.Message)
}

func (e *InvalidObjectKeyError) Unwrap() error { return e.Err }

func (e *InvalidObjectKeyError) As(target interface{}) bool {
	return asNonRecoverable(target, e)
}

// NewInvalidObjectKeyError creates an invalid-object-key error.
func NewInvalidObjectKeyError(message string) *InvalidObjectKeyError {
	return &InvalidObjectKeyError{Message: message}
}

// WrapInvalidObjectKeyError wraps an existing error as invalid-object-key.
func WrapInvalidObjectKeyError(message string, err error) *InvalidObjectKeyError {
	return &InvalidObjectKeyError{Message: message, Err: err}
}
