// Package services provides the business operations of the pipeline:
// existence verification, the multi-tier status move, and history
// recording.
package services

import (
	"errors"
	"fmt"

	"github.com/dealdesk/dealflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrStartupIDRequired = errors.New("startup ID cannot be empty")
	ErrStatusIDRequired  = errors.New("status ID cannot be empty")
	ErrInvalidStartupID  = errors.New("startup ID is not a valid UUID")
	ErrInvalidStatusID   = errors.New("status ID is not a valid UUID")
	ErrUnknownStatusSlug = errors.New("status slug does not match any pipeline status")

	// ErrStatusUpdateFailed is returned when every persistence tier of a
	// status move failed. The individual tier errors are joined onto it.
	ErrStatusUpdateFailed = errors.New("all status update strategies failed")
)

// Not-found sentinels re-exported from the persistence layer.
var (
	ErrStartupNotFound = persistence.ErrStartupNotFound
	ErrStatusNotFound  = persistence.ErrStatusNotFound
	ErrRuleNotFound    = persistence.ErrRuleNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrStartupIDRequired) ||
		errors.Is(err, ErrStatusIDRequired) ||
		errors.Is(err, ErrInvalidStartupID) ||
		errors.Is(err, ErrInvalidStatusID) ||
		errors.Is(err, ErrUnknownStatusSlug)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrStartupNotFound) ||
		errors.Is(err, ErrStatusNotFound) ||
		errors.Is(err, ErrRuleNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
