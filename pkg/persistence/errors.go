// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrStartupNotFound indicates a startup was not found by the given id.
	ErrStartupNotFound = errors.New("startup not found")

	// ErrStatusNotFound indicates a pipeline status was not found.
	ErrStatusNotFound = errors.New("status not found")

	// ErrRuleNotFound indicates a workflow rule was not found.
	ErrRuleNotFound = errors.New("workflow rule not found")

	// ErrHistoryNotFound indicates a history row was not found.
	ErrHistoryNotFound = errors.New("status history not found")

	// ErrNullStatus indicates a write would have persisted an empty status
	// id. This class is blocked at every layer and logged as critical.
	ErrNullStatus = errors.New("refusing to persist null status id")
)

// StartupError wraps startup-related storage errors with context.
type StartupError struct {
	Op        string // Operation being performed (e.g., "GetByID", "UpdateStatus")
	StartupID string
	Err       error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s failed for startup %s: %v", e.Op, e.StartupID, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

func (e *StartupError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStartupError creates a new startup storage error with context.
func NewStartupError(op, startupID string, err error) *StartupError {
	return &StartupError{Op: op, StartupID: startupID, Err: err}
}

// HistoryError wraps history-related storage errors with context.
type HistoryError struct {
	Op        string
	StartupID string
	Err       error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s failed for startup %s history: %v", e.Op, e.StartupID, e.Err)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

func (e *HistoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsStartupNotFound checks if an error indicates a missing startup.
func IsStartupNotFound(err error) bool {
	return errors.Is(err, ErrStartupNotFound)
}

// IsStatusNotFound checks if an error indicates a missing status.
func IsStatusNotFound(err error) bool {
	return errors.Is(err, ErrStatusNotFound)
}

// IsRuleNotFound checks if an error indicates a missing workflow rule.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsNullStatus checks if an error is a tripped null-status guard.
func IsNullStatus(err error) bool {
	return errors.Is(err, ErrNullStatus)
}
