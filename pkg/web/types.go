// Package web provides HTTP request and response types for the pipeline API.
package web

import (
	"time"

	"github.com/dealdesk/dealflow/pkg/models"
)

// CreateStartupRequest represents the request body for creating a startup.
type CreateStartupRequest struct {
	Name       string         `json:"name"                  validate:"required,min=1"`
	StatusID   string         `json:"status_id,omitempty"   validate:"omitempty,uuid"`
	Priority   string         `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high"`
	AssignedTo *string        `json:"assigned_to,omitempty"`
	DueDate    *time.Time     `json:"due_date,omitempty"`
	Values     map[string]any `json:"values,omitempty"`
	Labels     []string       `json:"labels,omitempty"`
}

// MoveStatusRequest represents the request body for a direct status move.
type MoveStatusRequest struct {
	StatusID    string  `json:"status_id"               validate:"required,min=1"`
	OldStatusID *string `json:"old_status_id,omitempty"`
}

// Toast is a user-facing message produced while settling a drop.
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// DropResponse reports the settled board state and any toasts.
type DropResponse struct {
	Columns map[string][]string `json:"columns"`
	Toasts  []Toast             `json:"toasts"`
}

// BoardResponse is the kanban projection: ordered statuses plus the
// cards each column holds.
type BoardResponse struct {
	Statuses []*models.Status    `json:"statuses"`
	Columns  map[string][]string `json:"columns"`
}

// MoveStatusResponse reports the outcome of a direct status move.
type MoveStatusResponse struct {
	Startup  *models.Startup `json:"startup"`
	Status   *models.Status  `json:"status"`
	NoOp     bool            `json:"no_op"`
	Strategy string          `json:"strategy,omitempty"`
}
