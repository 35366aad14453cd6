// Package models defines the core domain models for the deal-flow
// pipeline: startups moving through ordered statuses, the audit history
// of those moves, and the workflow rules evaluated on each move.
package models

import "time"

// Priority of a startup in the pipeline.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Startup is a tracked deal moving through pipeline stages. Business
// fields that are not part of the fixed schema live in the Values bag.
type Startup struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"                  validate:"required,min=1"`
	StatusID    string         `json:"status_id,omitempty"`
	Priority    Priority       `json:"priority,omitempty"    validate:"omitempty,oneof=low medium high"`
	AssignedTo  *string        `json:"assigned_to,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Values      map[string]any `json:"values,omitempty"`
	Labels      []string       `json:"labels,omitempty"`
	Attachments []string       `json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// topLevelFields maps the field names workflow rules may reference to
// accessors on the fixed schema. Anything else resolves through Values.
var topLevelFields = map[string]func(*Startup) any{
	"id":   func(s *Startup) any { return s.ID },
	"name": func(s *Startup) any { return s.Name },
	"statusId": func(s *Startup) any {
		if s.StatusID == "" {
			return nil
		}

		return s.StatusID
	},
	"status_id": func(s *Startup) any {
		if s.StatusID == "" {
			return nil
		}

		return s.StatusID
	},
	"priority": func(s *Startup) any { return string(s.Priority) },
	"assignedTo": func(s *Startup) any {
		if s.AssignedTo == nil {
			return nil
		}

		return *s.AssignedTo
	},
	"assigned_to": func(s *Startup) any {
		if s.AssignedTo == nil {
			return nil
		}

		return *s.AssignedTo
	},
	"dueDate": func(s *Startup) any {
		if s.DueDate == nil {
			return nil
		}

		return *s.DueDate
	},
}

// Field resolves a field reference against the fixed schema first and
// the free-form Values bag second. The second return reports whether the
// name resolved at all.
func (s *Startup) Field(name string) (any, bool) {
	if accessor, ok := topLevelFields[name]; ok {
		return accessor(s), true
	}

	if s.Values != nil {
		if value, ok := s.Values[name]; ok {
			return value, true
		}
	}

	return nil, false
}

// Snapshot captures the rule-relevant fields before a mutation so the
// "changed" operator can compare against them afterwards.
func (s *Startup) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(s.Values)+4)

	for key, value := range s.Values {
		snapshot[key] = value
	}

	// Record both alias spellings so rules referencing either resolve
	// against the snapshot the same way Field resolves them.
	if s.StatusID != "" {
		snapshot["statusId"] = s.StatusID
		snapshot["status_id"] = s.StatusID
	}

	snapshot["name"] = s.Name
	snapshot["priority"] = string(s.Priority)

	if s.AssignedTo != nil {
		snapshot["assignedTo"] = *s.AssignedTo
		snapshot["assigned_to"] = *s.AssignedTo
	}

	return snapshot
}
