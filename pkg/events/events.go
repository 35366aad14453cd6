// Package events defines the event types published on pipeline mutations.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic carrying pipeline events.
const Topic = "dealflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Status transition lifecycle.
	StartupStatusChangedEvent      EventType = "startup.status.changed"
	StartupStatusChangeFailedEvent EventType = "startup.status.change_failed"
	StatusHistoryRecordedEvent     EventType = "startup.status.history_recorded"

	// Workflow rule side effects.
	RuleTriggeredEvent EventType = "workflow.rule.triggered"
	TaskCreatedEvent   EventType = "workflow.task.created"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	StartupID string         `json:"startup_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope.
func NewBaseEvent(eventType EventType, startupID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		StartupID: startupID,
	}
}

// StartupStatusChanged is published after a status move commits. It
// carries the snapshot the workflow engine evaluates rules against.
type StartupStatusChanged struct {
	BaseEvent

	NewStatusID    string         `json:"new_status_id"`
	OldStatusID    *string        `json:"old_status_id,omitempty"`
	StatusName     string         `json:"status_name,omitempty"`
	PreviousValues map[string]any `json:"previous_values,omitempty"`
}

func (e StartupStatusChanged) GetType() EventType {
	return StartupStatusChangedEvent
}

// StartupStatusChangeFailed is published when every persistence tier
// failed for a move.
type StartupStatusChangeFailed struct {
	BaseEvent

	NewStatusID string `json:"new_status_id"`
	Error       string `json:"error"`
}

func (e StartupStatusChangeFailed) GetType() EventType {
	return StartupStatusChangeFailedEvent
}

// StatusHistoryRecorded is published after the audit row lands.
type StatusHistoryRecorded struct {
	BaseEvent

	HistoryID   string    `json:"history_id"`
	NewStatusID string    `json:"new_status_id"`
	OldStatusID *string   `json:"old_status_id,omitempty"`
	EnteredAt   time.Time `json:"entered_at"`
}

func (e StatusHistoryRecorded) GetType() EventType {
	return StatusHistoryRecordedEvent
}

// RuleTriggered is published when a workflow rule's conditions matched.
type RuleTriggered struct {
	BaseEvent

	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
}

func (e RuleTriggered) GetType() EventType {
	return RuleTriggeredEvent
}

// TaskCreated is published by the createTask workflow action.
type TaskCreated struct {
	BaseEvent

	RuleID      string     `json:"rule_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (e TaskCreated) GetType() EventType {
	return TaskCreatedEvent
}
