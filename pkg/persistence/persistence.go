// Package persistence provides the data storage abstraction for
// startups, statuses, transition history, and workflow rules.
package persistence

import (
	"context"
	"time"

	"github.com/dealdesk/dealflow/pkg/models"
)

// StartupRepository stores the tracked deals. The three status-write
// methods are the tiers of the update fallback chain: MoveStatusSafely
// is the transactional move-plus-history path, UpdateStatus touches only
// the status column, and UpdateFields applies a prepared column map.
type StartupRepository interface {
	GetByID(ctx context.Context, id string) (*models.Startup, error)
	// Exists reports whether the startup exists and, when it does, its
	// current status id (empty when the startup has none).
	Exists(ctx context.Context, id string) (bool, string, error)
	List(ctx context.Context) ([]*models.Startup, error)
	Save(ctx context.Context, startup *models.Startup) error
	Delete(ctx context.Context, id string) error

	MoveStatusSafely(ctx context.Context, id, newStatusID string, oldStatusID *string) (*models.Startup, error)
	UpdateStatus(ctx context.Context, id, statusID string) (*models.Startup, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.Startup, error)
}

// StatusRepository stores the ordered pipeline stages.
type StatusRepository interface {
	GetAll(ctx context.Context) ([]*models.Status, error)
	GetByID(ctx context.Context, id string) (*models.Status, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, status *models.Status) error
}

// HistoryRepository stores the append-only status-transition log.
type HistoryRepository interface {
	Insert(ctx context.Context, row *models.StatusHistory) error
	ListByStartup(ctx context.Context, startupID string) ([]*models.StatusHistory, error)
	// CloseOpen closes the startup's open row, if any, at the given time.
	CloseOpen(ctx context.Context, startupID string, at time.Time) error
	// OpenRows returns rows still open whose startup has since moved on,
	// older than the given age. The reconciler sweeps these.
	OpenRows(ctx context.Context, olderThan time.Duration) ([]*models.StatusHistory, error)
	Update(ctx context.Context, row *models.StatusHistory) error
}

// RuleRepository stores workflow rules.
type RuleRepository interface {
	List(ctx context.Context) ([]*models.WorkflowRule, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowRule, error)
	Save(ctx context.Context, rule *models.WorkflowRule) error
	Delete(ctx context.Context, id string) error
}

// Persistence bundles the repositories behind one backend.
type Persistence interface {
	Startups() StartupRepository
	Statuses() StatusRepository
	History() HistoryRepository
	Rules() RuleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
