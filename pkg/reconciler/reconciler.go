// Package reconciler sweeps the status history for dangling open rows.
// History closing happens in the application on each move; the sweep is
// the safety net for rows orphaned by a crash between the status write
// and the bookkeeping.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

const (
	// DefaultSchedule runs the sweep every fifteen minutes.
	DefaultSchedule = "@every 15m"

	// DefaultMinAge keeps the sweep away from rows a move is still
	// settling.
	DefaultMinAge = 5 * time.Minute
)

// Reconciler periodically closes history rows their startup has already
// moved past.
type Reconciler struct {
	persistence persistence.Persistence
	cron        *cron.Cron
	schedule    string
	minAge      time.Duration
	logger      *slog.Logger
}

// New creates a reconciler with the default schedule and minimum age.
func New(p persistence.Persistence, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		persistence: p,
		cron:        cron.New(),
		schedule:    DefaultSchedule,
		minAge:      DefaultMinAge,
		logger:      logger.With("module", "history_reconciler"),
	}
}

// Start registers the sweep on the cron schedule and starts it.
func (r *Reconciler) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		closed, err := r.Sweep(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "History sweep failed", "error", err)

			return
		}

		if closed > 0 {
			r.logger.InfoContext(ctx, "History sweep closed dangling rows", "closed", closed)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling history sweep: %w", err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "History reconciler started", "schedule", r.schedule)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep closes every dangling open row, stamping the exit at the start
// of the row that superseded it. Returns how many rows were closed.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	open, err := r.persistence.History().OpenRows(ctx, r.minAge)
	if err != nil {
		return 0, fmt.Errorf("listing dangling history rows: %w", err)
	}

	closed := 0

	for _, row := range open {
		at, err := r.supersededAt(ctx, row)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping dangling history row",
				"history_id", row.ID, "startup_id", row.StartupID, "error", err)

			continue
		}

		row.Close(at)

		if err := r.persistence.History().Update(ctx, row); err != nil {
			r.logger.WarnContext(ctx, "Failed to close dangling history row",
				"history_id", row.ID, "startup_id", row.StartupID, "error", err)

			continue
		}

		closed++
	}

	return closed, nil
}

// supersededAt finds when the startup entered the row that replaced
// this one. Falls back to now when no later row exists.
func (r *Reconciler) supersededAt(ctx context.Context, row *models.StatusHistory) (time.Time, error) {
	rows, err := r.persistence.History().ListByStartup(ctx, row.StartupID)
	if err != nil {
		return time.Time{}, err
	}

	var next time.Time

	for _, candidate := range rows {
		if candidate.ID == row.ID || !candidate.EnteredAt.After(row.EnteredAt) {
			continue
		}

		if next.IsZero() || candidate.EnteredAt.Before(next) {
			next = candidate.EnteredAt
		}
	}

	if next.IsZero() {
		return time.Now().UTC(), nil
	}

	return next, nil
}
