package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// HistoryRepository handles the status-transition audit log.
type HistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sql.DB, logger *slog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Insert appends a history row. Rows with an empty status id are
// rejected before touching the table.
func (r *HistoryRepository) Insert(ctx context.Context, row *models.StatusHistory) error {
	if row.StatusID == "" {
		return persistence.ErrNullStatus
	}

	if row.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate history ID: %w", err)
		}

		row.ID = id.String()
	}

	if row.EnteredAt.IsZero() {
		row.EnteredAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO startup_status_history
			(id, startup_id, status_id, previous_status_id, entered_at, exited_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, row.ID, row.StartupID, row.StatusID, row.PreviousStatusID,
		row.EnteredAt, row.ExitedAt, row.DurationSeconds)
	if err != nil {
		return &persistence.HistoryError{Op: "Insert", StartupID: row.StartupID, Err: err}
	}

	return nil
}

// ListByStartup returns a startup's transitions, newest first.
func (r *HistoryRepository) ListByStartup(ctx context.Context, startupID string) ([]*models.StatusHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, startup_id, status_id, previous_status_id, entered_at, exited_at, duration_seconds
		FROM startup_status_history
		WHERE startup_id = $1
		ORDER BY entered_at DESC
	`, startupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	return r.collectRows(rows)
}

// CloseOpen closes the startup's open history row at the given time.
func (r *HistoryRepository) CloseOpen(ctx context.Context, startupID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE startup_status_history
		SET exited_at = $2,
			duration_seconds = GREATEST(EXTRACT(EPOCH FROM ($2 - entered_at))::bigint, 0)
		WHERE startup_id = $1 AND exited_at IS NULL
	`, startupID, at.UTC())
	if err != nil {
		return &persistence.HistoryError{Op: "CloseOpen", StartupID: startupID, Err: err}
	}

	return nil
}

// OpenRows returns open rows older than the given age that are no longer
// the startup's latest transition. These are rows a crash left dangling.
func (r *HistoryRepository) OpenRows(ctx context.Context, olderThan time.Duration) ([]*models.StatusHistory, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := r.db.QueryContext(ctx, `
		SELECT h.id, h.startup_id, h.status_id, h.previous_status_id,
			h.entered_at, h.exited_at, h.duration_seconds
		FROM startup_status_history h
		WHERE h.exited_at IS NULL
		  AND h.entered_at < $1
		  AND EXISTS (
			SELECT 1 FROM startup_status_history newer
			WHERE newer.startup_id = h.startup_id
			  AND newer.entered_at > h.entered_at
		  )
		ORDER BY h.entered_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query open history rows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	return r.collectRows(rows)
}

// Update rewrites the closing fields of an existing row.
func (r *HistoryRepository) Update(ctx context.Context, row *models.StatusHistory) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE startup_status_history
		SET exited_at = $2, duration_seconds = $3
		WHERE id = $1
	`, row.ID, row.ExitedAt, row.DurationSeconds)
	if err != nil {
		return &persistence.HistoryError{Op: "Update", StartupID: row.StartupID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrHistoryNotFound
	}

	return nil
}

func (r *HistoryRepository) collectRows(rows *sql.Rows) ([]*models.StatusHistory, error) {
	history := make([]*models.StatusHistory, 0)

	for rows.Next() {
		var (
			row      models.StatusHistory
			previous sql.NullString
			exited   sql.NullTime
			duration sql.NullInt64
		)

		err := rows.Scan(&row.ID, &row.StartupID, &row.StatusID, &previous,
			&row.EnteredAt, &exited, &duration)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		if previous.Valid {
			row.PreviousStatusID = &previous.String
		}

		if exited.Valid {
			at := exited.Time
			row.ExitedAt = &at
		}

		if duration.Valid {
			seconds := duration.Int64
			row.DurationSeconds = &seconds
		}

		history = append(history, &row)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return history, nil
}
