package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// startupColumns that UpdateFields may touch directly. Everything else
// in a prepared update is merged into the field_values document.
var startupColumns = map[string]struct{}{
	"name":        {},
	"status_id":   {},
	"priority":    {},
	"assigned_to": {},
	"due_date":    {},
}

// StartupRepository handles startup-related database operations.
type StartupRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStartupRepository creates a new startup repository.
func NewStartupRepository(db *sql.DB, logger *slog.Logger) *StartupRepository {
	return &StartupRepository{db: db, logger: logger}
}

const startupSelect = `
	SELECT
		id
	  , name
	  , status_id
	  , priority
	  , assigned_to
	  , due_date
	  , field_values
	  , labels
	  , created_at
	  , updated_at
	  , deleted_at
	FROM startups
`

// GetByID returns a startup by its id.
func (r *StartupRepository) GetByID(ctx context.Context, id string) (*models.Startup, error) {
	row := r.db.QueryRowContext(ctx, startupSelect+` WHERE id = $1 AND deleted_at IS NULL`, id)

	startup, err := r.scanStartup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStartupError("GetByID", id, persistence.ErrStartupNotFound)
		}

		return nil, fmt.Errorf("failed to scan startup: %w", err)
	}

	return startup, nil
}

// Exists reports whether the startup exists and its current status id.
func (r *StartupRepository) Exists(ctx context.Context, id string) (bool, string, error) {
	var statusID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT status_id FROM startups WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&statusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", nil
		}

		return false, "", fmt.Errorf("failed to query startup existence: %w", err)
	}

	return true, statusID.String, nil
}

// List returns all startups, newest first.
func (r *StartupRepository) List(ctx context.Context) ([]*models.Startup, error) {
	rows, err := r.db.QueryContext(ctx, startupSelect+` WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query startups: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	startups := make([]*models.Startup, 0)

	for rows.Next() {
		startup, err := r.scanStartup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan startup: %w", err)
		}

		startups = append(startups, startup)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating startups: %w", err)
	}

	return startups, nil
}

// Save upserts a startup.
func (r *StartupRepository) Save(ctx context.Context, startup *models.Startup) error {
	now := time.Now().UTC()

	if startup.CreatedAt.IsZero() {
		startup.CreatedAt = now
	}

	startup.UpdatedAt = now

	if startup.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate startup ID: %w", err)
		}

		startup.ID = id.String()
	}

	valuesJSON, err := json.Marshal(orEmptyMap(startup.Values))
	if err != nil {
		return fmt.Errorf("failed to marshal field values: %w", err)
	}

	labelsJSON, err := json.Marshal(orEmptySlice(startup.Labels))
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	query := `
		INSERT INTO startups (id, name, status_id, priority, assigned_to, due_date,
	field_values, labels, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status_id = EXCLUDED.status_id,
			priority = EXCLUDED.priority,
			assigned_to = EXCLUDED.assigned_to,
			due_date = EXCLUDED.due_date,
			field_values = EXCLUDED.field_values,
			labels = EXCLUDED.labels,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		startup.ID,
		startup.Name,
		nullableID(startup.StatusID),
		nullableString(string(startup.Priority)),
		startup.AssignedTo,
		startup.DueDate,
		valuesJSON,
		labelsJSON,
		startup.CreatedAt,
		startup.UpdatedAt,
		startup.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save startup: %w", err)
	}

	return nil
}

// Delete soft deletes a startup by setting deleted_at.
func (r *StartupRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE startups SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete startup: %w", err)
	}

	return nil
}

// MoveStatusSafely calls the transactional status-move function: it
// validates the target, closes the open history row, and updates the
// startup atomically server-side.
func (r *StartupRepository) MoveStatusSafely(ctx context.Context, id, newStatusID string, oldStatusID *string) (*models.Startup, error) {
	if newStatusID == "" {
		return nil, persistence.NewStartupError("MoveStatusSafely", id, persistence.ErrNullStatus)
	}

	_, err := r.db.ExecContext(ctx,
		`SELECT update_startup_status_safely($1, $2, $3)`, id, newStatusID, oldStatusID)
	if err != nil {
		return nil, persistence.NewStartupError("MoveStatusSafely", id, err)
	}

	return r.GetByID(ctx, id)
}

// UpdateStatus updates only the status column.
func (r *StartupRepository) UpdateStatus(ctx context.Context, id, statusID string) (*models.Startup, error) {
	if statusID == "" {
		return nil, persistence.NewStartupError("UpdateStatus", id, persistence.ErrNullStatus)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE startups SET status_id = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, statusID)
	if err != nil {
		return nil, persistence.NewStartupError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return nil, persistence.NewStartupError("UpdateStatus", id, persistence.ErrStartupNotFound)
	}

	return r.GetByID(ctx, id)
}

// UpdateFields applies a prepared column map. Known columns update
// directly; anything else merges into the field_values document. A null
// or empty status id in the map trips the null-status guard.
func (r *StartupRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.Startup, error) {
	if raw, present := fields["status_id"]; present {
		value, _ := raw.(string)
		if raw == nil || value == "" {
			return nil, persistence.NewStartupError("UpdateFields", id, persistence.ErrNullStatus)
		}
	}

	assignments := make([]string, 0, len(fields)+1)
	args := []any{id}
	extra := make(map[string]any)

	for column, value := range fields {
		if _, known := startupColumns[column]; !known {
			extra[column] = value

			continue
		}

		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if len(extra) > 0 {
		extraJSON, err := json.Marshal(extra)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extra fields: %w", err)
		}

		args = append(args, extraJSON)
		assignments = append(assignments, fmt.Sprintf("field_values = field_values || $%d::jsonb", len(args)))
	}

	if len(assignments) == 0 {
		return r.GetByID(ctx, id)
	}

	assignments = append(assignments, "updated_at = NOW()")

	query := `UPDATE startups SET ` + strings.Join(assignments, ", ") +
		` WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStartupError("UpdateFields", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return nil, persistence.NewStartupError("UpdateFields", id, persistence.ErrStartupNotFound)
	}

	return r.GetByID(ctx, id)
}

func (r *StartupRepository) scanStartup(scanner interface {
	Scan(dest ...any) error
}) (*models.Startup, error) {
	var (
		startup               models.Startup
		statusID, priority    sql.NullString
		assignedTo            sql.NullString
		dueDate               sql.NullTime
		valuesJSON, labelJSON []byte
	)

	err := scanner.Scan(
		&startup.ID,
		&startup.Name,
		&statusID,
		&priority,
		&assignedTo,
		&dueDate,
		&valuesJSON,
		&labelJSON,
		&startup.CreatedAt,
		&startup.UpdatedAt,
		&startup.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	startup.StatusID = statusID.String
	startup.Priority = models.Priority(priority.String)

	if assignedTo.Valid {
		startup.AssignedTo = &assignedTo.String
	}

	if dueDate.Valid {
		due := dueDate.Time
		startup.DueDate = &due
	}

	if valuesJSON != nil {
		err := json.Unmarshal(valuesJSON, &startup.Values)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal field values: %w", err)
		}
	}

	if labelJSON != nil {
		err := json.Unmarshal(labelJSON, &startup.Labels)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
	}

	return &startup, nil
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}

	return id
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
