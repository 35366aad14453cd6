package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// StatusRepository handles pipeline status database operations.
type StatusRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStatusRepository creates a new status repository.
func NewStatusRepository(db *sql.DB, logger *slog.Logger) *StatusRepository {
	return &StatusRepository{db: db, logger: logger}
}

// GetAll returns the pipeline stages in board order.
func (r *StatusRepository) GetAll(ctx context.Context) ([]*models.Status, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, position, created_at, updated_at
		FROM statuses
		ORDER BY position, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	statuses := make([]*models.Status, 0)

	for rows.Next() {
		var status models.Status

		err := rows.Scan(&status.ID, &status.Name, &status.Color, &status.Position,
			&status.CreatedAt, &status.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}

		statuses = append(statuses, &status)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating statuses: %w", err)
	}

	return statuses, nil
}

// GetByID returns a status by its id.
func (r *StatusRepository) GetByID(ctx context.Context, id string) (*models.Status, error) {
	var status models.Status

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, color, position, created_at, updated_at
		FROM statuses
		WHERE id = $1
	`, id).Scan(&status.ID, &status.Name, &status.Color, &status.Position,
		&status.CreatedAt, &status.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrStatusNotFound
		}

		return nil, fmt.Errorf("failed to scan status: %w", err)
	}

	return &status, nil
}

// Exists reports whether a status exists by id.
func (r *StatusRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM statuses WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query status existence: %w", err)
	}

	return exists, nil
}

// Save upserts a status.
func (r *StatusRepository) Save(ctx context.Context, status *models.Status) error {
	now := time.Now().UTC()

	if status.CreatedAt.IsZero() {
		status.CreatedAt = now
	}

	status.UpdatedAt = now

	if status.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate status ID: %w", err)
		}

		status.ID = id.String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO statuses (id, name, color, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			color = EXCLUDED.color,
			position = EXCLUDED.position,
			updated_at = EXCLUDED.updated_at
	`, status.ID, status.Name, status.Color, status.Position, status.CreatedAt, status.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}

	return nil
}
