package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

const statusKind = "statuses"

// StatusRepository stores pipeline statuses as JSON files.
type StatusRepository struct {
	p *Persistence
}

// GetAll returns the pipeline stages in board order.
func (r *StatusRepository) GetAll(ctx context.Context) ([]*models.Status, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	ids, err := r.p.listIDs(statusKind)
	if err != nil {
		return nil, err
	}

	statuses := make([]*models.Status, 0, len(ids))

	for _, id := range ids {
		var status models.Status

		err := r.p.readEntity(statusKind, id, &status)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, &status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Position != statuses[j].Position {
			return statuses[i].Position < statuses[j].Position
		}

		return statuses[i].CreatedAt.Before(statuses[j].CreatedAt)
	})

	return statuses, nil
}

// GetByID returns a status by its id.
func (r *StatusRepository) GetByID(ctx context.Context, id string) (*models.Status, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var status models.Status

	err := r.p.readEntity(statusKind, id, &status)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrStatusNotFound
		}

		return nil, err
	}

	return &status, nil
}

// Exists reports whether a status exists by id.
func (r *StatusRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	return r.existsLocked(id)
}

func (r *StatusRepository) existsLocked(id string) (bool, error) {
	var status models.Status

	err := r.p.readEntity(statusKind, id, &status)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// Save upserts a status.
func (r *StatusRepository) Save(ctx context.Context, status *models.Status) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

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

	return r.p.writeEntity(statusKind, status.ID, status)
}
