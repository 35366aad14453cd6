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

const startupKind = "startups"

// StartupRepository stores startups as JSON files.
type StartupRepository struct {
	p *Persistence
}

// GetByID returns a startup by its id.
func (r *StartupRepository) GetByID(ctx context.Context, id string) (*models.Startup, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	return r.getLocked(id)
}

func (r *StartupRepository) getLocked(id string) (*models.Startup, error) {
	var startup models.Startup

	err := r.p.readEntity(startupKind, id, &startup)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewStartupError("GetByID", id, persistence.ErrStartupNotFound)
		}

		return nil, err
	}

	if startup.DeletedAt != nil {
		return nil, persistence.NewStartupError("GetByID", id, persistence.ErrStartupNotFound)
	}

	return &startup, nil
}

// Exists reports whether the startup exists and its current status id.
func (r *StartupRepository) Exists(ctx context.Context, id string) (bool, string, error) {
	startup, err := r.GetByID(ctx, id)
	if err != nil {
		if persistence.IsStartupNotFound(err) {
			return false, "", nil
		}

		return false, "", err
	}

	return true, startup.StatusID, nil
}

// List returns all startups, newest first.
func (r *StartupRepository) List(ctx context.Context) ([]*models.Startup, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	ids, err := r.p.listIDs(startupKind)
	if err != nil {
		return nil, err
	}

	startups := make([]*models.Startup, 0, len(ids))

	for _, id := range ids {
		startup, err := r.getLocked(id)
		if err != nil {
			if persistence.IsStartupNotFound(err) {
				continue
			}

			return nil, err
		}

		startups = append(startups, startup)
	}

	sort.Slice(startups, func(i, j int) bool {
		return startups[i].CreatedAt.After(startups[j].CreatedAt)
	})

	return startups, nil
}

// Save upserts a startup.
func (r *StartupRepository) Save(ctx context.Context, startup *models.Startup) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.saveLocked(startup)
}

func (r *StartupRepository) saveLocked(startup *models.Startup) error {
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

	return r.p.writeEntity(startupKind, startup.ID, startup)
}

// Delete soft deletes a startup.
func (r *StartupRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	startup, err := r.getLocked(id)
	if err != nil {
		if persistence.IsStartupNotFound(err) {
			return nil
		}

		return err
	}

	now := time.Now().UTC()
	startup.DeletedAt = &now

	return r.p.writeEntity(startupKind, id, startup)
}

// MoveStatusSafely performs the status move and history bookkeeping
// under one lock: validates the target status, closes the open history
// row, and updates the startup. History insertion stays with the caller.
func (r *StartupRepository) MoveStatusSafely(ctx context.Context, id, newStatusID string, oldStatusID *string) (*models.Startup, error) {
	if newStatusID == "" {
		return nil, persistence.NewStartupError("MoveStatusSafely", id, persistence.ErrNullStatus)
	}

	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	exists, err := r.p.statusRepo.existsLocked(newStatusID)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, persistence.NewStartupError("MoveStatusSafely", id, persistence.ErrStatusNotFound)
	}

	startup, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}

	err = r.p.historyRepo.closeOpenLocked(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	startup.StatusID = newStatusID

	err = r.saveLocked(startup)
	if err != nil {
		return nil, err
	}

	return startup, nil
}

// UpdateStatus updates only the status field.
func (r *StartupRepository) UpdateStatus(ctx context.Context, id, statusID string) (*models.Startup, error) {
	if statusID == "" {
		return nil, persistence.NewStartupError("UpdateStatus", id, persistence.ErrNullStatus)
	}

	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	startup, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}

	startup.StatusID = statusID

	err = r.saveLocked(startup)
	if err != nil {
		return nil, err
	}

	return startup, nil
}

// UpdateFields applies a prepared column map to the stored startup.
// A null or empty status id in the map trips the null-status guard.
func (r *StartupRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.Startup, error) {
	if raw, present := fields["status_id"]; present {
		value, _ := raw.(string)
		if raw == nil || value == "" {
			return nil, persistence.NewStartupError("UpdateFields", id, persistence.ErrNullStatus)
		}
	}

	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	startup, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}

	for column, value := range fields {
		applyField(startup, column, value)
	}

	err = r.saveLocked(startup)
	if err != nil {
		return nil, err
	}

	return startup, nil
}

func applyField(startup *models.Startup, column string, value any) {
	switch column {
	case "name":
		if name, ok := value.(string); ok {
			startup.Name = name
		}
	case "status_id":
		if id, ok := value.(string); ok {
			startup.StatusID = id
		}
	case "priority":
		if priority, ok := value.(string); ok {
			startup.Priority = models.Priority(priority)
		}
	case "assigned_to":
		switch v := value.(type) {
		case nil:
			startup.AssignedTo = nil
		case string:
			startup.AssignedTo = &v
		}
	case "due_date":
		switch v := value.(type) {
		case nil:
			startup.DueDate = nil
		case time.Time:
			startup.DueDate = &v
		}
	default:
		if startup.Values == nil {
			startup.Values = make(map[string]any)
		}

		startup.Values[column] = value
	}
}
