package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// Startup provides CRUD over tracked deals. Status transitions go
// through StatusUpdater, not here.
type Startup struct {
	persistence persistence.Persistence
}

// NewStartup creates a new startup service.
func NewStartup(persistence persistence.Persistence) *Startup {
	return &Startup{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Startup) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all tracked startups.
func (s *Startup) List(ctx context.Context) ([]*models.Startup, error) {
	startups, err := s.persistence.Startups().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list startups: %w", err)
	}

	return startups, nil
}

// FetchByID retrieves a startup by its ID.
func (s *Startup) FetchByID(ctx context.Context, id string) (*models.Startup, error) {
	startup, err := s.persistence.Startups().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return startup, nil
}

// Create adds a new startup to the repository.
func (s *Startup) Create(ctx context.Context, startup *models.Startup) (*models.Startup, error) {
	now := time.Now().UTC()
	startup.ID = uuid.New().String()
	startup.CreatedAt = now
	startup.UpdatedAt = now

	if startup.Priority == "" {
		startup.Priority = models.PriorityMedium
	}

	err := s.persistence.Startups().Save(ctx, startup)
	if err != nil {
		return nil, fmt.Errorf("failed to create startup: %w", err)
	}

	return startup, nil
}

// Update applies a partial update after running it through the data
// preparer. The update is not a status move, so an empty status id
// coerces to null instead of failing.
func (s *Startup) Update(ctx context.Context, id string, update map[string]any) (*models.Startup, error) {
	existing, err := s.persistence.Startups().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prepared, err := models.PrepareStartupUpdate(update, false)
	if err != nil {
		return nil, NewValidationError("Update", "INVALID_UPDATE", err.Error(), err)
	}

	startup, err := s.persistence.Startups().UpdateFields(ctx, existing.ID, prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to update startup: %w", err)
	}

	return startup, nil
}

// Delete removes a startup by its ID.
func (s *Startup) Delete(ctx context.Context, id string) error {
	existing, err := s.persistence.Startups().GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.persistence.Startups().Delete(ctx, existing.ID)
	if err != nil {
		return fmt.Errorf("failed to delete startup: %w", err)
	}

	return nil
}

// History lists a startup's status transitions, newest first.
func (s *Startup) History(ctx context.Context, id string) ([]*models.StatusHistory, error) {
	if _, err := s.persistence.Startups().GetByID(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.persistence.History().ListByStartup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}

	return rows, nil
}
