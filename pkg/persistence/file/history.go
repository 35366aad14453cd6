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

const historyKind = "history"

// HistoryRepository stores status-transition rows as JSON files.
type HistoryRepository struct {
	p *Persistence
}

// Insert appends a history row.
func (r *HistoryRepository) Insert(ctx context.Context, row *models.StatusHistory) error {
	if row.StatusID == "" {
		return persistence.ErrNullStatus
	}

	r.p.mu.Lock()
	defer r.p.mu.Unlock()

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

	return r.p.writeEntity(historyKind, row.ID, row)
}

// ListByStartup returns a startup's transitions, newest first.
func (r *HistoryRepository) ListByStartup(ctx context.Context, startupID string) ([]*models.StatusHistory, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.StatusHistory, 0)

	for _, row := range rows {
		if row.StartupID == startupID {
			matched = append(matched, row)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].EnteredAt.After(matched[j].EnteredAt)
	})

	return matched, nil
}

// CloseOpen closes the startup's open history row at the given time.
func (r *HistoryRepository) CloseOpen(ctx context.Context, startupID string, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.closeOpenLocked(startupID, at)
}

func (r *HistoryRepository) closeOpenLocked(startupID string, at time.Time) error {
	rows, err := r.allLocked()
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.StartupID != startupID || row.ExitedAt != nil {
			continue
		}

		row.Close(at)

		err := r.p.writeEntity(historyKind, row.ID, row)
		if err != nil {
			return err
		}
	}

	return nil
}

// OpenRows returns dangling open rows older than the given age.
func (r *HistoryRepository) OpenRows(ctx context.Context, olderThan time.Duration) ([]*models.StatusHistory, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rows, err := r.allLocked()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	latest := make(map[string]time.Time)

	for _, row := range rows {
		if row.EnteredAt.After(latest[row.StartupID]) {
			latest[row.StartupID] = row.EnteredAt
		}
	}

	open := make([]*models.StatusHistory, 0)

	for _, row := range rows {
		if row.ExitedAt != nil || !row.EnteredAt.Before(cutoff) {
			continue
		}

		// Only rows the startup has already moved past are dangling.
		if row.EnteredAt.Equal(latest[row.StartupID]) {
			continue
		}

		open = append(open, row)
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].EnteredAt.Before(open[j].EnteredAt)
	})

	return open, nil
}

// Update rewrites an existing row.
func (r *HistoryRepository) Update(ctx context.Context, row *models.StatusHistory) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var existing models.StatusHistory

	err := r.p.readEntity(historyKind, row.ID, &existing)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistence.ErrHistoryNotFound
		}

		return err
	}

	return r.p.writeEntity(historyKind, row.ID, row)
}

func (r *HistoryRepository) allLocked() ([]*models.StatusHistory, error) {
	ids, err := r.p.listIDs(historyKind)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.StatusHistory, 0, len(ids))

	for _, id := range ids {
		var row models.StatusHistory

		err := r.p.readEntity(historyKind, id, &row)
		if err != nil {
			return nil, err
		}

		rows = append(rows, &row)
	}

	return rows, nil
}
