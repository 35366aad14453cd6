// Package board maintains the kanban projection of the pipeline and
// orchestrates card drops against the status updater.
package board

import (
	"sync"

	"github.com/dealdesk/dealflow/pkg/identity"
	"github.com/dealdesk/dealflow/pkg/models"
)

// Board is the in-memory column projection: one ordered list of startup
// ids per status. It is mutated optimistically during a drop and
// rebuilt from storage on refresh.
type Board struct {
	mu          sync.Mutex
	statuses    []*models.Status
	columns     map[string][]string
	generations map[string]uint64
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		columns:     make(map[string][]string),
		generations: make(map[string]uint64),
	}
}

// Rebuild replaces the projection from authoritative storage results.
// Columns follow status position order; cards keep listing order.
func (b *Board) Rebuild(statuses []*models.Status, startups []*models.Startup) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sorted := make([]*models.Status, len(statuses))
	copy(sorted, statuses)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Position > sorted[j].Position; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	columns := make(map[string][]string, len(sorted))
	for _, status := range sorted {
		columns[status.ID] = make([]string, 0)
	}

	for _, startup := range startups {
		if startup.StatusID == "" {
			continue
		}

		if _, known := columns[startup.StatusID]; known {
			columns[startup.StatusID] = append(columns[startup.StatusID], startup.ID)
		}
	}

	b.statuses = sorted
	b.columns = columns
}

// Columns returns a copy of the projection keyed by status id.
func (b *Board) Columns() map[string][]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.copyColumnsLocked()
}

// Column returns a copy of one column's card ids.
func (b *Board) Column(statusID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := b.columns[statusID]
	out := make([]string, len(ids))
	copy(out, ids)

	return out
}

// Statuses returns the board's status list in column order.
func (b *Board) Statuses() []*models.Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*models.Status, len(b.statuses))
	copy(out, b.statuses)

	return out
}

// ResolveStatus resolves a column reference, UUID or slug, to a status.
func (b *Board) ResolveStatus(ref string) (*models.Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if identity.IsValidUUID(ref) {
		for _, status := range b.statuses {
			if status.ID == ref {
				return status, true
			}
		}

		return nil, false
	}

	return models.MatchStatusSlug(b.statuses, ref)
}

// ColumnFor scans the projection for the column holding a card.
func (b *Board) ColumnFor(startupID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for statusID, ids := range b.columns {
		for _, id := range ids {
			if id == startupID {
				return statusID, true
			}
		}
	}

	return "", false
}

// ApplyMove optimistically rewrites the projection so the card appears
// only in the target column, returning the pre-move snapshot.
func (b *Board) ApplyMove(startupID, targetStatusID string) map[string][]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.copyColumnsLocked()

	for statusID, ids := range b.columns {
		filtered := ids[:0]

		for _, id := range ids {
			if id != startupID {
				filtered = append(filtered, id)
			}
		}

		b.columns[statusID] = filtered
	}

	b.columns[targetStatusID] = append(b.columns[targetStatusID], startupID)

	return snapshot
}

// Restore reverts the projection to a snapshot taken by ApplyMove.
func (b *Board) Restore(snapshot map[string][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.columns = snapshot
}

// BeginDrag bumps the card's drag generation and returns the token for
// this drag. A settlement carrying a stale token must be ignored.
func (b *Board) BeginDrag(startupID string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generations[startupID]++

	return b.generations[startupID]
}

// Settle reports whether the given token is still the card's newest
// drag. Stale settlements return false and must not touch the board.
func (b *Board) Settle(startupID string, generation uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.generations[startupID] == generation
}

func (b *Board) copyColumnsLocked() map[string][]string {
	out := make(map[string][]string, len(b.columns))

	for statusID, ids := range b.columns {
		column := make([]string, len(ids))
		copy(column, ids)
		out[statusID] = column
	}

	return out
}
