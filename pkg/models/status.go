package models

import (
	"time"

	"github.com/dealdesk/dealflow/pkg/identity"
)

// Status is a pipeline stage. Exactly one ordered list of statuses
// defines the pipeline; Position is the ordinal within it.
type Status struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"     validate:"required,min=1"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slug returns the normalized human-readable identifier for the status.
func (s *Status) Slug() string {
	return identity.Slugify(s.Name)
}

// MatchStatusSlug finds the status whose name normalizes to the same
// slug as ref. Returns false when nothing matches.
func MatchStatusSlug(statuses []*Status, ref string) (*Status, bool) {
	want := identity.Slugify(ref)
	if want == "" {
		return nil, false
	}

	for _, status := range statuses {
		if status.Slug() == want {
			return status, true
		}
	}

	return nil, false
}
