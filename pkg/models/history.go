package models

import "time"

// StatusHistory is one append-only row of the status-transition audit
// log. ExitedAt and DurationSeconds are filled when the startup leaves
// the status: the next transition closes the open row, and the
// reconciler sweeps up anything a crash left dangling.
type StatusHistory struct {
	ID               string     `json:"id"`
	StartupID        string     `json:"startup_id"`
	StatusID         string     `json:"status_id"`
	PreviousStatusID *string    `json:"previous_status_id,omitempty"`
	EnteredAt        time.Time  `json:"entered_at"`
	ExitedAt         *time.Time `json:"exited_at,omitempty"`
	DurationSeconds  *int64     `json:"duration_seconds,omitempty"`
}

// Close stamps the exit time and derives the duration spent in the
// status. Closing an already-closed row is a no-op.
func (h *StatusHistory) Close(at time.Time) {
	if h.ExitedAt != nil {
		return
	}

	exited := at.UTC()
	duration := int64(exited.Sub(h.EnteredAt).Seconds())

	if duration < 0 {
		duration = 0
	}

	h.ExitedAt = &exited
	h.DurationSeconds = &duration
}
