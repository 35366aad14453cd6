package postgresql

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/persistence"
)

// TestStartupRepository_NullStatusGuards tests that status-clearing writes are
// rejected before any query runs.
func TestStartupRepository_NullStatusGuards(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(nil, nil))
	repo := &StartupRepository{
		db:     nil, // Not needed: the guard rejects before touching the database
		logger: logger,
	}

	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "UpdateStatus with empty status id",
			call: func() error {
				_, err := repo.UpdateStatus(ctx, "startup-1", "")

				return err
			},
		},
		{
			name: "MoveStatusSafely with empty status id",
			call: func() error {
				_, err := repo.MoveStatusSafely(ctx, "startup-1", "", nil)

				return err
			},
		},
		{
			name: "UpdateFields with nil status id",
			call: func() error {
				_, err := repo.UpdateFields(ctx, "startup-1", map[string]any{"status_id": nil})

				return err
			},
		},
		{
			name: "UpdateFields with empty status id",
			call: func() error {
				_, err := repo.UpdateFields(ctx, "startup-1", map[string]any{"status_id": ""})

				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, persistence.IsNullStatus(err))
		})
	}
}
