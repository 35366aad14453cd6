package reconciler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence/file"
)

const (
	startupID   = "550e8400-e29b-41d4-a716-446655440000"
	analysisID  = "0190a000-0000-7000-8000-000000000001"
	diligenceID = "0190a000-0000-7000-8000-000000000002"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconciler_Sweep(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	// A crash left the analysis row open even though the startup has
	// been in diligence for an hour.
	entered := time.Now().UTC().Add(-2 * time.Hour)
	superseded := entered.Add(time.Hour)

	dangling := &models.StatusHistory{
		StartupID: startupID,
		StatusID:  analysisID,
		EnteredAt: entered,
	}
	require.NoError(t, p.History().Insert(t.Context(), dangling))

	current := &models.StatusHistory{
		StartupID:        startupID,
		StatusID:         diligenceID,
		PreviousStatusID: &dangling.StatusID,
		EnteredAt:        superseded,
	}
	require.NoError(t, p.History().Insert(t.Context(), current))

	r := New(p, testLogger())

	closed, err := r.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	rows, err := p.History().ListByStartup(t.Context(), startupID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first: the diligence row stays open, the dangling analysis
	// row is closed at the moment it was superseded.
	assert.Nil(t, rows[0].ExitedAt)
	require.NotNil(t, rows[1].ExitedAt)
	assert.WithinDuration(t, superseded, *rows[1].ExitedAt, time.Second)
	require.NotNil(t, rows[1].DurationSeconds)
	assert.InDelta(t, 3600, *rows[1].DurationSeconds, 2)
}

func TestReconciler_Sweep_NothingDangling(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	// An open row on the startup's current status is not dangling.
	require.NoError(t, p.History().Insert(t.Context(), &models.StatusHistory{
		StartupID: startupID,
		StatusID:  analysisID,
		EnteredAt: time.Now().UTC().Add(-2 * time.Hour),
	}))

	r := New(p, testLogger())

	closed, err := r.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}

func TestReconciler_Sweep_RespectsMinAge(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	// A move still settling: the open row is younger than the minimum
	// age even though a newer row exists.
	now := time.Now().UTC()

	require.NoError(t, p.History().Insert(t.Context(), &models.StatusHistory{
		StartupID: startupID,
		StatusID:  analysisID,
		EnteredAt: now.Add(-time.Minute),
	}))
	require.NoError(t, p.History().Insert(t.Context(), &models.StatusHistory{
		StartupID: startupID,
		StatusID:  diligenceID,
		EnteredAt: now,
	}))

	r := New(p, testLogger())

	closed, err := r.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}
