package postgresql_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

func TestHistoryRepository_InsertAndList(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	analysis := seedStatus(ctx, t, p, "Analysis", 1)
	diligence := seedStatus(ctx, t, p, "Due Diligence", 2)
	startup := seedStartup(ctx, t, p, "Acme Robotics", analysis.ID)

	first := &models.StatusHistory{
		StartupID: startup.ID,
		StatusID:  analysis.ID,
		EnteredAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, p.History().Insert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &models.StatusHistory{
		StartupID:        startup.ID,
		StatusID:         diligence.ID,
		PreviousStatusID: &analysis.ID,
		EnteredAt:        time.Now().UTC().Add(-1 * time.Hour),
	}
	require.NoError(t, p.History().Insert(ctx, second))

	history, err := p.History().ListByStartup(ctx, startup.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first
	assert.Equal(t, diligence.ID, history[0].StatusID)
	require.NotNil(t, history[0].PreviousStatusID)
	assert.Equal(t, analysis.ID, *history[0].PreviousStatusID)
	assert.Equal(t, analysis.ID, history[1].StatusID)
	assert.Nil(t, history[1].PreviousStatusID)
}

func TestHistoryRepository_Insert_NullStatusGuard(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	analysis := seedStatus(ctx, t, p, "Analysis", 1)
	startup := seedStartup(ctx, t, p, "Acme Robotics", analysis.ID)

	err := p.History().Insert(ctx, &models.StatusHistory{StartupID: startup.ID})
	require.Error(t, err)
	assert.True(t, persistence.IsNullStatus(err))
}

func TestHistoryRepository_CloseOpen(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	analysis := seedStatus(ctx, t, p, "Analysis", 1)
	startup := seedStartup(ctx, t, p, "Acme Robotics", analysis.ID)

	entered := time.Now().UTC().Add(-30 * time.Minute)
	require.NoError(t, p.History().Insert(ctx, &models.StatusHistory{
		StartupID: startup.ID,
		StatusID:  analysis.ID,
		EnteredAt: entered,
	}))

	require.NoError(t, p.History().CloseOpen(ctx, startup.ID, time.Now().UTC()))

	history, err := p.History().ListByStartup(ctx, startup.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].ExitedAt)
	require.NotNil(t, history[0].DurationSeconds)
	assert.InDelta(t, 1800, *history[0].DurationSeconds, 5)
}

func TestHistoryRepository_OpenRows_FindsDangling(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	analysis := seedStatus(ctx, t, p, "Analysis", 1)
	diligence := seedStatus(ctx, t, p, "Due Diligence", 2)
	startup := seedStartup(ctx, t, p, "Acme Robotics", diligence.ID)

	// Open row superseded by a newer transition: a crash left it dangling.
	dangling := &models.StatusHistory{
		StartupID: startup.ID,
		StatusID:  analysis.ID,
		EnteredAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, p.History().Insert(ctx, dangling))
	require.NoError(t, p.History().Insert(ctx, &models.StatusHistory{
		StartupID:        startup.ID,
		StatusID:         diligence.ID,
		PreviousStatusID: &analysis.ID,
		EnteredAt:        time.Now().UTC().Add(-1 * time.Hour),
	}))

	rows, err := p.History().OpenRows(ctx, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dangling.ID, rows[0].ID)
}

func TestHistoryRepository_OpenRows_LatestRowStaysOpen(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	analysis := seedStatus(ctx, t, p, "Analysis", 1)
	startup := seedStartup(ctx, t, p, "Acme Robotics", analysis.ID)

	// The current open row is legitimate: nothing newer supersedes it.
	require.NoError(t, p.History().Insert(ctx, &models.StatusHistory{
		StartupID: startup.ID,
		StatusID:  analysis.ID,
		EnteredAt: time.Now().UTC().Add(-2 * time.Hour),
	}))

	rows, err := p.History().OpenRows(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHistoryRepository_Update(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	analysis := seedStatus(ctx, t, p, "Analysis", 1)
	startup := seedStartup(ctx, t, p, "Acme Robotics", analysis.ID)

	row := &models.StatusHistory{
		StartupID: startup.ID,
		StatusID:  analysis.ID,
		EnteredAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, p.History().Insert(ctx, row))

	row.Close(row.EnteredAt.Add(45 * time.Minute))
	require.NoError(t, p.History().Update(ctx, row))

	history, err := p.History().ListByStartup(ctx, startup.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].DurationSeconds)
	assert.Equal(t, int64(2700), *history[0].DurationSeconds)
}

func TestHistoryRepository_Update_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.History().Update(ctx, &models.StatusHistory{ID: "0198c4e2-0000-7000-8000-000000000000"})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrHistoryNotFound)
}
