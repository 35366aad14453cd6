package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/models"
)

const (
	cardA = "550e8400-e29b-41d4-a716-446655440000"
	cardB = "550e8400-e29b-41d4-a716-446655440001"

	analysisID  = "0190a000-0000-7000-8000-000000000001"
	diligenceID = "0190a000-0000-7000-8000-000000000002"
	investedID  = "0190a000-0000-7000-8000-000000000003"
)

func testStatuses() []*models.Status {
	return []*models.Status{
		{ID: investedID, Name: "Invested", Position: 2},
		{ID: analysisID, Name: "Analysis", Position: 0},
		{ID: diligenceID, Name: "Due Diligence", Position: 1},
	}
}

func testStartups() []*models.Startup {
	return []*models.Startup{
		{ID: cardA, Name: "Acme Robotics", StatusID: analysisID},
		{ID: cardB, Name: "Beta Analytics", StatusID: diligenceID},
	}
}

func newTestBoard() *Board {
	b := NewBoard()
	b.Rebuild(testStatuses(), testStartups())

	return b
}

func TestBoard_Rebuild(t *testing.T) {
	b := newTestBoard()

	// Statuses ordered by position regardless of input order.
	statuses := b.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, analysisID, statuses[0].ID)
	assert.Equal(t, diligenceID, statuses[1].ID)
	assert.Equal(t, investedID, statuses[2].ID)

	assert.Equal(t, []string{cardA}, b.Column(analysisID))
	assert.Equal(t, []string{cardB}, b.Column(diligenceID))
	assert.Empty(t, b.Column(investedID))
}

func TestBoard_ResolveStatus(t *testing.T) {
	b := newTestBoard()

	status, ok := b.ResolveStatus(diligenceID)
	require.True(t, ok)
	assert.Equal(t, "Due Diligence", status.Name)

	status, ok = b.ResolveStatus("due-diligence")
	require.True(t, ok)
	assert.Equal(t, diligenceID, status.ID)

	_, ok = b.ResolveStatus("col-1")
	assert.False(t, ok)

	// A UUID that is not a column does not fall back to slug matching.
	_, ok = b.ResolveStatus("0190a000-0000-7000-8000-0000000000ff")
	assert.False(t, ok)
}

func TestBoard_ColumnFor(t *testing.T) {
	b := newTestBoard()

	statusID, found := b.ColumnFor(cardA)
	require.True(t, found)
	assert.Equal(t, analysisID, statusID)

	_, found = b.ColumnFor("0190a000-0000-7000-8000-0000000000ff")
	assert.False(t, found)
}

func TestBoard_ApplyMoveAndRestore(t *testing.T) {
	b := newTestBoard()

	snapshot := b.ApplyMove(cardA, diligenceID)

	// The card appears only in the target column.
	assert.Empty(t, b.Column(analysisID))
	assert.Equal(t, []string{cardB, cardA}, b.Column(diligenceID))

	b.Restore(snapshot)

	assert.Equal(t, []string{cardA}, b.Column(analysisID))
	assert.Equal(t, []string{cardB}, b.Column(diligenceID))
}

func TestBoard_DragGenerations(t *testing.T) {
	b := newTestBoard()

	first := b.BeginDrag(cardA)
	second := b.BeginDrag(cardA)

	assert.False(t, b.Settle(cardA, first))
	assert.True(t, b.Settle(cardA, second))

	// Other cards have independent generations.
	other := b.BeginDrag(cardB)
	assert.True(t, b.Settle(cardB, other))
	assert.True(t, b.Settle(cardA, second))
}
