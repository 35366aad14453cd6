package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMover struct {
	fail         error
	noOp         bool
	requests     []services.MoveRequest
	beforeReturn func()
}

func (m *fakeMover) Move(_ context.Context, req services.MoveRequest) (*services.MoveResult, error) {
	m.requests = append(m.requests, req)

	if m.beforeReturn != nil {
		m.beforeReturn()
	}

	if m.fail != nil {
		return nil, m.fail
	}

	status := &models.Status{ID: req.NewStatusID, Name: "Due Diligence"}
	startup := &models.Startup{ID: req.StartupID, Name: "Acme Robotics", StatusID: req.NewStatusID}

	return &services.MoveResult{
		Startup:          startup,
		Status:           status,
		PreviousStatusID: req.OldStatusID,
		PreviousValues:   map[string]any{"statusId": analysisID},
		NoOp:             m.noOp,
	}, nil
}

type fakeNotifier struct {
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(_ context.Context, message string) {
	n.successes = append(n.successes, message)
}

func (n *fakeNotifier) Error(_ context.Context, message string) {
	n.errors = append(n.errors, message)
}

func TestDropHandler_HandleDrop(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	notifier := &fakeNotifier{}
	handler := NewDropHandler(b, mover, notifier, testLogger())

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: diligenceID,
		SourceColumnID: analysisID,
	})
	require.NoError(t, err)

	// Source column came from the payload.
	require.Len(t, mover.requests, 1)
	require.NotNil(t, mover.requests[0].OldStatusID)
	assert.Equal(t, analysisID, *mover.requests[0].OldStatusID)

	assert.Empty(t, b.Column(analysisID))
	assert.Contains(t, b.Column(diligenceID), cardA)

	require.Len(t, notifier.successes, 1)
	assert.Equal(t, "Startup movido para Due Diligence", notifier.successes[0])
}

func TestDropHandler_IgnoresColumnDrops(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	handler := NewDropHandler(b, mover, nil, testLogger())

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeColumn,
		StartupID:      cardA,
		TargetColumnID: diligenceID,
	})
	require.NoError(t, err)
	assert.Empty(t, mover.requests)
}

func TestDropHandler_RejectsMalformedTarget(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	notifier := &fakeNotifier{}
	handler := NewDropHandler(b, mover, notifier, testLogger())

	before := b.Columns()

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: "col-1",
	})
	require.Error(t, err)

	// No optimistic mutation is retained and nothing was committed.
	assert.Equal(t, before, b.Columns())
	assert.Empty(t, mover.requests)
	require.Len(t, notifier.errors, 1)
}

func TestDropHandler_RejectsMalformedStartupID(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	notifier := &fakeNotifier{}
	handler := NewDropHandler(b, mover, notifier, testLogger())

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      "not-a-uuid",
		TargetColumnID: diligenceID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidStartupID)
	assert.Empty(t, mover.requests)
	assert.Len(t, notifier.errors, 1)
}

func TestDropHandler_SlugTarget(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	handler := NewDropHandler(b, mover, nil, testLogger())

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: "due-diligence",
	})
	require.NoError(t, err)

	require.Len(t, mover.requests, 1)
	assert.Equal(t, diligenceID, mover.requests[0].NewStatusID)
}

func TestDropHandler_NoOpDrop(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	notifier := &fakeNotifier{}
	handler := NewDropHandler(b, mover, notifier, testLogger())

	// Dropping onto the current column: zero writes, zero toasts.
	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: analysisID,
		SourceColumnID: analysisID,
	})
	require.NoError(t, err)

	assert.Empty(t, mover.requests)
	assert.Empty(t, notifier.successes)
	assert.Empty(t, notifier.errors)
	assert.Equal(t, []string{cardA}, b.Column(analysisID))
}

func TestDropHandler_RollsBackOnFailure(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{fail: errors.New("backend down")}
	notifier := &fakeNotifier{}
	handler := NewDropHandler(b, mover, notifier, testLogger())

	before := b.Columns()

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: diligenceID,
		SourceColumnID: analysisID,
	})
	require.Error(t, err)

	assert.Equal(t, before, b.Columns())
	require.Len(t, notifier.errors, 1)
	assert.Contains(t, notifier.errors[0], "backend down")
}

func TestDropHandler_PreviousFromProjection(t *testing.T) {
	b := newTestBoard()
	mover := &fakeMover{}
	handler := NewDropHandler(b, mover, nil, testLogger())

	// Source column missing from the payload: the board scan fills in.
	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: diligenceID,
	})
	require.NoError(t, err)

	require.Len(t, mover.requests, 1)
	require.NotNil(t, mover.requests[0].OldStatusID)
	assert.Equal(t, analysisID, *mover.requests[0].OldStatusID)
}

func TestDropHandler_StaleSettlementIgnored(t *testing.T) {
	b := newTestBoard()
	notifier := &fakeNotifier{}

	mover := &fakeMover{fail: errors.New("slow backend")}
	handler := NewDropHandler(b, mover, notifier, testLogger())

	// A second drag begins while the first is in flight; the first
	// settlement is stale and must not roll back the newer state.
	mover.beforeReturn = func() {
		mover.beforeReturn = nil
		b.BeginDrag(cardA)
	}

	err := handler.HandleDrop(t.Context(), DropEvent{
		Type:           DropTypeStartup,
		StartupID:      cardA,
		TargetColumnID: diligenceID,
		SourceColumnID: analysisID,
	})
	require.NoError(t, err)

	// No rollback and no toast: the optimistic state stands for the
	// newer drag to settle.
	assert.Contains(t, b.Column(diligenceID), cardA)
	assert.Empty(t, notifier.errors)
}
