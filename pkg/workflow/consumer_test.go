package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/channels/gochannel"
	"github.com/dealdesk/dealflow/pkg/eventbus"
	"github.com/dealdesk/dealflow/pkg/events"
	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// trackedStartups counts UpdateFields calls across goroutines: the
// consumer runs rules on the bus's delivery goroutine.
type trackedStartups struct {
	persistence.StartupRepository

	updateFieldCalls atomic.Int32
}

func (s *trackedStartups) UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.Startup, error) {
	s.updateFieldCalls.Add(1)

	return s.StartupRepository.UpdateFields(ctx, id, fields)
}

type trackedPersistence struct {
	persistence.Persistence

	startups *trackedStartups
}

func (p *trackedPersistence) Startups() persistence.StartupRepository {
	return p.startups
}

func setupConsumer(t *testing.T, p persistence.Persistence) (eventbus.EventBus, *trackedPersistence) {
	t.Helper()

	tracked := &trackedPersistence{
		Persistence: p,
		startups:    &trackedStartups{StartupRepository: p.Startups()},
	}

	channel := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(channel, channel)

	t.Cleanup(func() {
		assert.NoError(t, bus.Close())
	})

	engine := NewEngine(tracked, bus, nil, testLogger())
	consumer := NewConsumer(tracked, engine, testLogger())
	require.NoError(t, consumer.Register(bus))
	require.NoError(t, bus.Subscribe(t.Context()))

	return bus, tracked
}

func TestConsumer_RunsRulesExactlyOncePerStatusChange(t *testing.T) {
	p, startup := seedEngine(t)
	bus, tracked := setupConsumer(t, p)

	require.NoError(t, p.Rules().Save(t.Context(), &models.WorkflowRule{
		ID:     uuid.NewString(),
		Name:   "Escalate on move",
		Active: true,
		Conditions: []models.RuleCondition{
			{FieldID: "statusId", Operator: models.OperatorChanged},
		},
		Actions: []models.RuleAction{
			{Type: models.ActionUpdateField, Config: map[string]any{"field": "priority", "value": "high"}},
		},
	}))

	previous := startup.Snapshot()
	startup.StatusID = analysisID
	require.NoError(t, p.Startups().Save(t.Context(), startup))

	require.NoError(t, bus.Publish(t.Context(), startup.ID, events.StartupStatusChanged{
		BaseEvent:      events.NewBaseEvent(events.StartupStatusChangedEvent, startup.ID),
		NewStatusID:    analysisID,
		PreviousValues: previous,
	}))

	require.Eventually(t, func() bool {
		return tracked.startups.updateFieldCalls.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	// One event, one rule run: the write count stays at one.
	assert.Never(t, func() bool {
		return tracked.startups.updateFieldCalls.Load() > 1
	}, 200*time.Millisecond, 50*time.Millisecond)

	moved, err := p.Startups().GetByID(t.Context(), startup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, moved.Priority)
}

func TestConsumer_SkipsVanishedStartup(t *testing.T) {
	p, startup := seedEngine(t)
	bus, tracked := setupConsumer(t, p)

	require.NoError(t, p.Rules().Save(t.Context(), &models.WorkflowRule{
		ID:     uuid.NewString(),
		Name:   "Escalate on move",
		Active: true,
		Conditions: []models.RuleCondition{
			{FieldID: "statusId", Operator: models.OperatorChanged},
		},
		Actions: []models.RuleAction{
			{Type: models.ActionUpdateField, Config: map[string]any{"field": "priority", "value": "high"}},
		},
	}))

	// A vanished startup is skipped without poisoning the subscription.
	require.NoError(t, bus.Publish(t.Context(), "ghost", events.StartupStatusChanged{
		BaseEvent:   events.NewBaseEvent(events.StartupStatusChangedEvent, uuid.NewString()),
		NewStatusID: analysisID,
	}))

	previous := startup.Snapshot()
	startup.StatusID = analysisID
	require.NoError(t, p.Startups().Save(t.Context(), startup))

	require.NoError(t, bus.Publish(t.Context(), startup.ID, events.StartupStatusChanged{
		BaseEvent:      events.NewBaseEvent(events.StartupStatusChangedEvent, startup.ID),
		NewStatusID:    analysisID,
		PreviousValues: previous,
	}))

	require.Eventually(t, func() bool {
		return tracked.startups.updateFieldCalls.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}
