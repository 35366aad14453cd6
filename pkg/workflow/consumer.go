package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealdesk/dealflow/pkg/eventbus"
	"github.com/dealdesk/dealflow/pkg/events"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// Consumer adapts the engine to the event bus: every committed status
// change is processed exactly once by whichever process registered it,
// never inline in the request path.
type Consumer struct {
	persistence persistence.Persistence
	engine      *Engine
	logger      *slog.Logger
}

// NewConsumer creates the event-driven entry point to the rule engine.
func NewConsumer(p persistence.Persistence, engine *Engine, logger *slog.Logger) *Consumer {
	return &Consumer{
		persistence: p,
		engine:      engine,
		logger:      logger.With("module", "workflow_consumer"),
	}
}

// Register subscribes the consumer to status-change events.
func (c *Consumer) Register(bus eventbus.EventSubscriber) error {
	err := bus.Handle(events.StartupStatusChangedEvent, c.handleStatusChanged)
	if err != nil {
		return fmt.Errorf("registering status changed handler: %w", err)
	}

	return nil
}

// handleStatusChanged runs every workflow rule against the moved
// startup, using the event's snapshot as the previous state.
func (c *Consumer) handleStatusChanged(ctx context.Context, event any) error {
	changed, ok := event.(*events.StartupStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	logger := c.logger.With("startup_id", changed.StartupID, "event_id", changed.ID)
	logger.InfoContext(ctx, "Processing status change", "new_status_id", changed.NewStatusID)

	startup, err := c.persistence.Startups().GetByID(ctx, changed.StartupID)
	if err != nil {
		if persistence.IsStartupNotFound(err) {
			logger.WarnContext(ctx, "Startup vanished before rule processing")

			return nil
		}

		return err
	}

	return c.engine.ProcessMutation(ctx, startup, changed.PreviousValues)
}
