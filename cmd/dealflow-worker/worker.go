// Package main provides the Dealflow worker: it consumes pipeline
// events and runs the workflow rule engine outside the request path.
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealdesk/dealflow/pkg/eventbus"
	"github.com/dealdesk/dealflow/pkg/events"
	"github.com/dealdesk/dealflow/pkg/persistence"
	"github.com/dealdesk/dealflow/pkg/workflow"
)

type Worker struct {
	workerID string
	eventBus eventbus.EventBus
	consumer *workflow.Consumer
	logger   *slog.Logger
}

func NewWorker(
	workerID string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	engine := workflow.NewEngine(p, eventBus, nil, logger)

	return &Worker{
		workerID: workerID,
		eventBus: eventBus,
		consumer: workflow.NewConsumer(p, engine, logger),
		logger:   logger,
	}
}

// Start subscribes to pipeline events and blocks until the context is
// cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.consumer.Register(w.eventBus); err != nil {
		return err
	}

	err := w.eventBus.Handle(events.StartupStatusChangeFailedEvent, w.handleStatusChangeFailed)
	if err != nil {
		return fmt.Errorf("registering status change failed handler: %w", err)
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribing to pipeline events: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started, waiting for pipeline events")

	<-ctx.Done()

	return nil
}

func (w *Worker) handleStatusChangeFailed(ctx context.Context, event any) error {
	failed, ok := event.(*events.StartupStatusChangeFailed)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	w.logger.ErrorContext(ctx, "Status change failed on every tier",
		"startup_id", failed.StartupID, "new_status_id", failed.NewStatusID, "error", failed.Error)

	return nil
}
