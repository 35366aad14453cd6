package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealdesk/dealflow/pkg/eventbus"
	"github.com/dealdesk/dealflow/pkg/events"
	"github.com/dealdesk/dealflow/pkg/identity"
	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/otelhelper"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// investedSlugs name the distinguished pipeline stage whose entry
// invalidates cached portfolio projections.
var investedSlugs = map[string]struct{}{
	"invested":  {},
	"investida": {},
	"investido": {},
}

// PortfolioInvalidator drops cached portfolio projections.
type PortfolioInvalidator interface {
	Invalidate(ctx context.Context) error
}

// MoveRequest asks for a startup's status transition. NewStatusID may
// be a UUID or a status-name slug.
type MoveRequest struct {
	StartupID   string
	NewStatusID string
	OldStatusID *string
}

// MoveResult reports a settled transition. PreviousValues is the
// startup snapshot taken before the write, for rule evaluation.
type MoveResult struct {
	Startup          *models.Startup
	Status           *models.Status
	PreviousStatusID *string
	PreviousValues   map[string]any
	NoOp             bool
	Strategy         string
}

// updateStrategy is one tier of the persistence fallback chain.
type updateStrategy struct {
	name  string
	apply func(ctx context.Context) (*models.Startup, error)
}

// StatusUpdater performs status transitions with graceful degradation:
// a transactional move, falling back to a direct status write, falling
// back to a fully prepared field update. History recording and event
// publishing are best effort and never fail the move.
type StatusUpdater struct {
	persistence persistence.Persistence
	checker     *ExistenceChecker
	publisher   eventbus.EventPublisher
	portfolio   PortfolioInvalidator
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewStatusUpdater creates the updater. publisher, portfolio, and
// tracer may be nil; the corresponding side effects are skipped.
func NewStatusUpdater(
	p persistence.Persistence,
	checker *ExistenceChecker,
	publisher eventbus.EventPublisher,
	portfolio PortfolioInvalidator,
	tracer trace.Tracer,
	logger *slog.Logger,
) *StatusUpdater {
	return &StatusUpdater{
		persistence: p,
		checker:     checker,
		publisher:   publisher,
		portfolio:   portfolio,
		tracer:      tracer,
		logger:      logger.With("module", "status_updater"),
	}
}

// Move runs the full transition pipeline for one startup.
func (u *StatusUpdater) Move(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	if u.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, u.tracer, "status_updater.move",
			attribute.String(otelhelper.StartupIDKey, req.StartupID),
			attribute.String(otelhelper.StatusIDKey, req.NewStatusID),
		)
		defer span.End()
	}

	startupID, newStatus, oldStatusID, err := u.checkPreconditions(ctx, req)
	if err != nil {
		return nil, err
	}

	currentStatusID, err := u.checker.VerifyStartupExists(ctx, startupID)
	if err != nil {
		return nil, err
	}

	previousStatusID := u.resolvePrevious(ctx, oldStatusID, currentStatusID)

	if currentStatusID == newStatus.ID {
		startup, err := u.persistence.Startups().GetByID(ctx, startupID)
		if err != nil {
			return nil, fmt.Errorf("loading startup %s: %w", startupID, err)
		}

		u.logger.DebugContext(ctx, "Startup already in target status, skipping",
			"startup_id", startupID, "status_id", newStatus.ID)

		return &MoveResult{
			Startup:          startup,
			Status:           newStatus,
			PreviousStatusID: previousStatusID,
			NoOp:             true,
		}, nil
	}

	before, err := u.persistence.Startups().GetByID(ctx, startupID)
	if err != nil {
		return nil, fmt.Errorf("loading startup %s: %w", startupID, err)
	}

	previousValues := before.Snapshot()

	startup, strategy, err := u.applyStrategies(ctx, startupID, newStatus.ID, previousStatusID)
	if err != nil {
		u.publishFailure(ctx, startupID, newStatus.ID, err)

		return nil, err
	}

	u.recordHistory(ctx, startupID, newStatus.ID, previousStatusID)

	result := &MoveResult{
		Startup:          startup,
		Status:           newStatus,
		PreviousStatusID: previousStatusID,
		PreviousValues:   previousValues,
		Strategy:         strategy,
	}

	u.publishChanged(ctx, result)
	u.invalidatePortfolio(ctx, newStatus)

	return result, nil
}

// checkPreconditions validates and normalizes the request without any
// retried network work beyond slug resolution. A malformed old status
// id is dropped with a warning rather than failing the move.
func (u *StatusUpdater) checkPreconditions(
	ctx context.Context,
	req MoveRequest,
) (string, *models.Status, *string, error) {
	startupID, ok := identity.SanitizeID(req.StartupID)
	if !ok {
		return "", nil, nil, NewValidationError(
			"Move", "STARTUP_ID_REQUIRED", "startup ID is required", ErrStartupIDRequired)
	}

	if !identity.IsValidUUID(startupID) {
		return "", nil, nil, NewValidationError(
			"Move", "INVALID_STARTUP_ID",
			fmt.Sprintf("startup ID %q is not a valid UUID", startupID), ErrInvalidStartupID)
	}

	if _, ok := identity.SanitizeID(req.NewStatusID); !ok {
		return "", nil, nil, NewValidationError(
			"Move", "STATUS_ID_REQUIRED", "new status ID is required", ErrStatusIDRequired)
	}

	newStatus, err := u.checker.VerifyStatusExists(ctx, req.NewStatusID)
	if err != nil {
		return "", nil, nil, err
	}

	var oldStatusID *string

	if req.OldStatusID != nil {
		sanitized, ok := identity.SanitizeID(*req.OldStatusID)
		if ok && identity.IsValidUUID(sanitized) {
			oldStatusID = &sanitized
		} else {
			u.logger.WarnContext(ctx, "Dropping malformed old status ID",
				"startup_id", startupID, "old_status_id", *req.OldStatusID)
		}
	}

	return startupID, newStatus, oldStatusID, nil
}

// resolvePrevious picks the previous status: the caller-supplied id
// when present, otherwise the startup's recorded status, otherwise
// unknown.
func (u *StatusUpdater) resolvePrevious(ctx context.Context, oldStatusID *string, currentStatusID string) *string {
	if oldStatusID != nil {
		return oldStatusID
	}

	if currentStatusID != "" {
		return &currentStatusID
	}

	u.logger.WarnContext(ctx, "Previous status unknown, history row will have no previous_status_id")

	return nil
}

// applyStrategies tries each persistence tier in order and stops at the
// first success. On total failure the tier errors are joined.
func (u *StatusUpdater) applyStrategies(
	ctx context.Context,
	startupID, newStatusID string,
	previousStatusID *string,
) (*models.Startup, string, error) {
	strategies := []updateStrategy{
		{
			name: "rpc",
			apply: func(ctx context.Context) (*models.Startup, error) {
				return u.persistence.Startups().MoveStatusSafely(ctx, startupID, newStatusID, previousStatusID)
			},
		},
		{
			name: "direct",
			apply: func(ctx context.Context) (*models.Startup, error) {
				return u.persistence.Startups().UpdateStatus(ctx, startupID, newStatusID)
			},
		},
		{
			name: "prepared",
			apply: func(ctx context.Context) (*models.Startup, error) {
				prepared, err := models.PrepareStartupUpdate(map[string]any{"status_id": newStatusID}, true)
				if err != nil {
					return nil, err
				}

				return u.persistence.Startups().UpdateFields(ctx, startupID, prepared)
			},
		},
	}

	failures := make([]error, 0, len(strategies))

	for _, strategy := range strategies {
		startup, err := strategy.apply(ctx)
		if err == nil {
			u.logger.InfoContext(ctx, "Status update succeeded",
				"startup_id", startupID, "status_id", newStatusID, "strategy", strategy.name)

			return startup, strategy.name, nil
		}

		if persistence.IsNullStatus(err) {
			u.logger.ErrorContext(ctx, "CRITICAL: null status blocked during status update",
				"startup_id", startupID, "strategy", strategy.name, "error", err)
		} else {
			u.logger.WarnContext(ctx, "Status update strategy failed, falling through",
				"startup_id", startupID, "strategy", strategy.name, "error", err)
		}

		failures = append(failures, fmt.Errorf("%s: %w", strategy.name, err))
	}

	return nil, "", fmt.Errorf("%w: %w", ErrStatusUpdateFailed, errors.Join(failures...))
}

// recordHistory closes the previous open row and inserts the new one.
// History is an audit side effect; failures are logged, never surfaced.
func (u *StatusUpdater) recordHistory(ctx context.Context, startupID, newStatusID string, previousStatusID *string) {
	now := time.Now().UTC()

	if err := u.persistence.History().CloseOpen(ctx, startupID, now); err != nil {
		u.logger.WarnContext(ctx, "Failed to close previous history row",
			"startup_id", startupID, "error", err)
	}

	row := &models.StatusHistory{
		StartupID:        startupID,
		StatusID:         newStatusID,
		PreviousStatusID: previousStatusID,
		EnteredAt:        now,
	}

	if err := u.persistence.History().Insert(ctx, row); err != nil {
		u.logger.WarnContext(ctx, "Failed to record status history",
			"startup_id", startupID, "status_id", newStatusID, "error", err)

		return
	}

	if u.publisher == nil {
		return
	}

	event := events.StatusHistoryRecorded{
		BaseEvent:   events.NewBaseEvent(events.StatusHistoryRecordedEvent, startupID),
		HistoryID:   row.ID,
		NewStatusID: newStatusID,
		OldStatusID: previousStatusID,
		EnteredAt:   now,
	}

	if err := u.publisher.Publish(ctx, startupID, event); err != nil {
		u.logger.WarnContext(ctx, "Failed to publish history event",
			"startup_id", startupID, "error", err)
	}
}

func (u *StatusUpdater) publishChanged(ctx context.Context, result *MoveResult) {
	if u.publisher == nil {
		return
	}

	event := events.StartupStatusChanged{
		BaseEvent:      events.NewBaseEvent(events.StartupStatusChangedEvent, result.Startup.ID),
		NewStatusID:    result.Status.ID,
		OldStatusID:    result.PreviousStatusID,
		StatusName:     result.Status.Name,
		PreviousValues: result.PreviousValues,
	}

	if err := u.publisher.Publish(ctx, result.Startup.ID, event); err != nil {
		u.logger.WarnContext(ctx, "Failed to publish status changed event",
			"startup_id", result.Startup.ID, "error", err)
	}
}

func (u *StatusUpdater) publishFailure(ctx context.Context, startupID, newStatusID string, cause error) {
	if u.publisher == nil {
		return
	}

	event := events.StartupStatusChangeFailed{
		BaseEvent:   events.NewBaseEvent(events.StartupStatusChangeFailedEvent, startupID),
		NewStatusID: newStatusID,
		Error:       cause.Error(),
	}

	if err := u.publisher.Publish(ctx, startupID, event); err != nil {
		u.logger.WarnContext(ctx, "Failed to publish status change failure event",
			"startup_id", startupID, "error", err)
	}
}

func (u *StatusUpdater) invalidatePortfolio(ctx context.Context, status *models.Status) {
	if u.portfolio == nil {
		return
	}

	if _, invested := investedSlugs[status.Slug()]; !invested {
		return
	}

	if err := u.portfolio.Invalidate(ctx); err != nil {
		u.logger.WarnContext(ctx, "Failed to invalidate portfolio cache", "error", err)
	}
}
