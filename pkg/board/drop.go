package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealdesk/dealflow/pkg/identity"
	"github.com/dealdesk/dealflow/pkg/services"
)

// Drop payload types. Column drops are the reorder feature and are not
// handled here.
const (
	DropTypeStartup = "startup"
	DropTypeColumn  = "column"
)

// DropEvent is the drag payload settled on a column.
type DropEvent struct {
	Type           string `json:"type"                       validate:"required,oneof=startup column"`
	StartupID      string `json:"startup_id"                 validate:"required"`
	TargetColumnID string `json:"target_column_id"           validate:"required"`
	SourceColumnID string `json:"source_column_id,omitempty"`
}

// Mover commits a status transition. Workflow rules are not the drop
// handler's concern: the mover publishes the status-change event and
// the rule engine consumes it exactly once.
type Mover interface {
	Move(ctx context.Context, req services.MoveRequest) (*services.MoveResult, error)
}

// Notifier delivers the user-facing outcome of a drop.
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
}

// DropHandler orchestrates a drop: validate, resolve, apply the
// optimistic move, commit, and on failure roll the projection back.
type DropHandler struct {
	board    *Board
	mover    Mover
	notifier Notifier
	logger   *slog.Logger
}

// NewDropHandler creates the orchestrator. notifier may be nil.
func NewDropHandler(board *Board, mover Mover, notifier Notifier, logger *slog.Logger) *DropHandler {
	return &DropHandler{
		board:    board,
		mover:    mover,
		notifier: notifier,
		logger:   logger.With("module", "drop_handler"),
	}
}

// HandleDrop settles one drag. Non-startup payloads are ignored. The
// returned error reflects why the drop was rejected or failed; the
// board is already consistent either way.
func (h *DropHandler) HandleDrop(ctx context.Context, event DropEvent) error {
	if event.Type != DropTypeStartup {
		h.logger.DebugContext(ctx, "Ignoring non-startup drop", "type", event.Type)

		return nil
	}

	startupID, ok := identity.SanitizeID(event.StartupID)
	if !ok || !identity.IsValidUUID(startupID) {
		h.reject(ctx, "Não foi possível identificar a startup arrastada")

		return fmt.Errorf("drop rejected: %w", services.ErrInvalidStartupID)
	}

	target, ok := identity.SanitizeID(event.TargetColumnID)
	if !ok {
		h.reject(ctx, "Coluna de destino inválida")

		return fmt.Errorf("drop rejected: %w", services.ErrStatusIDRequired)
	}

	targetStatus, ok := h.board.ResolveStatus(target)
	if !ok {
		h.reject(ctx, "Coluna de destino inválida")

		return fmt.Errorf("drop rejected, unresolved target column %q: %w", target, services.ErrUnknownStatusSlug)
	}

	previousStatusID := h.resolvePrevious(event, startupID)

	// Dropping a card onto its own column is a no-op: no write, no toast.
	if previousStatusID != nil && *previousStatusID == targetStatus.ID {
		return nil
	}

	generation := h.board.BeginDrag(startupID)
	snapshot := h.board.ApplyMove(startupID, targetStatus.ID)

	result, err := h.mover.Move(ctx, services.MoveRequest{
		StartupID:   startupID,
		NewStatusID: targetStatus.ID,
		OldStatusID: previousStatusID,
	})

	if !h.board.Settle(startupID, generation) {
		// A newer drag owns the card now; this settlement is stale.
		h.logger.InfoContext(ctx, "Ignoring stale drop settlement",
			"startup_id", startupID, "generation", generation)

		return nil
	}

	if err != nil {
		h.board.Restore(snapshot)
		h.reject(ctx, fmt.Sprintf("Falha ao mover startup: %v", err))

		return err
	}

	if result.NoOp {
		h.board.Restore(snapshot)

		return nil
	}

	if h.notifier != nil {
		h.notifier.Success(ctx, fmt.Sprintf("Startup movido para %s", result.Status.Name))
	}

	return nil
}

// resolvePrevious picks the previous status with descending confidence:
// the drag payload's source column, the board's own projection, then
// unknown. The mover falls back to the stored status when unknown.
func (h *DropHandler) resolvePrevious(event DropEvent, startupID string) *string {
	if source, ok := identity.SanitizeID(event.SourceColumnID); ok && identity.IsValidUUID(source) {
		return &source
	}

	if statusID, found := h.board.ColumnFor(startupID); found {
		return &statusID
	}

	return nil
}

func (h *DropHandler) reject(ctx context.Context, message string) {
	if h.notifier != nil {
		h.notifier.Error(ctx, message)
	}
}
