// Package web provides HTTP handlers and REST API endpoints for the
// deal-flow pipeline.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/board"
	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
	"github.com/dealdesk/dealflow/pkg/services"
	"github.com/dealdesk/dealflow/pkg/workflow"
)

type APIHandlers struct {
	startupService *services.Startup
	updater        *services.StatusUpdater
	board          *board.Board
	dropFactory    DropHandlerFactory
	persistence    persistence.Persistence
	validator      *validator.Validate
}

// DropHandlerFactory builds a drop orchestrator bound to a per-request
// notifier so toasts flow back in the response.
type DropHandlerFactory func(notifier board.Notifier) *board.DropHandler

func NewAPIHandlers(
	startupService *services.Startup,
	updater *services.StatusUpdater,
	b *board.Board,
	dropFactory DropHandlerFactory,
	p persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		startupService: startupService,
		updater:        updater,
		board:          b,
		dropFactory:    dropFactory,
		persistence:    p,
		validator:      validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.startupService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Dealflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Dealflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetStatuses(c fiber.Ctx) error {
	statuses, err := h.persistence.Statuses().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(statuses)
}

func (h *APIHandlers) GetStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Status ID is required")
	}

	status, err := h.persistence.Statuses().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) GetStartups(c fiber.Ctx) error {
	startups, err := h.startupService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"startups":    startups,
		"total_count": len(startups),
	})
}

func (h *APIHandlers) GetStartup(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Startup ID is required")
	}

	startup, err := h.startupService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(startup)
}

func (h *APIHandlers) CreateStartup(c fiber.Ctx) error {
	var req CreateStartupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	startup := &models.Startup{
		Name:       req.Name,
		StatusID:   req.StatusID,
		Priority:   models.Priority(req.Priority),
		AssignedTo: req.AssignedTo,
		DueDate:    req.DueDate,
		Values:     req.Values,
		Labels:     req.Labels,
	}

	created, err := h.startupService.Create(c.Context(), startup)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateStartup applies a partial update. The raw body passes through
// the data preparer, so camelCase aliases and numeric strings are
// accepted the way the form UI sends them.
func (h *APIHandlers) UpdateStartup(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Startup ID is required")
	}

	var update map[string]any
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if len(update) == 0 {
		return badRequest(c, "Update payload is empty")
	}

	updated, err := h.startupService.Update(c.Context(), id, update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteStartup(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Startup ID is required")
	}

	err := h.startupService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetStartupHistory(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Startup ID is required")
	}

	rows, err := h.startupService.History(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"history":     rows,
		"total_count": len(rows),
	})
}

// MoveStartupStatus is the direct transition endpoint, for callers that
// are not the kanban board.
func (h *APIHandlers) MoveStartupStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Startup ID is required")
	}

	var req MoveStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.updater.Move(c.Context(), services.MoveRequest{
		StartupID:   id,
		NewStatusID: req.StatusID,
		OldStatusID: req.OldStatusID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(MoveStatusResponse{
		Startup:  result.Startup,
		Status:   result.Status,
		NoOp:     result.NoOp,
		Strategy: result.Strategy,
	})
}

func (h *APIHandlers) GetBoard(c fiber.Ctx) error {
	if err := h.refreshBoard(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(BoardResponse{
		Statuses: h.board.Statuses(),
		Columns:  h.board.Columns(),
	})
}

// DropStartup settles a drag on a column. Toasts the drop produced are
// returned with the resulting projection; a rejected drop answers 422
// so the client can surface them and keep its pre-drop state.
func (h *APIHandlers) DropStartup(c fiber.Ctx) error {
	var event board.DropEvent
	if err := c.Bind().JSON(&event); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(event); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.refreshBoard(c.Context()); err != nil {
		return internalError(c, err)
	}

	notifier := &toastCollector{}
	handler := h.dropFactory(notifier)

	err := handler.HandleDrop(c.Context(), event)

	response := DropResponse{
		Columns: h.board.Columns(),
		Toasts:  notifier.toasts,
	}

	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(response)
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules, err := h.persistence.Rules().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(rules)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.persistence.Rules().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

// CreateRule validates the raw document against the rule schema, then
// runs the save guard: a rule that could null out a status is stored
// disabled with a warning marker instead of being rejected.
func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	rule, err := h.decodeRule(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	now := time.Now().UTC()
	rule.ID = uuid.New().String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	workflow.GuardRule(rule)

	if err := h.persistence.Rules().Save(c.Context(), rule); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	existing, err := h.persistence.Rules().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	rule, err := h.decodeRule(c)
	if err != nil {
		return handleServiceError(c, err)
	}

	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	workflow.GuardRule(rule)

	if err := h.persistence.Rules().Save(c.Context(), rule); err != nil {
		return internalError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	if _, err := h.persistence.Rules().GetByID(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.persistence.Rules().Delete(c.Context(), id); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) decodeRule(c fiber.Ctx) (*models.WorkflowRule, error) {
	body := c.Body()

	if err := workflow.ValidateRuleDocument(body); err != nil {
		return nil, err
	}

	var rule models.WorkflowRule
	if err := json.Unmarshal(body, &rule); err != nil {
		return nil, services.NewValidationError("decodeRule", "INVALID_RULE", err.Error(), workflow.ErrInvalidRuleDocument)
	}

	if err := h.validator.Struct(rule); err != nil {
		return nil, services.NewValidationError("decodeRule", "INVALID_RULE", err.Error(), workflow.ErrInvalidRuleDocument)
	}

	return &rule, nil
}

func (h *APIHandlers) refreshBoard(ctx context.Context) error {
	statuses, err := h.persistence.Statuses().GetAll(ctx)
	if err != nil {
		return err
	}

	startups, err := h.persistence.Startups().List(ctx)
	if err != nil {
		return err
	}

	h.board.Rebuild(statuses, startups)

	return nil
}

// toastCollector buffers the drop's user-facing messages for the response.
type toastCollector struct {
	toasts []Toast
}

func (t *toastCollector) Success(_ context.Context, message string) {
	t.toasts = append(t.toasts, Toast{Level: "success", Message: message})
}

func (t *toastCollector) Error(_ context.Context, message string) {
	t.toasts = append(t.toasts, Toast{Level: "error", Message: message})
}
