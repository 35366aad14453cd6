// Package workflow evaluates stored condition/action rules against
// startup mutations and performs their side effects.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealdesk/dealflow/pkg/eventbus"
	"github.com/dealdesk/dealflow/pkg/events"
	"github.com/dealdesk/dealflow/pkg/identity"
	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// Notifier delivers user-facing messages produced by rule actions.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// statusFields are the aliases an updateField action may use to target
// the pipeline status.
var statusFields = map[string]struct{}{
	"statusId":  {},
	"status_id": {},
}

// Engine runs every active rule against a processed mutation. One rule
// failing never stops the others.
type Engine struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	notifier    Notifier
	logger      *slog.Logger
}

// NewEngine creates the rule engine. publisher and notifier may be nil.
func NewEngine(
	p persistence.Persistence,
	publisher eventbus.EventPublisher,
	notifier Notifier,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		persistence: p,
		publisher:   publisher,
		notifier:    notifier,
		logger:      logger.With("module", "workflow_engine"),
	}
}

// ProcessMutation evaluates all active rules against the startup's new
// state, using previousValues for the "changed" operator.
func (e *Engine) ProcessMutation(ctx context.Context, startup *models.Startup, previousValues map[string]any) error {
	rules, err := e.persistence.Rules().List(ctx)
	if err != nil {
		return fmt.Errorf("loading workflow rules: %w", err)
	}

	for _, rule := range rules {
		if !rule.Active {
			continue
		}

		if !e.ruleMatches(startup, previousValues, rule) {
			continue
		}

		e.logger.InfoContext(ctx, "Workflow rule triggered",
			"rule_id", rule.ID, "rule_name", rule.Name, "startup_id", startup.ID)
		e.publishTriggered(ctx, startup.ID, rule)

		if err := e.executeActions(ctx, startup, rule); err != nil {
			// Rule failures are isolated: log, tell the user, move on.
			e.logger.ErrorContext(ctx, "Workflow rule execution failed",
				"rule_id", rule.ID, "rule_name", rule.Name, "error", err)
			e.notify(ctx, fmt.Sprintf("Regra %q falhou: %v", rule.Name, err))
		}
	}

	return nil
}

// ruleMatches requires every condition to hold.
func (e *Engine) ruleMatches(startup *models.Startup, previous map[string]any, rule *models.WorkflowRule) bool {
	if len(rule.Conditions) == 0 {
		return false
	}

	for _, condition := range rule.Conditions {
		if !EvaluateCondition(startup, previous, condition) {
			return false
		}
	}

	return true
}

// executeActions runs the rule's actions in order, aggregating field
// updates into one write at the end. A single aborted action does not
// abort its siblings.
func (e *Engine) executeActions(ctx context.Context, startup *models.Startup, rule *models.WorkflowRule) error {
	update := make(map[string]any)

	for _, action := range rule.Actions {
		switch action.Type {
		case models.ActionUpdateField:
			e.applyUpdateField(ctx, startup, rule, action, update)
		case models.ActionNotify:
			message, _ := action.Config["message"].(string)
			if message == "" {
				message = fmt.Sprintf("Regra %q disparada para %s", rule.Name, startup.Name)
			}

			e.notify(ctx, message)
		case models.ActionCreateTask:
			e.createTask(ctx, startup, rule, action)
		default:
			e.logger.WarnContext(ctx, "Unknown workflow action type, skipping",
				"rule_id", rule.ID, "action_type", action.Type)
		}
	}

	return e.persistUpdate(ctx, startup, update)
}

// applyUpdateField stages one field write. A status target that
// resolves to null or empty aborts only this action.
func (e *Engine) applyUpdateField(
	ctx context.Context,
	startup *models.Startup,
	rule *models.WorkflowRule,
	action models.RuleAction,
	update map[string]any,
) {
	field, _ := action.Config["field"].(string)
	if field == "" {
		e.logger.WarnContext(ctx, "updateField action without a field, skipping", "rule_id", rule.ID)

		return
	}

	value := action.Config["value"]

	if _, isStatus := statusFields[field]; isStatus {
		resolved, ok := e.resolveStatusValue(ctx, value)
		if !ok {
			e.logger.ErrorContext(ctx, "CRITICAL: workflow rule would null out status, action aborted",
				"rule_id", rule.ID, "rule_name", rule.Name, "startup_id", startup.ID, "value", value)
			e.notify(ctx, fmt.Sprintf("Regra %q tentou remover o status de %s", rule.Name, startup.Name))

			return
		}

		update["status_id"] = resolved

		return
	}

	update[field] = value
}

// resolveStatusValue sanitizes the desired status and resolves slugs to
// UUIDs. The second return is false when no valid status results.
func (e *Engine) resolveStatusValue(ctx context.Context, raw any) (string, bool) {
	value, isString := raw.(string)
	if !isString {
		return "", false
	}

	sanitized, ok := identity.SanitizeID(value)
	if !ok {
		return "", false
	}

	if identity.IsValidUUID(sanitized) {
		return sanitized, true
	}

	statuses, err := e.persistence.Statuses().GetAll(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to load statuses for slug resolution", "error", err)

		return "", false
	}

	status, found := models.MatchStatusSlug(statuses, sanitized)
	if !found {
		return "", false
	}

	return status.ID, true
}

// persistUpdate writes the aggregated field updates. A final guard
// strips null status fields; an empty payload writes nothing.
func (e *Engine) persistUpdate(ctx context.Context, startup *models.Startup, update map[string]any) error {
	for field := range statusFields {
		if raw, present := update[field]; present {
			if value, _ := raw.(string); raw == nil || value == "" {
				e.logger.ErrorContext(ctx, "CRITICAL: null status stripped from workflow update",
					"startup_id", startup.ID)
				delete(update, field)
			}
		}
	}

	if len(update) == 0 {
		return nil
	}

	prepared, err := models.PrepareStartupUpdate(update, false)
	if err != nil {
		return fmt.Errorf("preparing workflow update: %w", err)
	}

	if len(prepared) == 0 {
		return nil
	}

	if _, err := e.persistence.Startups().UpdateFields(ctx, startup.ID, prepared); err != nil {
		return fmt.Errorf("persisting workflow update: %w", err)
	}

	return nil
}

func (e *Engine) createTask(ctx context.Context, startup *models.Startup, rule *models.WorkflowRule, action models.RuleAction) {
	if e.publisher == nil {
		return
	}

	title, _ := action.Config["title"].(string)
	if title == "" {
		title = fmt.Sprintf("Tarefa da regra %q", rule.Name)
	}

	description, _ := action.Config["description"].(string)

	var dueDate *time.Time

	if days, ok := models.CoerceNumeric(action.Config["due_in_days"]).(float64); ok && days > 0 {
		due := time.Now().UTC().AddDate(0, 0, int(days))
		dueDate = &due
	}

	event := events.TaskCreated{
		BaseEvent:   events.NewBaseEvent(events.TaskCreatedEvent, startup.ID),
		RuleID:      rule.ID,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
	}

	if err := e.publisher.Publish(ctx, startup.ID, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish task created event",
			"rule_id", rule.ID, "error", err)
	}
}

func (e *Engine) publishTriggered(ctx context.Context, startupID string, rule *models.WorkflowRule) {
	if e.publisher == nil {
		return
	}

	event := events.RuleTriggered{
		BaseEvent: events.NewBaseEvent(events.RuleTriggeredEvent, startupID),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
	}

	if err := e.publisher.Publish(ctx, startupID, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish rule triggered event",
			"rule_id", rule.ID, "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}

	if err := e.notifier.Notify(ctx, message); err != nil {
		e.logger.WarnContext(ctx, "Failed to deliver notification", "error", err)
	}
}
