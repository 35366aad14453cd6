package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

// RuleRepository handles workflow rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

// List returns all workflow rules, oldest first.
func (r *RuleRepository) List(ctx context.Context) ([]*models.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, active, conditions, actions, created_at, updated_at
		FROM workflow_rules
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow rules: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow rules: %w", err)
	}

	return rules, nil
}

// GetByID returns a workflow rule by its id.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, active, conditions, actions, created_at, updated_at
		FROM workflow_rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRuleNotFound
		}

		return nil, err
	}

	return rule, nil
}

// Save upserts a workflow rule.
func (r *RuleRepository) Save(ctx context.Context, rule *models.WorkflowRule) error {
	now := time.Now().UTC()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	if rule.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate rule ID: %w", err)
		}

		rule.ID = id.String()
	}

	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal rule conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal rule actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_rules (id, name, active, conditions, actions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			updated_at = EXCLUDED.updated_at
	`, rule.ID, rule.Name, rule.Active, conditionsJSON, actionsJSON, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow rule: %w", err)
	}

	return nil
}

// Delete removes a workflow rule.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workflow_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow rule: %w", err)
	}

	return nil
}

func scanRule(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowRule, error) {
	var (
		rule                       models.WorkflowRule
		conditionsJSON, actionJSON []byte
	)

	err := scanner.Scan(&rule.ID, &rule.Name, &rule.Active,
		&conditionsJSON, &actionJSON, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if conditionsJSON != nil {
		err := json.Unmarshal(conditionsJSON, &rule.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule conditions: %w", err)
		}
	}

	if actionJSON != nil {
		err := json.Unmarshal(actionJSON, &rule.Actions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule actions: %w", err)
		}
	}

	return &rule, nil
}
