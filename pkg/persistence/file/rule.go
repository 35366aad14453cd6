package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

const ruleKind = "rules"

// RuleRepository stores workflow rules as JSON files.
type RuleRepository struct {
	p *Persistence
}

// List returns all workflow rules, oldest first.
func (r *RuleRepository) List(ctx context.Context) ([]*models.WorkflowRule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	ids, err := r.p.listIDs(ruleKind)
	if err != nil {
		return nil, err
	}

	rules := make([]*models.WorkflowRule, 0, len(ids))

	for _, id := range ids {
		var rule models.WorkflowRule

		err := r.p.readEntity(ruleKind, id, &rule)
		if err != nil {
			return nil, err
		}

		rules = append(rules, &rule)
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

// GetByID returns a workflow rule by its id.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var rule models.WorkflowRule

	err := r.p.readEntity(ruleKind, id, &rule)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrRuleNotFound
		}

		return nil, err
	}

	return &rule, nil
}

// Save upserts a workflow rule.
func (r *RuleRepository) Save(ctx context.Context, rule *models.WorkflowRule) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

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

	return r.p.writeEntity(ruleKind, rule.ID, rule)
}

// Delete removes a workflow rule.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.p.removeEntity(ruleKind, id)
}
