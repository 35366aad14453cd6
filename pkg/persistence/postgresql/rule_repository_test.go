package postgresql_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/models"
	"github.com/dealdesk/dealflow/pkg/persistence"
)

func TestRuleRepository_SaveAndGetByID(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	rule := &models.WorkflowRule{
		Name:   "Escalate big deals",
		Active: true,
		Conditions: []models.RuleCondition{
			{FieldID: "mrr", Operator: models.OperatorGreaterThan, Value: float64(50000)},
		},
		Actions: []models.RuleAction{
			{Type: models.ActionUpdateField, Config: map[string]any{"field_id": "priority", "value": "high"}},
		},
	}
	require.NoError(t, p.Rules().Save(ctx, rule))
	require.NotEmpty(t, rule.ID)

	loaded, err := p.Rules().GetByID(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, "Escalate big deals", loaded.Name)
	assert.True(t, loaded.Active)
	require.Len(t, loaded.Conditions, 1)
	assert.Equal(t, models.OperatorGreaterThan, loaded.Conditions[0].Operator)
	assert.Equal(t, float64(50000), loaded.Conditions[0].Value)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "high", loaded.Actions[0].Config["value"])
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.Rules().GetByID(ctx, uuid.New().String())
	require.Error(t, err)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_List(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := &models.WorkflowRule{Name: "First", Active: true}
	require.NoError(t, p.Rules().Save(ctx, first))

	second := &models.WorkflowRule{Name: "Second", Active: false}
	require.NoError(t, p.Rules().Save(ctx, second))

	rules, err := p.Rules().List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	// Oldest first
	assert.Equal(t, "First", rules[0].Name)
	assert.Equal(t, "Second", rules[1].Name)
	assert.False(t, rules[1].Active)
}

func TestRuleRepository_Delete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	rule := &models.WorkflowRule{Name: "Ephemeral", Active: true}
	require.NoError(t, p.Rules().Save(ctx, rule))

	require.NoError(t, p.Rules().Delete(ctx, rule.ID))

	_, err := p.Rules().GetByID(ctx, rule.ID)
	assert.True(t, persistence.IsRuleNotFound(err))
}
