package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealflow/pkg/models"
)

func TestValidateRuleDocument(t *testing.T) {
	valid := []byte(`{
		"name": "Promote hot deals",
		"active": true,
		"conditions": [{"field_id": "mrr", "operator": "greaterThan", "value": 10000}],
		"actions": [{"type": "updateField", "config": {"field": "priority", "value": "high"}}]
	}`)
	assert.NoError(t, ValidateRuleDocument(valid))
}

func TestValidateRuleDocument_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		document string
	}{
		{"missing name", `{"active": true}`},
		{"empty name", `{"name": ""}`},
		{"unknown operator", `{"name": "r", "conditions": [{"field_id": "mrr", "operator": "near"}]}`},
		{"unknown action type", `{"name": "r", "actions": [{"type": "launchMissiles"}]}`},
		{"condition without field", `{"name": "r", "conditions": [{"operator": "changed"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleDocument([]byte(tt.document))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRuleDocument)
		})
	}
}

func TestGuardRule_DisablesStaticNullStatus(t *testing.T) {
	rule := &models.WorkflowRule{
		Name:   "Clear status",
		Active: true,
		Actions: []models.RuleAction{
			{Type: models.ActionUpdateField, Config: map[string]any{"field": "status_id", "value": ""}},
		},
	}

	tripped := GuardRule(rule)

	assert.True(t, tripped)
	assert.False(t, rule.Active)
	assert.Equal(t, WarningPrefix+"Clear status", rule.Name)

	// Guarding again does not stack the prefix.
	GuardRule(rule)
	assert.Equal(t, WarningPrefix+"Clear status", rule.Name)
}

func TestGuardRule_NonStringStatusValue(t *testing.T) {
	rule := &models.WorkflowRule{
		Name:   "Nil status",
		Active: true,
		Actions: []models.RuleAction{
			{Type: models.ActionUpdateField, Config: map[string]any{"field": "statusId", "value": nil}},
		},
	}

	assert.True(t, GuardRule(rule))
	assert.False(t, rule.Active)
}

func TestGuardRule_LeavesHealthyRuleAlone(t *testing.T) {
	rule := &models.WorkflowRule{
		Name:   "Promote",
		Active: true,
		Actions: []models.RuleAction{
			{Type: models.ActionUpdateField, Config: map[string]any{"field": "status_id", "value": "0190a000-0000-7000-8000-000000000002"}},
			{Type: models.ActionNotify, Config: map[string]any{"message": "Deal promoted"}},
		},
	}

	assert.False(t, GuardRule(rule))
	assert.True(t, rule.Active)
	assert.Equal(t, "Promote", rule.Name)
}
