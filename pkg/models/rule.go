package models

import "time"

// ConditionOperator compares a startup field against a rule value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "notEquals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greaterThan"
	OperatorLessThan    ConditionOperator = "lessThan"
	OperatorChanged     ConditionOperator = "changed"
)

// ActionType identifies a workflow rule side effect.
type ActionType string

const (
	ActionUpdateField ActionType = "updateField"
	ActionNotify      ActionType = "notify"
	ActionCreateTask  ActionType = "createTask"
)

// RuleCondition gates a rule on one startup field. FieldID resolves
// through Startup.Field; the pseudo-field "statusId" with the "changed"
// operator fires on status transitions.
type RuleCondition struct {
	FieldID  string            `json:"field_id"  validate:"required"`
	Operator ConditionOperator `json:"operator"  validate:"required,oneof=equals notEquals contains greaterThan lessThan changed"`
	Value    any               `json:"value,omitempty"`
}

// RuleAction is one side effect of a triggered rule.
type RuleAction struct {
	Type   ActionType     `json:"type"             validate:"required,oneof=updateField notify createTask"`
	Config map[string]any `json:"config,omitempty"`
}

// WorkflowRule triggers its actions when every condition evaluates true
// against a processed startup mutation.
type WorkflowRule struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"       validate:"required,min=1"`
	Active     bool            `json:"active"`
	Conditions []RuleCondition `json:"conditions"`
	Actions    []RuleAction    `json:"actions"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
