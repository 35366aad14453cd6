package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dealdesk/dealflow/pkg/identity"
	"github.com/dealdesk/dealflow/pkg/models"
)

// ErrInvalidRuleDocument is returned when a rule document fails schema
// validation. The individual violations are joined onto it.
var ErrInvalidRuleDocument = errors.New("invalid workflow rule document")

// WarningPrefix marks rules disabled by the save guard.
const WarningPrefix = "⚠️ "

const ruleSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"active": {"type": "boolean"},
		"conditions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["field_id", "operator"],
				"properties": {
					"field_id": {"type": "string", "minLength": 1},
					"operator": {
						"type": "string",
						"enum": ["equals", "notEquals", "contains", "greaterThan", "lessThan", "changed"]
					}
				}
			}
		},
		"actions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {
						"type": "string",
						"enum": ["updateField", "notify", "createTask"]
					},
					"config": {"type": "object"}
				}
			}
		}
	}
}`

var ruleSchemaLoader = gojsonschema.NewStringLoader(ruleSchema)

// ValidateRuleDocument checks a raw rule payload against the rule
// schema before it is decoded and saved.
func ValidateRuleDocument(document []byte) error {
	result, err := gojsonschema.Validate(ruleSchemaLoader, gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("validating rule document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidRuleDocument, strings.Join(violations, "; "))
}

// GuardRule disables a rule whose action set could statically null out
// a status, prefixing its name with a warning marker instead of
// rejecting it. Returns true when the guard tripped.
func GuardRule(rule *models.WorkflowRule) bool {
	if !ruleCanNullStatus(rule) {
		return false
	}

	rule.Active = false

	if !strings.HasPrefix(rule.Name, WarningPrefix) {
		rule.Name = WarningPrefix + rule.Name
	}

	return true
}

func ruleCanNullStatus(rule *models.WorkflowRule) bool {
	for _, action := range rule.Actions {
		if action.Type != models.ActionUpdateField {
			continue
		}

		field, _ := action.Config["field"].(string)
		if _, isStatus := statusFields[field]; !isStatus {
			continue
		}

		value, isString := action.Config["value"].(string)
		if !isString {
			return true
		}

		if _, ok := identity.SanitizeID(value); !ok {
			return true
		}
	}

	return false
}
