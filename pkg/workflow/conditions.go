package workflow

import (
	"fmt"
	"strings"

	"github.com/dealdesk/dealflow/pkg/models"
)

// EvaluateCondition checks one condition against the startup's current
// state and the pre-mutation snapshot. Field references resolve through
// the fixed schema first and the free-form values bag second.
func EvaluateCondition(
	startup *models.Startup,
	previous map[string]any,
	condition models.RuleCondition,
) bool {
	current, _ := startup.Field(condition.FieldID)

	switch condition.Operator {
	case models.OperatorChanged:
		return !valuesEqual(previous[condition.FieldID], current)
	case models.OperatorEquals:
		return valuesEqual(current, condition.Value)
	case models.OperatorNotEquals:
		return !valuesEqual(current, condition.Value)
	case models.OperatorContains:
		if current == nil || condition.Value == nil {
			return false
		}

		return strings.Contains(fmt.Sprint(current), fmt.Sprint(condition.Value))
	case models.OperatorGreaterThan:
		left, right, ok := numericPair(current, condition.Value)

		return ok && left > right
	case models.OperatorLessThan:
		left, right, ok := numericPair(current, condition.Value)

		return ok && left < right
	default:
		return false
	}
}

// valuesEqual compares numerically when both sides coerce to numbers,
// falling back to string comparison. Two absent values are equal.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}

	if a == nil || b == nil {
		return false
	}

	if left, right, ok := numericPair(a, b); ok {
		return left == right
	}

	return fmt.Sprint(a) == fmt.Sprint(b)
}

func numericPair(a, b any) (float64, float64, bool) {
	left, leftOK := models.CoerceNumeric(a).(float64)
	right, rightOK := models.CoerceNumeric(b).(float64)

	return left, right, leftOK && rightOK
}
