package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dealdesk/dealflow/pkg/identity"
)

// Preparer guard errors. A status-update payload that loses its status
// id is a known corruption class and must never reach storage.
var (
	ErrStatusRequired  = errors.New("status id is required for a status update")
	ErrInvalidStatusID = errors.New("status id is not a valid UUID")
)

// virtualKeys never reach the backing table. They are UI projections or
// internal flags carried on update payloads.
var virtualKeys = map[string]struct{}{
	"values":          {},
	"labels":          {},
	"attachments":     {},
	"old_status_id":   {},
	"oldStatusId":     {},
	"isStatusUpdate":  {},
	"is_status_update": {},
}

// camelAliases translates UI field names to column names. The alias is
// only applied when the snake_case key is absent from the payload.
var camelAliases = map[string]string{
	"statusId":   "status_id",
	"assignedTo": "assigned_to",
	"dueDate":    "due_date",
}

// numericColumns are coerced through CoerceNumeric before persisting.
var numericColumns = map[string]struct{}{
	"mrr":            {},
	"arr":            {},
	"client_count":   {},
	"tam":            {},
	"sam":            {},
	"som":            {},
	"annual_revenue": {},
	"partner_count":  {},
}

// PrepareStartupUpdate turns an arbitrary partial update into a
// backend-safe column map: virtual keys stripped, camelCase aliases
// translated, status and assignee sanitized, numeric fields coerced.
//
// When statusUpdate is set the payload is a pure status move and an
// absent, empty, or malformed status id is an error rather than a silent
// null; otherwise those cases coerce to null.
func PrepareStartupUpdate(update map[string]any, statusUpdate bool) (map[string]any, error) {
	prepared := make(map[string]any, len(update))

	for key, value := range update {
		if _, virtual := virtualKeys[key]; virtual {
			continue
		}

		if column, aliased := camelAliases[key]; aliased {
			if _, present := update[column]; present {
				continue
			}

			key = column
		}

		prepared[key] = value
	}

	if err := prepareStatusID(prepared, statusUpdate); err != nil {
		return nil, err
	}

	prepareAssignee(prepared)

	for column := range numericColumns {
		if raw, present := prepared[column]; present {
			prepared[column] = CoerceNumeric(raw)
		}
	}

	return prepared, nil
}

func prepareStatusID(prepared map[string]any, statusUpdate bool) error {
	raw, present := prepared["status_id"]
	if !present {
		if statusUpdate {
			return fmt.Errorf("preparing status update: %w", ErrStatusRequired)
		}

		return nil
	}

	id, _ := raw.(string)

	sanitized, ok := identity.SanitizeID(id)
	if !ok {
		if statusUpdate {
			return fmt.Errorf("preparing status update: %w", ErrStatusRequired)
		}

		prepared["status_id"] = nil

		return nil
	}

	if !identity.IsValidUUID(sanitized) {
		if statusUpdate {
			return fmt.Errorf("preparing status update %q: %w", sanitized, ErrInvalidStatusID)
		}

		prepared["status_id"] = nil

		return nil
	}

	prepared["status_id"] = sanitized

	return nil
}

func prepareAssignee(prepared map[string]any) {
	raw, present := prepared["assigned_to"]
	if !present {
		return
	}

	switch v := raw.(type) {
	case nil:
		prepared["assigned_to"] = nil
	case string:
		if strings.TrimSpace(v) == "" {
			prepared["assigned_to"] = nil
		} else {
			prepared["assigned_to"] = v
		}
	default:
		prepared["assigned_to"] = fmt.Sprint(v)
	}
}

// CoerceNumeric normalizes a business metric to a float64 or nil:
// nil stays nil, numbers pass through, numeric strings parse, and empty
// or unparseable input becomes nil.
func CoerceNumeric(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}

		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}

		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return nil
		}

		return parsed
	default:
		return nil
	}
}
