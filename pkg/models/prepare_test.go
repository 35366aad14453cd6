package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareStartupUpdate_StatusUpdateRequiresStatus(t *testing.T) {
	_, err := PrepareStartupUpdate(map[string]any{"status_id": ""}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusRequired)

	_, err = PrepareStartupUpdate(map[string]any{"name": "Acme"}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusRequired)

	_, err = PrepareStartupUpdate(map[string]any{"status_id": "   "}, true)
	assert.ErrorIs(t, err, ErrStatusRequired)
}

func TestPrepareStartupUpdate_EmptyStatusCoercesToNull(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{"status_id": "", "name": "Acme"}, false)
	require.NoError(t, err)
	require.Contains(t, prepared, "status_id")
	assert.Nil(t, prepared["status_id"])
	assert.Equal(t, "Acme", prepared["name"])
}

func TestPrepareStartupUpdate_MalformedStatus(t *testing.T) {
	_, err := PrepareStartupUpdate(map[string]any{"status_id": "due-diligence"}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatusID)

	prepared, err := PrepareStartupUpdate(map[string]any{"status_id": "due-diligence"}, false)
	require.NoError(t, err)
	assert.Nil(t, prepared["status_id"])
}

func TestPrepareStartupUpdate_ValidStatusIsTrimmed(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{
		"status_id": "  550e8400-e29b-41d4-a716-446655440000  ",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", prepared["status_id"])
}

func TestPrepareStartupUpdate_CamelAliases(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{
		"statusId":   "550e8400-e29b-41d4-a716-446655440000",
		"assignedTo": "ana",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", prepared["status_id"])
	assert.Equal(t, "ana", prepared["assigned_to"])
	assert.NotContains(t, prepared, "statusId")
	assert.NotContains(t, prepared, "assignedTo")
}

func TestPrepareStartupUpdate_SnakeCaseWinsOverAlias(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{
		"statusId":  "11111111-1111-4111-8111-111111111111",
		"status_id": "550e8400-e29b-41d4-a716-446655440000",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", prepared["status_id"])
}

func TestPrepareStartupUpdate_StripsVirtualKeys(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{
		"values":        map[string]any{"mrr": 10},
		"labels":        []string{"fintech"},
		"attachments":   []string{"deck.pdf"},
		"old_status_id": "550e8400-e29b-41d4-a716-446655440000",
		"name":          "Acme",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"name": "Acme"}, prepared)
}

func TestPrepareStartupUpdate_NumericCoercion(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{"mrr": "1500"}, false)
	require.NoError(t, err)
	assert.InEpsilon(t, 1500.0, prepared["mrr"], 1e-9)

	prepared, err = PrepareStartupUpdate(map[string]any{"mrr": ""}, false)
	require.NoError(t, err)
	require.Contains(t, prepared, "mrr")
	assert.Nil(t, prepared["mrr"])

	prepared, err = PrepareStartupUpdate(map[string]any{"client_count": 42}, false)
	require.NoError(t, err)
	assert.InEpsilon(t, 42.0, prepared["client_count"], 1e-9)

	prepared, err = PrepareStartupUpdate(map[string]any{"tam": "not a number"}, false)
	require.NoError(t, err)
	assert.Nil(t, prepared["tam"])
}

func TestPrepareStartupUpdate_Assignee(t *testing.T) {
	prepared, err := PrepareStartupUpdate(map[string]any{"assigned_to": ""}, false)
	require.NoError(t, err)
	assert.Nil(t, prepared["assigned_to"])

	prepared, err = PrepareStartupUpdate(map[string]any{"assigned_to": nil}, false)
	require.NoError(t, err)
	assert.Nil(t, prepared["assigned_to"])

	prepared, err = PrepareStartupUpdate(map[string]any{"assigned_to": 123}, false)
	require.NoError(t, err)
	assert.Equal(t, "123", prepared["assigned_to"])
}

func TestCoerceNumeric(t *testing.T) {
	assert.Nil(t, CoerceNumeric(nil))
	assert.InEpsilon(t, 12.5, CoerceNumeric(12.5), 1e-9)
	assert.InEpsilon(t, 7.0, CoerceNumeric(7), 1e-9)
	assert.InEpsilon(t, 1500.0, CoerceNumeric("1500"), 1e-9)
	assert.Nil(t, CoerceNumeric(""))
	assert.Nil(t, CoerceNumeric("  "))
	assert.Nil(t, CoerceNumeric("NaN"))
	assert.Nil(t, CoerceNumeric([]string{"x"}))
}
