package automation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTriggerConfig_TypedVariants(t *testing.T) {
	cfg, err := DecodeTriggerConfig(TriggerTaskStatusChanged, json.RawMessage(`{"fromStatus":"TODO","toStatus":"DONE"}`))
	require.NoError(t, err)
	status, ok := cfg.(StatusChangedTrigger)
	require.True(t, ok)
	assert.Equal(t, StatusTodo, status.FromStatus)
	assert.Equal(t, StatusDone, status.ToStatus)
	assert.Equal(t, TriggerTaskStatusChanged, status.Kind())

	cfg, err = DecodeTriggerConfig(TriggerDueDateApproaching, json.RawMessage(`{"hoursBeforeDue":48}`))
	require.NoError(t, err)
	assert.Equal(t, DueDateApproachingTrigger{HoursBeforeDue: 48}, cfg)
}

func TestDecodeTriggerConfig_EmptyRawIsZeroValue(t *testing.T) {
	cfg, err := DecodeTriggerConfig(TriggerLabelAdded, nil)
	require.NoError(t, err)
	assert.Equal(t, LabelAddedTrigger{}, cfg)
}

func TestDecodeTriggerConfig_UnknownKindFailsClosed(t *testing.T) {
	_, err := DecodeTriggerConfig("SPRINT_STARTED", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trigger kind")
}

func TestDecodeTriggerConfig_MalformedJSON(t *testing.T) {
	_, err := DecodeTriggerConfig(TriggerTaskStatusChanged, json.RawMessage(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trigger config")
}

func TestDecodeTriggerConfig_UnknownFieldRejected(t *testing.T) {
	// A config shaped for one kind must not pass as a wildcard under another.
	_, err := DecodeTriggerConfig(TriggerLabelAdded, json.RawMessage(`{"toStatus":"DONE"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trigger config")
}

func TestTriggerConfig_EncodeDecodeRoundTrip(t *testing.T) {
	original := PriorityChangedTrigger{FromPriority: PriorityLow, ToPriority: PriorityCritical}

	raw, err := EncodeTriggerConfig(original)
	require.NoError(t, err)

	decoded, err := DecodeTriggerConfig(TriggerPriorityChanged, raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeActionConfig_TypedVariants(t *testing.T) {
	cfg, err := DecodeActionConfig(ActionWebhookCall, json.RawMessage(`{"url":"https://example.com/hook","method":"POST","headers":{"X-Token":"abc"}}`))
	require.NoError(t, err)
	webhook, ok := cfg.(WebhookCallAction)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/hook", webhook.URL)
	assert.Equal(t, "POST", webhook.Method)
	assert.Equal(t, "abc", webhook.Headers["X-Token"])
	assert.Equal(t, ActionWebhookCall, webhook.Kind())

	cfg, err = DecodeActionConfig(ActionUpdateStatus, json.RawMessage(`{"status":"BLOCKED"}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateStatusAction{Status: StatusBlocked}, cfg)
}

func TestDecodeActionConfig_UnknownKindFailsClosed(t *testing.T) {
	_, err := DecodeActionConfig("TELEPORT_TASK", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported action kind")
}

func TestDecodeActionConfig_MalformedJSON(t *testing.T) {
	_, err := DecodeActionConfig(ActionAddComment, json.RawMessage(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid action config")
}

func TestDecodeActionConfig_UnknownFieldRejected(t *testing.T) {
	_, err := DecodeActionConfig(ActionAddComment, json.RawMessage(`{"message":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid action config")
}

func TestActionConfig_EncodeDecodeRoundTrip(t *testing.T) {
	original := SendEmailAction{To: "dev@example.com", Subject: "Overdue", Body: "Task is overdue."}

	raw, err := EncodeActionConfig(original)
	require.NoError(t, err)

	decoded, err := DecodeActionConfig(ActionSendEmail, raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}
