package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionConfig is the closed set of per-kind action configurations, mirroring
// TriggerConfig.
type ActionConfig interface {
	Kind() ActionKind
}

type UpdateStatusAction struct {
	Status Status `json:"status"`
}

type UpdatePriorityAction struct {
	Priority Priority `json:"priority"`
}

type AssignUserAction struct {
	UserID string `json:"userId"`
}

type UnassignUserAction struct{}

type AddLabelAction struct {
	LabelID string `json:"labelId"`
}

type RemoveLabelAction struct {
	LabelID string `json:"labelId"`
}

type AddCommentAction struct {
	Comment string `json:"comment"`
}

type SendNotificationAction struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type SendEmailAction struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type WebhookCallAction struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// MoveToSprintAction is accepted in the model but has no execution semantics
// yet; the sprint subsystem does not exist.
type MoveToSprintAction struct {
	SprintID string `json:"sprintId"`
}

func (UpdateStatusAction) Kind() ActionKind     { return ActionUpdateStatus }
func (UpdatePriorityAction) Kind() ActionKind   { return ActionUpdatePriority }
func (AssignUserAction) Kind() ActionKind       { return ActionAssignUser }
func (UnassignUserAction) Kind() ActionKind     { return ActionUnassignUser }
func (AddLabelAction) Kind() ActionKind         { return ActionAddLabel }
func (RemoveLabelAction) Kind() ActionKind      { return ActionRemoveLabel }
func (AddCommentAction) Kind() ActionKind       { return ActionAddComment }
func (SendNotificationAction) Kind() ActionKind { return ActionSendNotification }
func (SendEmailAction) Kind() ActionKind        { return ActionSendEmail }
func (WebhookCallAction) Kind() ActionKind      { return ActionWebhookCall }
func (MoveToSprintAction) Kind() ActionKind     { return ActionMoveToSprint }

// DecodeActionConfig parses the raw configuration for an action kind into its
// typed variant. Unknown kinds fail closed.
func DecodeActionConfig(kind ActionKind, raw json.RawMessage) (ActionConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch kind {
	case ActionUpdateStatus:
		return decodeAction[UpdateStatusAction](raw)
	case ActionUpdatePriority:
		return decodeAction[UpdatePriorityAction](raw)
	case ActionAssignUser:
		return decodeAction[AssignUserAction](raw)
	case ActionUnassignUser:
		return decodeAction[UnassignUserAction](raw)
	case ActionAddLabel:
		return decodeAction[AddLabelAction](raw)
	case ActionRemoveLabel:
		return decodeAction[RemoveLabelAction](raw)
	case ActionAddComment:
		return decodeAction[AddCommentAction](raw)
	case ActionSendNotification:
		return decodeAction[SendNotificationAction](raw)
	case ActionSendEmail:
		return decodeAction[SendEmailAction](raw)
	case ActionWebhookCall:
		return decodeAction[WebhookCallAction](raw)
	case ActionMoveToSprint:
		return decodeAction[MoveToSprintAction](raw)
	default:
		return nil, fmt.Errorf("unsupported action kind: %s", kind)
	}
}

func decodeAction[T ActionConfig](raw json.RawMessage) (ActionConfig, error) {
	var cfg T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid action config: %w", err)
	}
	return cfg, nil
}

// EncodeActionConfig serializes a typed action configuration back to its wire
// form.
func EncodeActionConfig(cfg ActionConfig) (json.RawMessage, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action config: %w", err)
	}
	return raw, nil
}
