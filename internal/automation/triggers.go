package automation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TriggerConfig is the closed set of per-kind trigger configurations. Every
// kind has exactly one variant; decoding an unknown kind fails rather than
// producing a permissive map.
type TriggerConfig interface {
	Kind() TriggerKind
}

type TaskCreatedTrigger struct{}

type TaskAssignedTrigger struct{}

type TaskUnassignedTrigger struct{}

// StatusChangedTrigger matches status transitions. An empty FromStatus is a
// wildcard matching any prior status.
type StatusChangedTrigger struct {
	FromStatus Status `json:"fromStatus,omitempty"`
	ToStatus   Status `json:"toStatus"`
}

// PriorityChangedTrigger matches priority transitions with the same wildcard
// rule as StatusChangedTrigger.
type PriorityChangedTrigger struct {
	FromPriority Priority `json:"fromPriority,omitempty"`
	ToPriority   Priority `json:"toPriority"`
}

type DueDateApproachingTrigger struct {
	HoursBeforeDue int `json:"hoursBeforeDue"`
}

type DueDatePassedTrigger struct{}

// LabelAddedTrigger matches label additions. An empty LabelID matches any
// label.
type LabelAddedTrigger struct {
	LabelID string `json:"labelId,omitempty"`
}

type LabelRemovedTrigger struct {
	LabelID string `json:"labelId,omitempty"`
}

type CommentAddedTrigger struct{}

func (TaskCreatedTrigger) Kind() TriggerKind        { return TriggerTaskCreated }
func (TaskAssignedTrigger) Kind() TriggerKind       { return TriggerTaskAssigned }
func (TaskUnassignedTrigger) Kind() TriggerKind     { return TriggerTaskUnassigned }
func (StatusChangedTrigger) Kind() TriggerKind      { return TriggerTaskStatusChanged }
func (PriorityChangedTrigger) Kind() TriggerKind    { return TriggerPriorityChanged }
func (DueDateApproachingTrigger) Kind() TriggerKind { return TriggerDueDateApproaching }
func (DueDatePassedTrigger) Kind() TriggerKind      { return TriggerDueDatePassed }
func (LabelAddedTrigger) Kind() TriggerKind         { return TriggerLabelAdded }
func (LabelRemovedTrigger) Kind() TriggerKind       { return TriggerLabelRemoved }
func (CommentAddedTrigger) Kind() TriggerKind       { return TriggerCommentAdded }

// DecodeTriggerConfig parses the raw configuration for a trigger kind into
// its typed variant. Unknown kinds fail closed.
func DecodeTriggerConfig(kind TriggerKind, raw json.RawMessage) (TriggerConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch kind {
	case TriggerTaskCreated:
		return decodeTrigger[TaskCreatedTrigger](raw)
	case TriggerTaskAssigned:
		return decodeTrigger[TaskAssignedTrigger](raw)
	case TriggerTaskUnassigned:
		return decodeTrigger[TaskUnassignedTrigger](raw)
	case TriggerTaskStatusChanged:
		return decodeTrigger[StatusChangedTrigger](raw)
	case TriggerPriorityChanged:
		return decodeTrigger[PriorityChangedTrigger](raw)
	case TriggerDueDateApproaching:
		return decodeTrigger[DueDateApproachingTrigger](raw)
	case TriggerDueDatePassed:
		return decodeTrigger[DueDatePassedTrigger](raw)
	case TriggerLabelAdded:
		return decodeTrigger[LabelAddedTrigger](raw)
	case TriggerLabelRemoved:
		return decodeTrigger[LabelRemovedTrigger](raw)
	case TriggerCommentAdded:
		return decodeTrigger[CommentAddedTrigger](raw)
	default:
		return nil, fmt.Errorf("unsupported trigger kind: %s", kind)
	}
}

func decodeTrigger[T TriggerConfig](raw json.RawMessage) (TriggerConfig, error) {
	var cfg T
	dec := json.NewDecoder(bytes.NewReader(raw))
	// Unknown fields are rejected so a config written for one trigger kind
	// cannot silently become a wildcard under another.
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid trigger config: %w", err)
	}
	return cfg, nil
}

// EncodeTriggerConfig serializes a typed trigger configuration back to its
// wire form.
func EncodeTriggerConfig(cfg TriggerConfig) (json.RawMessage, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger config: %w", err)
	}
	return raw, nil
}
