package models

import "time"

// TaskEvent is the envelope for one domain mutation on a task. Live events
// arrive from the task subsystem over the broker; due-date events are
// synthesized by the scanner and travel the same dispatch path.
type TaskEvent struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	TaskID      string       `json:"task_id"`
	Kind        string       `json:"kind"`
	ActorID     string       `json:"actor_id,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Payload     EventPayload `json:"payload"`
	Metadata    Metadata     `json:"metadata"`
}

// EventPayload carries the before/after values of the mutated fields. Only
// the fields relevant to the event kind are set.
type EventPayload struct {
	FromStatus   string     `json:"from_status,omitempty"`
	ToStatus     string     `json:"to_status,omitempty"`
	FromPriority string     `json:"from_priority,omitempty"`
	ToPriority   string     `json:"to_priority,omitempty"`
	AssigneeID   string     `json:"assignee_id,omitempty"`
	LabelID      string     `json:"label_id,omitempty"`
	CommentID    string     `json:"comment_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`

	// HoursBeforeDue is set on synthesized DUE_DATE_APPROACHING events to
	// the threshold that was crossed.
	HoursBeforeDue int `json:"hours_before_due,omitempty"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	Source  string `json:"source,omitempty"`

	// DLQ holds failure annotations attached when a message is routed to
	// the dead letter topic.
	DLQ map[string]interface{} `json:"dlq,omitempty"`
}

const (
	EventTaskCreated        = "TASK_CREATED"
	EventTaskAssigned       = "TASK_ASSIGNED"
	EventTaskUnassigned     = "TASK_UNASSIGNED"
	EventTaskStatusChanged  = "TASK_STATUS_CHANGED"
	EventPriorityChanged    = "PRIORITY_CHANGED"
	EventDueDateApproaching = "DUE_DATE_APPROACHING"
	EventDueDatePassed      = "DUE_DATE_PASSED"
	EventLabelAdded         = "LABEL_ADDED"
	EventLabelRemoved       = "LABEL_REMOVED"
	EventCommentAdded       = "COMMENT_ADDED"
)
