package automation

// TriggerKind identifies which task lifecycle event a rule reacts to.
type TriggerKind string

const (
	TriggerTaskCreated        TriggerKind = "TASK_CREATED"
	TriggerTaskAssigned       TriggerKind = "TASK_ASSIGNED"
	TriggerTaskUnassigned     TriggerKind = "TASK_UNASSIGNED"
	TriggerTaskStatusChanged  TriggerKind = "TASK_STATUS_CHANGED"
	TriggerPriorityChanged    TriggerKind = "PRIORITY_CHANGED"
	TriggerDueDateApproaching TriggerKind = "DUE_DATE_APPROACHING"
	TriggerDueDatePassed      TriggerKind = "DUE_DATE_PASSED"
	TriggerLabelAdded         TriggerKind = "LABEL_ADDED"
	TriggerLabelRemoved       TriggerKind = "LABEL_REMOVED"
	TriggerCommentAdded       TriggerKind = "COMMENT_ADDED"
)

// ActionKind identifies one side-effecting step a rule can run.
type ActionKind string

const (
	ActionUpdateStatus     ActionKind = "UPDATE_STATUS"
	ActionUpdatePriority   ActionKind = "UPDATE_PRIORITY"
	ActionAssignUser       ActionKind = "ASSIGN_USER"
	ActionUnassignUser     ActionKind = "UNASSIGN_USER"
	ActionAddLabel         ActionKind = "ADD_LABEL"
	ActionRemoveLabel      ActionKind = "REMOVE_LABEL"
	ActionAddComment       ActionKind = "ADD_COMMENT"
	ActionSendNotification ActionKind = "SEND_NOTIFICATION"
	ActionSendEmail        ActionKind = "SEND_EMAIL"
	ActionWebhookCall      ActionKind = "WEBHOOK_CALL"
	ActionMoveToSprint     ActionKind = "MOVE_TO_SPRINT"
)

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusBlocked    Status = "BLOCKED"
	StatusCancelled  Status = "CANCELLED"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

var validTriggerKinds = map[TriggerKind]bool{
	TriggerTaskCreated:        true,
	TriggerTaskAssigned:       true,
	TriggerTaskUnassigned:     true,
	TriggerTaskStatusChanged:  true,
	TriggerPriorityChanged:    true,
	TriggerDueDateApproaching: true,
	TriggerDueDatePassed:      true,
	TriggerLabelAdded:         true,
	TriggerLabelRemoved:       true,
	TriggerCommentAdded:       true,
}

var validActionKinds = map[ActionKind]bool{
	ActionUpdateStatus:     true,
	ActionUpdatePriority:   true,
	ActionAssignUser:       true,
	ActionUnassignUser:     true,
	ActionAddLabel:         true,
	ActionRemoveLabel:      true,
	ActionAddComment:       true,
	ActionSendNotification: true,
	ActionSendEmail:        true,
	ActionWebhookCall:      true,
	ActionMoveToSprint:     true,
}

var validStatuses = map[Status]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusDone:       true,
	StatusBlocked:    true,
	StatusCancelled:  true,
}

var validPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

func (k TriggerKind) Valid() bool { return validTriggerKinds[k] }
func (k ActionKind) Valid() bool  { return validActionKinds[k] }
func (s Status) Valid() bool      { return validStatuses[s] }
func (p Priority) Valid() bool    { return validPriorities[p] }

// TimeBased reports whether the kind is matched by the due-date scanner
// rather than by a live mutation event.
func (k TriggerKind) TimeBased() bool {
	return k == TriggerDueDateApproaching || k == TriggerDueDatePassed
}
