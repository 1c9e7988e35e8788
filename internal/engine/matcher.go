package engine

import (
	"teamflow/internal/automation"
	"teamflow/pkg/models"
)

// Matches decides whether an event satisfies a rule's trigger configuration.
// Kind equality is the dispatcher's job; this function only evaluates the
// per-kind payload conditions. Pure, no side effects. An unrecognized trigger
// fails closed so a corrupt or future rule is inert rather than fatal.
func Matches(trigger automation.TriggerConfig, event models.TaskEvent) bool {
	switch t := trigger.(type) {
	case automation.TaskCreatedTrigger,
		automation.TaskAssignedTrigger,
		automation.TaskUnassignedTrigger,
		automation.DueDatePassedTrigger,
		automation.CommentAddedTrigger:
		return true

	case automation.StatusChangedTrigger:
		if automation.Status(event.Payload.ToStatus) != t.ToStatus {
			return false
		}
		return t.FromStatus == "" || automation.Status(event.Payload.FromStatus) == t.FromStatus

	case automation.PriorityChangedTrigger:
		if automation.Priority(event.Payload.ToPriority) != t.ToPriority {
			return false
		}
		return t.FromPriority == "" || automation.Priority(event.Payload.FromPriority) == t.FromPriority

	case automation.DueDateApproachingTrigger:
		return event.Payload.HoursBeforeDue == t.HoursBeforeDue

	case automation.LabelAddedTrigger:
		return t.LabelID == "" || event.Payload.LabelID == t.LabelID

	case automation.LabelRemovedTrigger:
		return t.LabelID == "" || event.Payload.LabelID == t.LabelID

	default:
		return false
	}
}
