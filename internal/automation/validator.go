package automation

import (
	"fmt"
	"net/url"
	"strings"

	"teamflow/internal/constants"
	"teamflow/pkg/errors"
)

var allowedWebhookMethods = map[string]bool{
	"GET":   true,
	"POST":  true,
	"PUT":   true,
	"PATCH": true,
}

// ValidateTrigger checks a typed trigger configuration and returns every
// field-level problem found. It is total over the closed variant set and
// performs no I/O.
func ValidateTrigger(cfg TriggerConfig) errors.FieldErrors {
	var errs errors.FieldErrors

	switch t := cfg.(type) {
	case TaskCreatedTrigger, TaskAssignedTrigger, TaskUnassignedTrigger,
		DueDatePassedTrigger, CommentAddedTrigger:
		// no configuration fields

	case StatusChangedTrigger:
		if t.ToStatus == "" {
			errs = append(errs, errors.FieldError{Field: "toStatus", Message: "is required"})
		} else if !t.ToStatus.Valid() {
			errs = append(errs, errors.FieldError{Field: "toStatus", Message: fmt.Sprintf("invalid status: %s", t.ToStatus)})
		}
		if t.FromStatus != "" && !t.FromStatus.Valid() {
			errs = append(errs, errors.FieldError{Field: "fromStatus", Message: fmt.Sprintf("invalid status: %s", t.FromStatus)})
		}

	case PriorityChangedTrigger:
		if t.ToPriority == "" {
			errs = append(errs, errors.FieldError{Field: "toPriority", Message: "is required"})
		} else if !t.ToPriority.Valid() {
			errs = append(errs, errors.FieldError{Field: "toPriority", Message: fmt.Sprintf("invalid priority: %s", t.ToPriority)})
		}
		if t.FromPriority != "" && !t.FromPriority.Valid() {
			errs = append(errs, errors.FieldError{Field: "fromPriority", Message: fmt.Sprintf("invalid priority: %s", t.FromPriority)})
		}

	case DueDateApproachingTrigger:
		if t.HoursBeforeDue < constants.MinHoursBeforeDue || t.HoursBeforeDue > constants.MaxHoursBeforeDue {
			errs = append(errs, errors.FieldError{
				Field:   "hoursBeforeDue",
				Message: fmt.Sprintf("must be between %d and %d", constants.MinHoursBeforeDue, constants.MaxHoursBeforeDue),
			})
		}

	case LabelAddedTrigger, LabelRemovedTrigger:
		// labelId is optional; empty means any label

	default:
		errs = append(errs, errors.FieldError{Field: "triggerType", Message: "unsupported trigger kind"})
	}

	return errs
}

// ValidateAction checks a typed action configuration the same way.
func ValidateAction(cfg ActionConfig) errors.FieldErrors {
	var errs errors.FieldErrors

	switch a := cfg.(type) {
	case UpdateStatusAction:
		if a.Status == "" {
			errs = append(errs, errors.FieldError{Field: "status", Message: "is required"})
		} else if !a.Status.Valid() {
			errs = append(errs, errors.FieldError{Field: "status", Message: fmt.Sprintf("invalid status: %s", a.Status)})
		}

	case UpdatePriorityAction:
		if a.Priority == "" {
			errs = append(errs, errors.FieldError{Field: "priority", Message: "is required"})
		} else if !a.Priority.Valid() {
			errs = append(errs, errors.FieldError{Field: "priority", Message: fmt.Sprintf("invalid priority: %s", a.Priority)})
		}

	case AssignUserAction:
		if strings.TrimSpace(a.UserID) == "" {
			errs = append(errs, errors.FieldError{Field: "userId", Message: "is required"})
		}

	case UnassignUserAction:
		// no configuration fields

	case AddLabelAction:
		if strings.TrimSpace(a.LabelID) == "" {
			errs = append(errs, errors.FieldError{Field: "labelId", Message: "is required"})
		}

	case RemoveLabelAction:
		if strings.TrimSpace(a.LabelID) == "" {
			errs = append(errs, errors.FieldError{Field: "labelId", Message: "is required"})
		}

	case AddCommentAction:
		if strings.TrimSpace(a.Comment) == "" {
			errs = append(errs, errors.FieldError{Field: "comment", Message: "is required"})
		} else if len(a.Comment) > constants.MaxCommentLength {
			errs = append(errs, errors.FieldError{Field: "comment", Message: fmt.Sprintf("must be at most %d characters", constants.MaxCommentLength)})
		}

	case SendNotificationAction:
		if strings.TrimSpace(a.Title) == "" {
			errs = append(errs, errors.FieldError{Field: "title", Message: "is required"})
		} else if len(a.Title) > constants.MaxTitleLength {
			errs = append(errs, errors.FieldError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", constants.MaxTitleLength)})
		}
		if strings.TrimSpace(a.Message) == "" {
			errs = append(errs, errors.FieldError{Field: "message", Message: "is required"})
		} else if len(a.Message) > constants.MaxMessageLength {
			errs = append(errs, errors.FieldError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", constants.MaxMessageLength)})
		}

	case SendEmailAction:
		if strings.TrimSpace(a.To) == "" {
			errs = append(errs, errors.FieldError{Field: "to", Message: "is required"})
		} else if !strings.Contains(a.To, "@") {
			errs = append(errs, errors.FieldError{Field: "to", Message: "must be a valid email address"})
		}
		if strings.TrimSpace(a.Subject) == "" {
			errs = append(errs, errors.FieldError{Field: "subject", Message: "is required"})
		} else if len(a.Subject) > constants.MaxTitleLength {
			errs = append(errs, errors.FieldError{Field: "subject", Message: fmt.Sprintf("must be at most %d characters", constants.MaxTitleLength)})
		}
		if strings.TrimSpace(a.Body) == "" {
			errs = append(errs, errors.FieldError{Field: "body", Message: "is required"})
		} else if len(a.Body) > constants.MaxEmailBodyLength {
			errs = append(errs, errors.FieldError{Field: "body", Message: fmt.Sprintf("must be at most %d characters", constants.MaxEmailBodyLength)})
		}

	case WebhookCallAction:
		if strings.TrimSpace(a.URL) == "" {
			errs = append(errs, errors.FieldError{Field: "url", Message: "is required"})
		} else if u, err := url.Parse(a.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, errors.FieldError{Field: "url", Message: "must be a valid http or https URL"})
		}
		if a.Method == "" {
			errs = append(errs, errors.FieldError{Field: "method", Message: "is required"})
		} else if !allowedWebhookMethods[strings.ToUpper(a.Method)] {
			errs = append(errs, errors.FieldError{Field: "method", Message: "must be one of GET, POST, PUT, PATCH"})
		}

	case MoveToSprintAction:
		if strings.TrimSpace(a.SprintID) == "" {
			errs = append(errs, errors.FieldError{Field: "sprintId", Message: "is required"})
		}

	default:
		errs = append(errs, errors.FieldError{Field: "actionType", Message: "unsupported action kind"})
	}

	return errs
}

// ValidateRuleName checks the rule-level metadata fields shared by create and
// update requests.
func ValidateRuleName(name, description string) errors.FieldErrors {
	var errs errors.FieldErrors

	if strings.TrimSpace(name) == "" {
		errs = append(errs, errors.FieldError{Field: "name", Message: "is required"})
	} else if len(name) > constants.MaxRuleNameLength {
		errs = append(errs, errors.FieldError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", constants.MaxRuleNameLength)})
	}
	if len(description) > constants.MaxDescriptionLen {
		errs = append(errs, errors.FieldError{Field: "description", Message: fmt.Sprintf("must be at most %d characters", constants.MaxDescriptionLen)})
	}

	return errs
}
