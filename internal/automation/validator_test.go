package automation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamflow/internal/constants"
	"teamflow/pkg/errors"
)

func fieldNames(errs errors.FieldErrors) []string {
	names := make([]string, 0, len(errs))
	for _, fe := range errs {
		names = append(names, fe.Field)
	}
	return names
}

func TestValidateTrigger(t *testing.T) {
	tests := []struct {
		name       string
		cfg        TriggerConfig
		wantFields []string
	}{
		{"task created has no fields", TaskCreatedTrigger{}, nil},
		{"status changed wildcard from", StatusChangedTrigger{ToStatus: StatusDone}, nil},
		{"status changed missing to", StatusChangedTrigger{}, []string{"toStatus"}},
		{"status changed bad values", StatusChangedTrigger{FromStatus: "SLEEPING", ToStatus: "AWAKE"}, []string{"toStatus", "fromStatus"}},
		{"priority changed missing to", PriorityChangedTrigger{FromPriority: PriorityLow}, []string{"toPriority"}},
		{"priority changed bad from", PriorityChangedTrigger{FromPriority: "URGENT", ToPriority: PriorityHigh}, []string{"fromPriority"}},
		{"due date approaching in range", DueDateApproachingTrigger{HoursBeforeDue: 24}, nil},
		{"due date approaching zero", DueDateApproachingTrigger{}, []string{"hoursBeforeDue"}},
		{"due date approaching too large", DueDateApproachingTrigger{HoursBeforeDue: constants.MaxHoursBeforeDue + 1}, []string{"hoursBeforeDue"}},
		{"label added any label", LabelAddedTrigger{}, nil},
		{"label removed specific label", LabelRemovedTrigger{LabelID: "bug"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTrigger(tt.cfg)
			assert.ElementsMatch(t, tt.wantFields, fieldNames(errs))
		})
	}
}

func TestValidateAction(t *testing.T) {
	tests := []struct {
		name       string
		cfg        ActionConfig
		wantFields []string
	}{
		{"update status valid", UpdateStatusAction{Status: StatusInProgress}, nil},
		{"update status missing", UpdateStatusAction{}, []string{"status"}},
		{"update status invalid", UpdateStatusAction{Status: "ARCHIVED"}, []string{"status"}},
		{"update priority valid", UpdatePriorityAction{Priority: PriorityCritical}, nil},
		{"update priority invalid", UpdatePriorityAction{Priority: "URGENT"}, []string{"priority"}},
		{"assign user blank", AssignUserAction{UserID: "  "}, []string{"userId"}},
		{"unassign user has no fields", UnassignUserAction{}, nil},
		{"add label missing", AddLabelAction{}, []string{"labelId"}},
		{"remove label valid", RemoveLabelAction{LabelID: "bug"}, nil},
		{"add comment valid", AddCommentAction{Comment: "Nice work!"}, nil},
		{"add comment too long", AddCommentAction{Comment: strings.Repeat("x", constants.MaxCommentLength+1)}, []string{"comment"}},
		{"notification missing both", SendNotificationAction{}, []string{"title", "message"}},
		{"email missing everything", SendEmailAction{}, []string{"to", "subject", "body"}},
		{"email bad address", SendEmailAction{To: "not-an-address", Subject: "s", Body: "b"}, []string{"to"}},
		{"webhook valid", WebhookCallAction{URL: "https://example.com/hook", Method: "POST"}, nil},
		{"webhook lowercase method ok", WebhookCallAction{URL: "https://example.com/hook", Method: "post"}, nil},
		{"webhook bad scheme", WebhookCallAction{URL: "ftp://example.com", Method: "GET"}, []string{"url"}},
		{"webhook forbidden method", WebhookCallAction{URL: "https://example.com", Method: "DELETE"}, []string{"method"}},
		{"webhook missing both", WebhookCallAction{}, []string{"url", "method"}},
		{"move to sprint missing", MoveToSprintAction{}, []string{"sprintId"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateAction(tt.cfg)
			assert.ElementsMatch(t, tt.wantFields, fieldNames(errs))
		})
	}
}

func TestValidateRuleName(t *testing.T) {
	assert.Empty(t, ValidateRuleName("Close stale tasks", "adds a label"))

	errs := ValidateRuleName("   ", "")
	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Field)

	errs = ValidateRuleName(strings.Repeat("n", constants.MaxRuleNameLength+1), strings.Repeat("d", constants.MaxDescriptionLen+1))
	assert.ElementsMatch(t, []string{"name", "description"}, fieldNames(errs))
}
