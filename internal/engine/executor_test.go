package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/models"
)

func TestExecutor_RunsActionsInOrder(t *testing.T) {
	effects := newStubEffects()
	executor := NewExecutor(effects.asEffects(), logger.NopLogger())

	rule := testRule("r1", "ws1", automation.TriggerTaskCreated, `{}`,
		testAction(automation.ActionUpdateStatus, `{"status":"IN_PROGRESS"}`),
		testAction(automation.ActionAssignUser, `{"userId":"u1"}`),
		testAction(automation.ActionAddComment, `{"comment":"triaged"}`),
	)
	event := models.TaskEvent{WorkspaceID: "ws1", TaskID: "t1", Kind: models.EventTaskCreated}

	outcome := executor.Execute(context.Background(), &rule, event)
	require.NoError(t, outcome.Err)
	assert.Equal(t, automation.ExecutionSuccess, outcome.Status)

	calls := effects.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "update_status", calls[0].Kind)
	assert.Equal(t, "assign", calls[1].Kind)
	assert.Equal(t, "add_comment", calls[2].Kind)
	for _, call := range calls {
		assert.Equal(t, "t1", call.TaskID)
	}
}

func TestExecutor_FailFast(t *testing.T) {
	effects := newStubEffects("assign")
	executor := NewExecutor(effects.asEffects(), logger.NopLogger())

	rule := testRule("r1", "ws1", automation.TriggerTaskCreated, `{}`,
		testAction(automation.ActionAddComment, `{"comment":"first"}`),
		testAction(automation.ActionAssignUser, `{"userId":"missing"}`),
		testAction(automation.ActionAddLabel, `{"labelId":"bug"}`),
	)
	event := models.TaskEvent{WorkspaceID: "ws1", TaskID: "t1", Kind: models.EventTaskCreated}

	outcome := executor.Execute(context.Background(), &rule, event)
	assert.Equal(t, automation.ExecutionFailed, outcome.Status)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "ASSIGN_USER")

	// The first action ran, the failing one stopped the pipeline, the third
	// was never attempted.
	calls := effects.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "add_comment", calls[0].Kind)
}

func TestExecutor_CorruptActionConfigFails(t *testing.T) {
	effects := newStubEffects()
	executor := NewExecutor(effects.asEffects(), logger.NopLogger())

	rule := testRule("r1", "ws1", automation.TriggerTaskCreated, `{}`,
		testAction(automation.ActionKind("TELEPORT_TASK"), `{}`),
	)
	event := models.TaskEvent{WorkspaceID: "ws1", TaskID: "t1", Kind: models.EventTaskCreated}

	outcome := executor.Execute(context.Background(), &rule, event)
	assert.Equal(t, automation.ExecutionFailed, outcome.Status)
	assert.Empty(t, effects.recorded())
}

func TestExecutor_MoveToSprintIsNoOp(t *testing.T) {
	effects := newStubEffects()
	executor := NewExecutor(effects.asEffects(), logger.NopLogger())

	rule := testRule("r1", "ws1", automation.TriggerTaskCreated, `{}`,
		testAction(automation.ActionMoveToSprint, `{"sprintId":"s1"}`),
		testAction(automation.ActionAddComment, `{"comment":"after"}`),
	)
	event := models.TaskEvent{WorkspaceID: "ws1", TaskID: "t1", Kind: models.EventTaskCreated}

	outcome := executor.Execute(context.Background(), &rule, event)
	require.NoError(t, outcome.Err)
	assert.Equal(t, automation.ExecutionSuccess, outcome.Status)

	// The no-op does not interrupt the pipeline.
	calls := effects.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "add_comment", calls[0].Kind)
}
