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

func TestEventHandler_DropsUnknownKind(t *testing.T) {
	store := newFakeRuleStore()
	store.failActiveRules = true
	handler := NewEventHandler(newTestDispatcher(store, newStubEffects()), logger.NopLogger())

	event := models.TaskEvent{WorkspaceID: "ws1", TaskID: "t1", Kind: "SPRINT_STARTED"}

	// No error even though the store would fail, proving dispatch is never
	// reached.
	assert.NoError(t, handler.Handle(context.Background(), event))
}

func TestEventHandler_DropsIncompleteEvent(t *testing.T) {
	store := newFakeRuleStore()
	store.failActiveRules = true
	handler := NewEventHandler(newTestDispatcher(store, newStubEffects()), logger.NopLogger())

	assert.NoError(t, handler.Handle(context.Background(), models.TaskEvent{
		WorkspaceID: "ws1",
		Kind:        models.EventTaskCreated,
	}))
	assert.NoError(t, handler.Handle(context.Background(), models.TaskEvent{
		TaskID: "t1",
		Kind:   models.EventTaskCreated,
	}))
}

func TestEventHandler_DispatchesValidEvent(t *testing.T) {
	rule := testRule("r1", "ws1", automation.TriggerCommentAdded, `{}`,
		testAction(automation.ActionAddLabel, `{"labelId":"discussed"}`),
	)
	store := newFakeRuleStore(rule)
	effects := newStubEffects()
	handler := NewEventHandler(newTestDispatcher(store, effects), logger.NopLogger())

	event := models.TaskEvent{WorkspaceID: "ws1", TaskID: "t1", Kind: models.EventCommentAdded}

	require.NoError(t, handler.Handle(context.Background(), event))
	calls := effects.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "add_label", calls[0].Kind)
}
