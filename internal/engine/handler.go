package engine

import (
	"context"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/models"
)

// EventHandler adapts broker task events onto the dispatcher.
type EventHandler struct {
	dispatcher *Dispatcher
	logger     logger.Logger
}

func NewEventHandler(dispatcher *Dispatcher, log logger.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, logger: log}
}

func (h *EventHandler) Handle(ctx context.Context, event models.TaskEvent) error {
	kind := automation.TriggerKind(event.Kind)
	if !kind.Valid() {
		// Unknown kinds are dropped, not retried; redelivery cannot fix them.
		h.logger.WarnwCtx(ctx, "Dropping task event with unknown kind",
			"event_id", event.ID,
			"kind", event.Kind,
		)
		return nil
	}
	if event.WorkspaceID == "" || event.TaskID == "" {
		h.logger.WarnwCtx(ctx, "Dropping task event without workspace or task",
			"event_id", event.ID,
			"kind", event.Kind,
		)
		return nil
	}

	return h.dispatcher.Dispatch(ctx, event)
}
