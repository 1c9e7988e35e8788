package engine

import (
	"context"
	"fmt"
	"time"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/metrics"
	"teamflow/pkg/models"
)

// TaskWriter mutates tasks on behalf of executed actions. Implementations
// must report a missing task or referenced entity as an error so the
// pipeline stops.
type TaskWriter interface {
	UpdateStatus(ctx context.Context, workspaceID, taskID string, status automation.Status) error
	UpdatePriority(ctx context.Context, workspaceID, taskID string, priority automation.Priority) error
	Assign(ctx context.Context, workspaceID, taskID, userID string) error
	Unassign(ctx context.Context, workspaceID, taskID string) error
	AddLabel(ctx context.Context, workspaceID, taskID, labelID string) error
	RemoveLabel(ctx context.Context, workspaceID, taskID, labelID string) error
}

type CommentWriter interface {
	AddComment(ctx context.Context, workspaceID, taskID, body string) error
}

type Notifier interface {
	Notify(ctx context.Context, workspaceID, taskID, title, message string) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type WebhookCaller interface {
	Call(ctx context.Context, action automation.WebhookCallAction, event models.TaskEvent) error
}

// Effects bundles the external collaborators actions are applied through.
type Effects struct {
	Tasks    TaskWriter
	Comments CommentWriter
	Notifier Notifier
	Email    EmailSender
	Webhooks WebhookCaller
}

// Outcome is the result of running one rule's action pipeline for one task.
type Outcome struct {
	Status automation.ExecutionStatus
	Err    error
}

type Executor struct {
	effects Effects
	logger  logger.Logger
}

func NewExecutor(effects Effects, log logger.Logger) *Executor {
	return &Executor{effects: effects, logger: log}
}

// Execute runs the rule's actions strictly in order against the event's
// task. The pipeline is fail fast: the first action error stops the
// remaining actions and becomes the outcome's error, since later actions may
// depend on earlier ones' state.
func (e *Executor) Execute(ctx context.Context, rule *automation.Rule, event models.TaskEvent) Outcome {
	for _, action := range rule.Actions {
		start := time.Now()
		err := e.applyAction(ctx, action, event)
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.ObserveActionDuration(string(action.ActionType), status, time.Since(start))

		if err != nil {
			e.logger.WarnwCtx(ctx, "Action failed, halting pipeline",
				"rule_id", rule.ID,
				"task_id", event.TaskID,
				"action_type", action.ActionType,
				"action_order", action.Order,
				"error", err,
			)
			return Outcome{
				Status: automation.ExecutionFailed,
				Err:    fmt.Errorf("action %d (%s): %w", action.Order, action.ActionType, err),
			}
		}
	}

	return Outcome{Status: automation.ExecutionSuccess}
}

func (e *Executor) applyAction(ctx context.Context, action automation.Action, event models.TaskEvent) error {
	cfg, err := action.Config()
	if err != nil {
		return err
	}

	switch a := cfg.(type) {
	case automation.UpdateStatusAction:
		return e.effects.Tasks.UpdateStatus(ctx, event.WorkspaceID, event.TaskID, a.Status)

	case automation.UpdatePriorityAction:
		return e.effects.Tasks.UpdatePriority(ctx, event.WorkspaceID, event.TaskID, a.Priority)

	case automation.AssignUserAction:
		return e.effects.Tasks.Assign(ctx, event.WorkspaceID, event.TaskID, a.UserID)

	case automation.UnassignUserAction:
		return e.effects.Tasks.Unassign(ctx, event.WorkspaceID, event.TaskID)

	case automation.AddLabelAction:
		return e.effects.Tasks.AddLabel(ctx, event.WorkspaceID, event.TaskID, a.LabelID)

	case automation.RemoveLabelAction:
		return e.effects.Tasks.RemoveLabel(ctx, event.WorkspaceID, event.TaskID, a.LabelID)

	case automation.AddCommentAction:
		return e.effects.Comments.AddComment(ctx, event.WorkspaceID, event.TaskID, a.Comment)

	case automation.SendNotificationAction:
		return e.effects.Notifier.Notify(ctx, event.WorkspaceID, event.TaskID, a.Title, a.Message)

	case automation.SendEmailAction:
		return e.effects.Email.Send(ctx, a.To, a.Subject, a.Body)

	case automation.WebhookCallAction:
		return e.effects.Webhooks.Call(ctx, a, event)

	case automation.MoveToSprintAction:
		// Accepted in the model; there is no sprint subsystem to move the
		// task into yet.
		e.logger.InfowCtx(ctx, "MOVE_TO_SPRINT has no execution semantics yet, skipping",
			"task_id", event.TaskID,
			"sprint_id", a.SprintID,
		)
		return nil

	default:
		return fmt.Errorf("unsupported action kind: %s", action.ActionType)
	}
}
