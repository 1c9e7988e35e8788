package engine

import (
	"context"
	"fmt"
	"time"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/metrics"
)

// Recorder owns the append-only execution audit trail. Records are written
// for failed pipelines just like successful ones; that is the point of the
// trail. Nothing ever updates or deletes a record.
type Recorder struct {
	repo   automation.Repository
	logger logger.Logger
}

func NewRecorder(repo automation.Repository, log logger.Logger) *Recorder {
	return &Recorder{repo: repo, logger: log}
}

func (r *Recorder) Record(ctx context.Context, ruleID, taskID string, outcome Outcome) (string, error) {
	exec := &automation.Execution{
		RuleID:     ruleID,
		TaskID:     taskID,
		Status:     outcome.Status,
		ExecutedAt: time.Now(),
	}
	if outcome.Err != nil {
		exec.Error = outcome.Err.Error()
	}

	if err := r.repo.InsertExecution(ctx, exec); err != nil {
		return "", fmt.Errorf("failed to record execution: %w", err)
	}
	metrics.ExecutionsTotal.WithLabelValues(string(outcome.Status)).Inc()

	if outcome.Status == automation.ExecutionSuccess {
		if err := r.repo.UpdateLastRun(ctx, ruleID, exec.ExecutedAt); err != nil {
			// The audit record exists; a stale last_run_at is cosmetic.
			r.logger.WarnwCtx(ctx, "Failed to update rule last run",
				"rule_id", ruleID,
				"error", err,
			)
		}
	}

	return exec.ID, nil
}
