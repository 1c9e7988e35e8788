package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/errors"
	"teamflow/pkg/metrics"
	"teamflow/pkg/models"
)

// DueTask is the scanner's projection of an open task with a due date.
type DueTask struct {
	ID          string
	WorkspaceID string
	DueDate     time.Time
}

// TaskSource reads tasks on behalf of the scanner; the task subsystem itself
// is an external collaborator.
type TaskSource interface {
	OpenTasksWithDueDates(ctx context.Context, workspaceID string) ([]DueTask, error)
}

// Scanner synthesizes DUE_DATE_APPROACHING and DUE_DATE_PASSED events, which
// have no originating mutation. It polls on a fixed interval and feeds the
// same dispatch path as live events. Firing is at-most-once per (rule, task,
// threshold) through the watermark store.
type Scanner struct {
	repo       automation.Repository
	tasks      TaskSource
	watermarks WatermarkStore
	dispatcher *Dispatcher
	logger     logger.Logger

	interval time.Duration
	ttl      time.Duration
	running  atomic.Bool
}

func NewScanner(
	repo automation.Repository,
	tasks TaskSource,
	watermarks WatermarkStore,
	dispatcher *Dispatcher,
	interval, ttl time.Duration,
	log logger.Logger,
) *Scanner {
	return &Scanner{
		repo:       repo,
		tasks:      tasks,
		watermarks: watermarks,
		dispatcher: dispatcher,
		logger:     log,
		interval:   interval,
		ttl:        ttl,
	}
}

// Start runs the scan loop until the context is canceled. A scan that
// overruns the interval causes the next tick to be skipped, never a
// concurrent scan.
func (s *Scanner) Start(ctx context.Context) {
	s.logger.Infow("Starting due-date scanner", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Due-date scanner stopped")
			return
		case <-ticker.C:
			s.runScan(ctx)
		}
	}
}

// runScan guards against overlapping scans and keeps a panicking scan from
// wedging the loop: the running flag is released on every exit path.
func (s *Scanner) runScan(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.ScannerRunsTotal.WithLabelValues("skipped").Inc()
		s.logger.Warnw("Previous scan still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			metrics.ScannerRunsTotal.WithLabelValues("error").Inc()
			s.logger.ErrorwCtx(ctx, "Panic recovered during due-date scan",
				"error", errors.RecoverPanic(r),
			)
		}
	}()

	if err := s.Scan(ctx); err != nil {
		metrics.ScannerRunsTotal.WithLabelValues("error").Inc()
		s.logger.ErrorwCtx(ctx, "Due-date scan failed", "error", err)
	} else {
		metrics.ScannerRunsTotal.WithLabelValues("success").Inc()
	}
}

// Scan performs one pass over every workspace that has at least one active
// due-date rule.
func (s *Scanner) Scan(ctx context.Context) error {
	rules, err := s.repo.ActiveDueDateRules(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	byWorkspace := make(map[string][]*automation.Rule)
	for i := range rules {
		r := &rules[i]
		byWorkspace[r.WorkspaceID] = append(byWorkspace[r.WorkspaceID], r)
	}

	now := time.Now()
	for workspaceID, wsRules := range byWorkspace {
		tasks, err := s.tasks.OpenTasksWithDueDates(ctx, workspaceID)
		if err != nil {
			s.logger.ErrorwCtx(ctx, "Failed to load due tasks for workspace",
				"workspace_id", workspaceID,
				"error", err,
			)
			continue
		}
		for _, rule := range wsRules {
			s.evaluateRule(ctx, rule, tasks, now)
		}
	}
	return nil
}

func (s *Scanner) evaluateRule(ctx context.Context, rule *automation.Rule, tasks []DueTask, now time.Time) {
	trigger, err := rule.Trigger()
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to decode due-date trigger, skipping rule",
			"rule_id", rule.ID,
			"error", err,
		)
		return
	}

	for _, task := range tasks {
		var threshold time.Time
		var kind string
		var hoursBeforeDue int

		switch t := trigger.(type) {
		case automation.DueDateApproachingTrigger:
			threshold = task.DueDate.Add(-time.Duration(t.HoursBeforeDue) * time.Hour)
			kind = models.EventDueDateApproaching
			hoursBeforeDue = t.HoursBeforeDue
		case automation.DueDatePassedTrigger:
			threshold = task.DueDate
			kind = models.EventDueDatePassed
		default:
			return
		}

		if now.Before(threshold) {
			continue
		}

		fired, err := s.watermarks.FireOnce(ctx, WatermarkKey(rule.ID, task.ID), threshold, s.ttl)
		if err != nil {
			s.logger.ErrorwCtx(ctx, "Failed to claim watermark",
				"rule_id", rule.ID,
				"task_id", task.ID,
				"error", err,
			)
			continue
		}
		if !fired {
			continue
		}

		dueDate := task.DueDate
		event := models.TaskEvent{
			ID:          uuid.New().String(),
			WorkspaceID: task.WorkspaceID,
			TaskID:      task.ID,
			Kind:        kind,
			Timestamp:   now,
			Payload: models.EventPayload{
				DueDate:        &dueDate,
				HoursBeforeDue: hoursBeforeDue,
			},
			Metadata: models.Metadata{Source: "scanner"},
		}

		metrics.ScannerEventsTotal.WithLabelValues(kind).Inc()
		s.dispatcher.DispatchRule(ctx, rule, event)
	}
}
