package engine

import (
	"context"
	"fmt"
	"sync"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/metrics"
	"teamflow/pkg/models"
)

type firedSetKey struct{}

// firedSet tracks the (ruleID, taskID) pairs already fired within one
// top-level dispatch, so an action's own side effects cannot re-enter the
// rule that produced them and loop.
type firedSet struct {
	mu    sync.Mutex
	fired map[string]bool
}

func (f *firedSet) markFired(ruleID, taskID string) bool {
	key := ruleID + ":" + taskID
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fired[key] {
		return false
	}
	f.fired[key] = true
	return true
}

// Dispatcher is the single entry point for domain mutations, live or
// synthesized. It is invoked synchronously by its caller and does not own a
// goroutine.
type Dispatcher struct {
	repo     automation.Repository
	executor *Executor
	recorder *Recorder
	logger   logger.Logger
}

func NewDispatcher(repo automation.Repository, executor *Executor, recorder *Recorder, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		executor: executor,
		recorder: recorder,
		logger:   log,
	}
}

// Dispatch evaluates every active rule of the event's workspace whose
// trigger kind matches the event kind. The active set is snapshotted by the
// load query; deactivation mid-dispatch does not interrupt rules already in
// flight. One rule's failure never prevents evaluation of its siblings; only
// a rule store failure fails the dispatch as a whole.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.TaskEvent) error {
	origin := event.Metadata.Source
	if origin == "" {
		origin = "live"
	}
	metrics.DispatchesTotal.WithLabelValues(event.Kind, origin).Inc()

	guard, ok := ctx.Value(firedSetKey{}).(*firedSet)
	if !ok {
		guard = &firedSet{fired: make(map[string]bool)}
		ctx = context.WithValue(ctx, firedSetKey{}, guard)
	}

	rules, err := d.repo.ActiveRulesByKind(ctx, event.WorkspaceID, automation.TriggerKind(event.Kind))
	if err != nil {
		return fmt.Errorf("failed to load active rules: %w", err)
	}

	for i := range rules {
		d.evaluateRule(ctx, &rules[i], event, guard)
	}
	return nil
}

// DispatchRule evaluates one already-loaded rule against a synthesized
// event. The scanner claims the rule's watermark before calling this, so the
// event must not fan out to sibling rules; everything downstream of the rule
// load is the same match/execute/record path as Dispatch.
func (d *Dispatcher) DispatchRule(ctx context.Context, rule *automation.Rule, event models.TaskEvent) {
	origin := event.Metadata.Source
	if origin == "" {
		origin = "live"
	}
	metrics.DispatchesTotal.WithLabelValues(event.Kind, origin).Inc()

	guard, ok := ctx.Value(firedSetKey{}).(*firedSet)
	if !ok {
		guard = &firedSet{fired: make(map[string]bool)}
		ctx = context.WithValue(ctx, firedSetKey{}, guard)
	}

	d.evaluateRule(ctx, rule, event, guard)
}

func (d *Dispatcher) evaluateRule(ctx context.Context, rule *automation.Rule, event models.TaskEvent, guard *firedSet) {
	trigger, err := rule.Trigger()
	if err != nil {
		// A corrupt trigger config makes the rule inert, never fatal.
		metrics.RulesEvaluatedTotal.WithLabelValues("error").Inc()
		d.logger.ErrorwCtx(ctx, "Failed to decode trigger config, treating rule as non-matching",
			"rule_id", rule.ID,
			"trigger_type", rule.TriggerType,
			"error", err,
		)
		return
	}

	if !Matches(trigger, event) {
		metrics.RulesEvaluatedTotal.WithLabelValues("unmatched").Inc()
		return
	}
	metrics.RulesEvaluatedTotal.WithLabelValues("matched").Inc()

	if !guard.markFired(rule.ID, event.TaskID) {
		d.logger.WarnwCtx(ctx, "Rule already fired for task within this dispatch, skipping",
			"rule_id", rule.ID,
			"task_id", event.TaskID,
		)
		d.record(ctx, rule.ID, event.TaskID, Outcome{
			Status: automation.ExecutionSkipped,
			Err:    fmt.Errorf("rule already fired for task within this dispatch"),
		})
		return
	}

	outcome := d.executor.Execute(ctx, rule, event)
	d.record(ctx, rule.ID, event.TaskID, outcome)

	d.logger.InfowCtx(ctx, "Rule executed",
		"rule_id", rule.ID,
		"task_id", event.TaskID,
		"event_kind", event.Kind,
		"status", outcome.Status,
	)
}

func (d *Dispatcher) record(ctx context.Context, ruleID, taskID string, outcome Outcome) {
	if _, err := d.recorder.Record(ctx, ruleID, taskID, outcome); err != nil {
		// A lost audit record must not break sibling rule evaluation.
		d.logger.ErrorwCtx(ctx, "Failed to record execution",
			"rule_id", ruleID,
			"task_id", taskID,
			"error", err,
		)
	}
}
