package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"teamflow/internal/automation"
	"teamflow/internal/logger"
	"teamflow/pkg/models"
)

// fakeRuleStore is an in-memory automation.Repository for engine tests.
type fakeRuleStore struct {
	mu         sync.Mutex
	rules      []automation.Rule
	executions []automation.Execution
	lastRuns   map[string]time.Time

	failActiveRules bool
	failInsert      bool
}

func newFakeRuleStore(rules ...automation.Rule) *fakeRuleStore {
	return &fakeRuleStore{
		rules:    rules,
		lastRuns: make(map[string]time.Time),
	}
}

func (f *fakeRuleStore) CreateRule(_ context.Context, rule *automation.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRuleStore) GetRule(_ context.Context, workspaceID, ruleID string) (*automation.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == ruleID && f.rules[i].WorkspaceID == workspaceID {
			r := f.rules[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("rule not found")
}

func (f *fakeRuleStore) ListRules(context.Context, string, automation.ListRulesFilter) ([]automation.RuleSummary, int, error) {
	return nil, 0, nil
}

func (f *fakeRuleStore) UpdateRule(context.Context, *automation.Rule, bool) error { return nil }

func (f *fakeRuleStore) DeleteRule(context.Context, string, string) error { return nil }

func (f *fakeRuleStore) UpdateLastRun(_ context.Context, ruleID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRuns[ruleID] = at
	return nil
}

func (f *fakeRuleStore) ActiveRulesByKind(_ context.Context, workspaceID string, kind automation.TriggerKind) ([]automation.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failActiveRules {
		return nil, fmt.Errorf("store unavailable")
	}
	var out []automation.Rule
	for _, r := range f.rules {
		if r.WorkspaceID == workspaceID && r.TriggerType == kind && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) ActiveDueDateRules(context.Context) ([]automation.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []automation.Rule
	for _, r := range f.rules {
		if r.IsActive && r.TriggerType.TimeBased() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) CountActiveRules(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rules {
		if r.IsActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeRuleStore) InsertExecution(_ context.Context, exec *automation.Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return fmt.Errorf("insert failed")
	}
	if exec.ID == "" {
		exec.ID = fmt.Sprintf("exec-%d", len(f.executions)+1)
	}
	f.executions = append(f.executions, *exec)
	return nil
}

func (f *fakeRuleStore) ListExecutions(context.Context, string, string, int, int) ([]automation.Execution, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]automation.Execution(nil), f.executions...), len(f.executions), nil
}

func (f *fakeRuleStore) recordedExecutions() []automation.Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]automation.Execution(nil), f.executions...)
}

// effectCall records one side effect observed by the stub collaborators.
type effectCall struct {
	Kind   string
	TaskID string
	Value  string
}

// stubEffects implements every collaborator and records calls in order.
// Action kinds listed in failOn return an error.
type stubEffects struct {
	mu     sync.Mutex
	calls  []effectCall
	failOn map[string]bool
}

func newStubEffects(failOn ...string) *stubEffects {
	fail := make(map[string]bool, len(failOn))
	for _, k := range failOn {
		fail[k] = true
	}
	return &stubEffects{failOn: fail}
}

func (s *stubEffects) record(kind, taskID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[kind] {
		return fmt.Errorf("%s failed", kind)
	}
	s.calls = append(s.calls, effectCall{Kind: kind, TaskID: taskID, Value: value})
	return nil
}

func (s *stubEffects) recorded() []effectCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]effectCall(nil), s.calls...)
}

func (s *stubEffects) UpdateStatus(_ context.Context, _, taskID string, status automation.Status) error {
	return s.record("update_status", taskID, string(status))
}

func (s *stubEffects) UpdatePriority(_ context.Context, _, taskID string, priority automation.Priority) error {
	return s.record("update_priority", taskID, string(priority))
}

func (s *stubEffects) Assign(_ context.Context, _, taskID, userID string) error {
	return s.record("assign", taskID, userID)
}

func (s *stubEffects) Unassign(_ context.Context, _, taskID string) error {
	return s.record("unassign", taskID, "")
}

func (s *stubEffects) AddLabel(_ context.Context, _, taskID, labelID string) error {
	return s.record("add_label", taskID, labelID)
}

func (s *stubEffects) RemoveLabel(_ context.Context, _, taskID, labelID string) error {
	return s.record("remove_label", taskID, labelID)
}

func (s *stubEffects) AddComment(_ context.Context, _, taskID, body string) error {
	return s.record("add_comment", taskID, body)
}

func (s *stubEffects) Notify(_ context.Context, _, taskID, title, _ string) error {
	return s.record("notify", taskID, title)
}

func (s *stubEffects) Send(_ context.Context, to, _, _ string) error {
	return s.record("email", "", to)
}

func (s *stubEffects) Call(_ context.Context, action automation.WebhookCallAction, event models.TaskEvent) error {
	return s.record("webhook", event.TaskID, action.URL)
}

func (s *stubEffects) asEffects() Effects {
	return Effects{
		Tasks:    s,
		Comments: s,
		Notifier: s,
		Email:    s,
		Webhooks: s,
	}
}

func newTestDispatcher(store *fakeRuleStore, effects *stubEffects) *Dispatcher {
	log := logger.NopLogger()
	executor := NewExecutor(effects.asEffects(), log)
	recorder := NewRecorder(store, log)
	return NewDispatcher(store, executor, recorder, log)
}

func testRule(id, workspaceID string, kind automation.TriggerKind, triggerCfg string, actions ...automation.Action) automation.Rule {
	for i := range actions {
		actions[i].RuleID = id
		actions[i].Order = i
	}
	return automation.Rule{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        "rule " + id,
		TriggerType: kind,
		TriggerRaw:  json.RawMessage(triggerCfg),
		IsActive:    true,
		Actions:     actions,
	}
}

func testAction(kind automation.ActionKind, cfg string) automation.Action {
	return automation.Action{
		ActionType: kind,
		ConfigRaw:  json.RawMessage(cfg),
	}
}
