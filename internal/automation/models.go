package automation

import (
	"encoding/json"
	"time"
)

// Rule is a persisted automation definition: one trigger plus an ordered list
// of actions. The engine never mutates rules; only the management API does.
type Rule struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	TriggerType TriggerKind     `json:"triggerType"`
	TriggerRaw  json.RawMessage `json:"triggerConfig"`
	IsActive    bool            `json:"isActive"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	LastRunAt   *time.Time      `json:"lastRunAt,omitempty"`
	Actions     []Action        `json:"actions"`
}

// Trigger decodes the rule's stored trigger configuration into its typed
// variant.
func (r *Rule) Trigger() (TriggerConfig, error) {
	return DecodeTriggerConfig(r.TriggerType, r.TriggerRaw)
}

// Action is one ordered step of a rule. Order is dense and zero-based; the
// converter re-numbers on every save.
type Action struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"ruleId"`
	ActionType ActionKind      `json:"actionType"`
	ConfigRaw  json.RawMessage `json:"actionConfig"`
	Order      int             `json:"order"`
}

// Config decodes the action's stored configuration into its typed variant.
func (a *Action) Config() (ActionConfig, error) {
	return DecodeActionConfig(a.ActionType, a.ConfigRaw)
}

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
	ExecutionSkipped ExecutionStatus = "SKIPPED"
)

// Execution is one append-only audit record of a rule firing for a task.
type Execution struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"ruleId"`
	TaskID     string          `json:"taskId"`
	Status     ExecutionStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	ExecutedAt time.Time       `json:"executedAt"`
}

type ActionInput struct {
	ActionType   ActionKind      `json:"actionType" binding:"required"`
	ActionConfig json.RawMessage `json:"actionConfig"`
	Order        int             `json:"order"`
}

type CreateRuleRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	TriggerType   TriggerKind     `json:"triggerType" binding:"required"`
	TriggerConfig json.RawMessage `json:"triggerConfig"`
	IsActive      *bool           `json:"isActive"`
	Actions       []ActionInput   `json:"actions" binding:"required"`
}

// UpdateRuleRequest is a partial update. A non-nil Actions slice fully
// replaces the prior action set.
type UpdateRuleRequest struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	TriggerType   *TriggerKind    `json:"triggerType"`
	TriggerConfig json.RawMessage `json:"triggerConfig"`
	IsActive      *bool           `json:"isActive"`
	Actions       *[]ActionInput  `json:"actions"`
}

// RuleSummary is the list-endpoint projection: the rule plus its execution
// counts.
type RuleSummary struct {
	Rule
	ExecutionCounts ExecutionCounts `json:"executionCounts"`
}

type ExecutionCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type ListRulesFilter struct {
	TriggerType TriggerKind
	IsActive    *bool
	Page        int
	PageSize    int
}

type RuleList struct {
	Rules    []RuleSummary `json:"rules"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

type ExecutionList struct {
	Executions []Execution `json:"executions"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}
