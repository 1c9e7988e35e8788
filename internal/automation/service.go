package automation

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"teamflow/internal/constants"
	"teamflow/internal/logger"
	pkgerrors "teamflow/pkg/errors"
	"teamflow/pkg/metrics"
)

type Service interface {
	CreateRule(ctx context.Context, workspaceID, actorID string, req CreateRuleRequest) (*Rule, error)
	GetRule(ctx context.Context, workspaceID, ruleID string) (*Rule, error)
	ListRules(ctx context.Context, workspaceID string, filter ListRulesFilter) (*RuleList, error)
	UpdateRule(ctx context.Context, workspaceID, ruleID string, req UpdateRuleRequest) (*Rule, error)
	DeleteRule(ctx context.Context, workspaceID, ruleID string) error
	ListExecutions(ctx context.Context, workspaceID, ruleID string, limit, offset int) (*ExecutionList, error)

	CreateRuleFromGraph(ctx context.Context, workspaceID, actorID string, req CreateRuleFromGraphRequest) (*Rule, error)
	GetRuleGraph(ctx context.Context, workspaceID, ruleID string) (*Graph, error)
}

type CreateRuleFromGraphRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
	Graph       Graph  `json:"graph"`
}

// WatermarkEvictor discards the due-date scanner's per-rule state; wired in
// so deleting a rule also drops its watermarks.
type WatermarkEvictor interface {
	EvictRule(ctx context.Context, ruleID string) error
}

type service struct {
	repo    Repository
	logger  logger.Logger
	evictor WatermarkEvictor
}

type ServiceOption func(*service)

func WithWatermarkEvictor(evictor WatermarkEvictor) ServiceOption {
	return func(s *service) {
		s.evictor = evictor
	}
}

func NewService(repo Repository, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateRule(ctx context.Context, workspaceID, actorID string, req CreateRuleRequest) (*Rule, error) {
	var errs pkgerrors.FieldErrors
	errs = append(errs, ValidateRuleName(req.Name, req.Description)...)

	triggerCfg, err := DecodeTriggerConfig(req.TriggerType, req.TriggerConfig)
	if err != nil {
		errs = append(errs, pkgerrors.FieldError{Field: "triggerType", Message: err.Error()})
	} else {
		errs = append(errs, ValidateTrigger(triggerCfg)...)
	}

	actions, actionErrs := validateActionInputs(req.Actions)
	errs = append(errs, actionErrs...)

	if len(errs) > 0 {
		return nil, errs.ToValidationError()
	}

	rule := &Rule{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Description: req.Description,
		TriggerType: req.TriggerType,
		TriggerRaw:  normalizeConfig(req.TriggerConfig),
		IsActive:    req.IsActive == nil || *req.IsActive,
		CreatedBy:   actorID,
		Actions:     actions,
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, wrapStoreError(err)
	}

	s.logger.InfowCtx(ctx, "Automation rule created",
		"rule_id", rule.ID,
		"workspace_id", workspaceID,
		"trigger_type", rule.TriggerType,
		"actions", len(rule.Actions),
	)
	s.refreshActiveRulesGauge(ctx)

	return rule, nil
}

func (s *service) GetRule(ctx context.Context, workspaceID, ruleID string) (*Rule, error) {
	rule, err := s.repo.GetRule(ctx, workspaceID, ruleID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, workspaceID string, filter ListRulesFilter) (*RuleList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = constants.DefaultPageSize
	}
	if filter.PageSize > constants.MaxPageSize {
		filter.PageSize = constants.MaxPageSize
	}
	if filter.TriggerType != "" && !filter.TriggerType.Valid() {
		return nil, pkgerrors.FieldErrors{{Field: "triggerType", Message: "unsupported trigger kind"}}.ToValidationError()
	}

	summaries, total, err := s.repo.ListRules(ctx, workspaceID, filter)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	return &RuleList{
		Rules:    summaries,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *service) UpdateRule(ctx context.Context, workspaceID, ruleID string, req UpdateRuleRequest) (*Rule, error) {
	rule, err := s.repo.GetRule(ctx, workspaceID, ruleID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.TriggerType != nil {
		rule.TriggerType = *req.TriggerType
	}
	if len(req.TriggerConfig) > 0 {
		rule.TriggerRaw = req.TriggerConfig
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	var errs pkgerrors.FieldErrors
	errs = append(errs, ValidateRuleName(rule.Name, rule.Description)...)

	triggerCfg, err := DecodeTriggerConfig(rule.TriggerType, rule.TriggerRaw)
	if err != nil {
		errs = append(errs, pkgerrors.FieldError{Field: "triggerType", Message: err.Error()})
	} else {
		errs = append(errs, ValidateTrigger(triggerCfg)...)
	}

	replaceActions := req.Actions != nil
	if replaceActions {
		actions, actionErrs := validateActionInputs(*req.Actions)
		errs = append(errs, actionErrs...)
		rule.Actions = actions
	}

	if len(errs) > 0 {
		return nil, errs.ToValidationError()
	}

	rule.TriggerRaw = normalizeConfig(rule.TriggerRaw)
	if err := s.repo.UpdateRule(ctx, rule, replaceActions); err != nil {
		return nil, wrapStoreError(err)
	}

	s.logger.InfowCtx(ctx, "Automation rule updated",
		"rule_id", rule.ID,
		"workspace_id", workspaceID,
		"is_active", rule.IsActive,
	)
	s.refreshActiveRulesGauge(ctx)

	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, workspaceID, ruleID string) error {
	if err := s.repo.DeleteRule(ctx, workspaceID, ruleID); err != nil {
		return wrapStoreError(err)
	}

	if s.evictor != nil {
		if err := s.evictor.EvictRule(ctx, ruleID); err != nil {
			// Stale watermarks only suppress events for a rule that no longer
			// exists, so log and move on.
			s.logger.WarnwCtx(ctx, "Failed to evict rule watermarks",
				"rule_id", ruleID,
				"error", err,
			)
		}
	}

	s.logger.InfowCtx(ctx, "Automation rule deleted",
		"rule_id", ruleID,
		"workspace_id", workspaceID,
	)
	s.refreshActiveRulesGauge(ctx)

	return nil
}

func (s *service) ListExecutions(ctx context.Context, workspaceID, ruleID string, limit, offset int) (*ExecutionList, error) {
	if limit < 1 {
		limit = constants.DefaultExecutionLimit
	}
	if limit > constants.MaxExecutionLimit {
		limit = constants.MaxExecutionLimit
	}
	if offset < 0 {
		offset = 0
	}

	// 404 for an unknown rule, not an empty list.
	if _, err := s.repo.GetRule(ctx, workspaceID, ruleID); err != nil {
		return nil, wrapStoreError(err)
	}

	execs, total, err := s.repo.ListExecutions(ctx, workspaceID, ruleID, limit, offset)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	return &ExecutionList{
		Executions: execs,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (s *service) CreateRuleFromGraph(ctx context.Context, workspaceID, actorID string, req CreateRuleFromGraphRequest) (*Rule, error) {
	var errs pkgerrors.FieldErrors
	errs = append(errs, ValidateRuleName(req.Name, req.Description)...)

	draft, graphErrs := GraphToRule(req.Graph)
	errs = append(errs, graphErrs...)
	if len(errs) > 0 {
		return nil, errs.ToValidationError()
	}

	return s.CreateRule(ctx, workspaceID, actorID, CreateRuleRequest{
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   draft.TriggerType,
		TriggerConfig: draft.TriggerConfig,
		IsActive:      req.IsActive,
		Actions:       draft.Actions,
	})
}

func (s *service) GetRuleGraph(ctx context.Context, workspaceID, ruleID string) (*Graph, error) {
	rule, err := s.repo.GetRule(ctx, workspaceID, ruleID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	g := RuleToGraph(rule)
	return &g, nil
}

// validateActionInputs checks every action and re-numbers the surviving set
// densely by the requested order.
func validateActionInputs(inputs []ActionInput) ([]Action, pkgerrors.FieldErrors) {
	var errs pkgerrors.FieldErrors

	if len(inputs) == 0 {
		errs = append(errs, pkgerrors.FieldError{Field: "actions", Message: "at least one action is required"})
		return nil, errs
	}
	if len(inputs) > constants.MaxActionsPerRule {
		errs = append(errs, pkgerrors.FieldError{
			Field:   "actions",
			Message: fmt.Sprintf("at most %d actions are allowed", constants.MaxActionsPerRule),
		})
		return nil, errs
	}

	sorted := make([]ActionInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	actions := make([]Action, 0, len(sorted))
	for i, in := range sorted {
		cfg, err := DecodeActionConfig(in.ActionType, in.ActionConfig)
		if err != nil {
			errs = append(errs, pkgerrors.FieldError{
				Field:   fmt.Sprintf("actions[%d].actionType", i),
				Message: err.Error(),
			})
			continue
		}
		for _, fe := range ValidateAction(cfg) {
			errs = append(errs, pkgerrors.FieldError{
				Field:   fmt.Sprintf("actions[%d].%s", i, fe.Field),
				Message: fe.Message,
			})
		}
		actions = append(actions, Action{
			ActionType: in.ActionType,
			ConfigRaw:  normalizeConfig(in.ActionConfig),
			Order:      i,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return actions, nil
}

func normalizeConfig(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func wrapStoreError(err error) error {
	var appErr *pkgerrors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func (s *service) refreshActiveRulesGauge(ctx context.Context) {
	n, err := s.repo.CountActiveRules(ctx)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to refresh active rules gauge", "error", err)
		return
	}
	metrics.SetActiveRules(n)
}
