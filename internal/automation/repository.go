package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "teamflow/pkg/errors"
)

type Repository interface {
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, workspaceID, ruleID string) (*Rule, error)
	ListRules(ctx context.Context, workspaceID string, filter ListRulesFilter) ([]RuleSummary, int, error)
	UpdateRule(ctx context.Context, rule *Rule, replaceActions bool) error
	DeleteRule(ctx context.Context, workspaceID, ruleID string) error
	UpdateLastRun(ctx context.Context, ruleID string, at time.Time) error

	ActiveRulesByKind(ctx context.Context, workspaceID string, kind TriggerKind) ([]Rule, error)
	ActiveDueDateRules(ctx context.Context) ([]Rule, error)
	CountActiveRules(ctx context.Context) (int, error)

	InsertExecution(ctx context.Context, exec *Execution) error
	ListExecutions(ctx context.Context, workspaceID, ruleID string, limit, offset int) ([]Execution, int, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const ruleColumns = `id, workspace_id, name, description, trigger_type, trigger_config,
	is_active, created_by, created_at, updated_at, last_run_at`

func (r *PostgresRepository) CreateRule(ctx context.Context, rule *Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO automation_rules (id, workspace_id, name, description, trigger_type, trigger_config,
			is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, query,
		rule.ID, rule.WorkspaceID, rule.Name, rule.Description,
		string(rule.TriggerType), []byte(rule.TriggerRaw),
		rule.IsActive, rule.CreatedBy, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).
				WithDetail("message", fmt.Sprintf("rule with name '%s' already exists in this workspace", rule.Name))
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	if err := insertActions(ctx, tx, rule.ID, rule.Actions); err != nil {
		return err
	}
	for i := range rule.Actions {
		rule.Actions[i].RuleID = rule.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule: %w", err)
	}
	return nil
}

func insertActions(ctx context.Context, tx *sql.Tx, ruleID string, actions []Action) error {
	query := `
		INSERT INTO automation_actions (id, rule_id, action_type, action_config, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range actions {
		a := &actions[i]
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		a.Order = i
		if _, err := tx.ExecContext(ctx, query,
			a.ID, ruleID, string(a.ActionType), []byte(a.ConfigRaw), a.Order,
		); err != nil {
			return fmt.Errorf("failed to insert action: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetRule(ctx context.Context, workspaceID, ruleID string) (*Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
	`
	row := r.db.QueryRowContext(ctx, query, ruleID, workspaceID)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "rule not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	if err := r.loadActions(ctx, map[string]*Rule{rule.ID: rule}); err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *PostgresRepository) ListRules(ctx context.Context, workspaceID string, filter ListRulesFilter) ([]RuleSummary, int, error) {
	where := `workspace_id = $1 AND deleted_at IS NULL`
	args := []interface{}{workspaceID}
	if filter.TriggerType != "" {
		args = append(args, string(filter.TriggerType))
		where += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM automation_rules WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rules: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE ` + where + `
		ORDER BY created_at DESC
	` + fmt.Sprintf("LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Rule)
	var order []string
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan rule: %w", err)
		}
		byID[rule.ID] = rule
		order = append(order, rule.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate rules: %w", err)
	}

	if err := r.loadActions(ctx, byID); err != nil {
		return nil, 0, err
	}
	counts, err := r.executionCounts(ctx, order)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]RuleSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, RuleSummary{
			Rule:            *byID[id],
			ExecutionCounts: counts[id],
		})
	}
	return summaries, total, nil
}

func (r *PostgresRepository) UpdateRule(ctx context.Context, rule *Rule, replaceActions bool) error {
	rule.UpdatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE automation_rules
		SET name = $1, description = $2, trigger_type = $3, trigger_config = $4,
			is_active = $5, updated_at = $6
		WHERE id = $7 AND workspace_id = $8 AND deleted_at IS NULL
	`
	res, err := tx.ExecContext(ctx, query,
		rule.Name, rule.Description, string(rule.TriggerType), []byte(rule.TriggerRaw),
		rule.IsActive, rule.UpdatedAt, rule.ID, rule.WorkspaceID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrConflict.WithCause(err).
				WithDetail("message", fmt.Sprintf("rule with name '%s' already exists in this workspace", rule.Name))
		}
		return fmt.Errorf("failed to update rule: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", "rule not found")
	}

	if replaceActions {
		if _, err := tx.ExecContext(ctx, `DELETE FROM automation_actions WHERE rule_id = $1`, rule.ID); err != nil {
			return fmt.Errorf("failed to clear actions: %w", err)
		}
		if err := insertActions(ctx, tx, rule.ID, rule.Actions); err != nil {
			return err
		}
		for i := range rule.Actions {
			rule.Actions[i].RuleID = rule.ID
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule update: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteRule(ctx context.Context, workspaceID, ruleID string) error {
	query := `
		UPDATE automation_rules
		SET deleted_at = $1, is_active = FALSE
		WHERE id = $2 AND workspace_id = $3 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, time.Now(), ruleID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", "rule not found")
	}
	return nil
}

func (r *PostgresRepository) UpdateLastRun(ctx context.Context, ruleID string, at time.Time) error {
	query := `UPDATE automation_rules SET last_run_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, ruleID); err != nil {
		return fmt.Errorf("failed to update last run: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ActiveRulesByKind(ctx context.Context, workspaceID string, kind TriggerKind) ([]Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE workspace_id = $1 AND trigger_type = $2 AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY created_at
	`
	return r.queryRules(ctx, query, workspaceID, string(kind))
}

func (r *PostgresRepository) ActiveDueDateRules(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE trigger_type = ANY($1) AND is_active = TRUE AND deleted_at IS NULL
		ORDER BY workspace_id, created_at
	`
	kinds := pq.Array([]string{string(TriggerDueDateApproaching), string(TriggerDueDatePassed)})
	return r.queryRules(ctx, query, kinds)
}

func (r *PostgresRepository) CountActiveRules(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM automation_rules WHERE is_active = TRUE AND deleted_at IS NULL`
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active rules: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Rule)
	var order []string
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		byID[rule.ID] = rule
		order = append(order, rule.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	if err := r.loadActions(ctx, byID); err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(order))
	for _, id := range order {
		rules = append(rules, *byID[id])
	}
	return rules, nil
}

func (r *PostgresRepository) loadActions(ctx context.Context, rules map[string]*Rule) error {
	if len(rules) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}

	query := `
		SELECT id, rule_id, action_type, action_config, position
		FROM automation_actions
		WHERE rule_id = ANY($1)
		ORDER BY rule_id, position
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Action
		var actionType string
		var config []byte
		if err := rows.Scan(&a.ID, &a.RuleID, &actionType, &config, &a.Order); err != nil {
			return fmt.Errorf("failed to scan action: %w", err)
		}
		a.ActionType = ActionKind(actionType)
		a.ConfigRaw = config
		if rule, ok := rules[a.RuleID]; ok {
			rule.Actions = append(rule.Actions, a)
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) executionCounts(ctx context.Context, ruleIDs []string) (map[string]ExecutionCounts, error) {
	counts := make(map[string]ExecutionCounts, len(ruleIDs))
	if len(ruleIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT rule_id, status, COUNT(*)
		FROM automation_executions
		WHERE rule_id = ANY($1)
		GROUP BY rule_id, status
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ruleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ruleID, status string
		var n int
		if err := rows.Scan(&ruleID, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan execution counts: %w", err)
		}
		c := counts[ruleID]
		c.Total += n
		switch ExecutionStatus(status) {
		case ExecutionSuccess:
			c.Success += n
		case ExecutionFailed:
			c.Failed += n
		case ExecutionSkipped:
			c.Skipped += n
		}
		counts[ruleID] = c
	}
	return counts, rows.Err()
}

func (r *PostgresRepository) InsertExecution(ctx context.Context, exec *Execution) error {
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = time.Now()
	}

	query := `
		INSERT INTO automation_executions (id, rule_id, task_id, status, error, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var errMsg sql.NullString
	if exec.Error != "" {
		errMsg = sql.NullString{String: exec.Error, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		exec.ID, exec.RuleID, exec.TaskID, string(exec.Status), errMsg, exec.ExecutedAt,
	); err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListExecutions(ctx context.Context, workspaceID, ruleID string, limit, offset int) ([]Execution, int, error) {
	// Scope through the rule so executions of another workspace's rules are
	// not reachable.
	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM automation_executions e
		JOIN automation_rules r ON r.id = e.rule_id
		WHERE e.rule_id = $1 AND r.workspace_id = $2
	`
	if err := r.db.QueryRowContext(ctx, countQuery, ruleID, workspaceID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count executions: %w", err)
	}

	query := `
		SELECT e.id, e.rule_id, e.task_id, e.status, e.error, e.executed_at
		FROM automation_executions e
		JOIN automation_rules r ON r.id = e.rule_id
		WHERE e.rule_id = $1 AND r.workspace_id = $2
		ORDER BY e.executed_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, query, ruleID, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		var e Execution
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.RuleID, &e.TaskID, &status, &errMsg, &e.ExecutedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan execution: %w", err)
		}
		e.Status = ExecutionStatus(status)
		e.Error = errMsg.String
		execs = append(execs, e)
	}
	return execs, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var rule Rule
	var triggerType string
	var triggerConfig []byte
	var description sql.NullString
	var lastRunAt sql.NullTime
	err := row.Scan(
		&rule.ID, &rule.WorkspaceID, &rule.Name, &description,
		&triggerType, &triggerConfig,
		&rule.IsActive, &rule.CreatedBy, &rule.CreatedAt, &rule.UpdatedAt, &lastRunAt,
	)
	if err != nil {
		return nil, err
	}
	rule.TriggerType = TriggerKind(triggerType)
	rule.TriggerRaw = triggerConfig
	rule.Description = description.String
	if lastRunAt.Valid {
		t := lastRunAt.Time
		rule.LastRunAt = &t
	}
	return &rule, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
