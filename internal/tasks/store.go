package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"teamflow/internal/automation"
	"teamflow/internal/engine"
	pkgerrors "teamflow/pkg/errors"
)

// Store applies automation side effects against the task subsystem's tables
// and feeds the due-date scanner. It implements engine.TaskWriter,
// engine.CommentWriter, engine.Notifier and engine.TaskSource.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const automationAuthor = "automation"

func (s *Store) UpdateStatus(ctx context.Context, workspaceID, taskID string, status automation.Status) error {
	return s.updateTask(ctx, workspaceID, taskID,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND workspace_id = $4`,
		string(status))
}

func (s *Store) UpdatePriority(ctx context.Context, workspaceID, taskID string, priority automation.Priority) error {
	return s.updateTask(ctx, workspaceID, taskID,
		`UPDATE tasks SET priority = $1, updated_at = $2 WHERE id = $3 AND workspace_id = $4`,
		string(priority))
}

func (s *Store) Assign(ctx context.Context, workspaceID, taskID, userID string) error {
	err := s.updateTask(ctx, workspaceID, taskID,
		`UPDATE tasks SET assignee_id = $1, updated_at = $2 WHERE id = $3 AND workspace_id = $4`,
		userID)
	if isForeignKeyViolation(err) {
		return pkgerrors.ErrNotFound.WithCause(err).
			WithDetail("message", fmt.Sprintf("user %s not found", userID))
	}
	return err
}

func (s *Store) Unassign(ctx context.Context, workspaceID, taskID string) error {
	return s.updateTask(ctx, workspaceID, taskID,
		`UPDATE tasks SET assignee_id = $1, updated_at = $2 WHERE id = $3 AND workspace_id = $4`,
		nil)
}

func (s *Store) updateTask(ctx context.Context, workspaceID, taskID, query string, value interface{}) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now(), taskID, workspaceID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return err
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("task %s not found", taskID))
	}
	return nil
}

func (s *Store) AddLabel(ctx context.Context, workspaceID, taskID, labelID string) error {
	if err := s.checkTask(ctx, workspaceID, taskID); err != nil {
		return err
	}

	query := `
		INSERT INTO task_labels (task_id, label_id)
		VALUES ($1, $2)
		ON CONFLICT (task_id, label_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, taskID, labelID); err != nil {
		if isForeignKeyViolation(err) {
			return pkgerrors.ErrNotFound.WithCause(err).
				WithDetail("message", fmt.Sprintf("label %s not found", labelID))
		}
		return fmt.Errorf("failed to add label: %w", err)
	}
	return nil
}

func (s *Store) RemoveLabel(ctx context.Context, workspaceID, taskID, labelID string) error {
	if err := s.checkTask(ctx, workspaceID, taskID); err != nil {
		return err
	}

	// Removing a label the task does not carry is a no-op, not a failure.
	query := `DELETE FROM task_labels WHERE task_id = $1 AND label_id = $2`
	if _, err := s.db.ExecContext(ctx, query, taskID, labelID); err != nil {
		return fmt.Errorf("failed to remove label: %w", err)
	}
	return nil
}

func (s *Store) AddComment(ctx context.Context, workspaceID, taskID, body string) error {
	if err := s.checkTask(ctx, workspaceID, taskID); err != nil {
		return err
	}

	query := `
		INSERT INTO comments (id, task_id, body, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), taskID, body, automationAuthor, time.Now(),
	); err != nil {
		if isForeignKeyViolation(err) {
			return pkgerrors.ErrNotFound.WithCause(err).
				WithDetail("message", fmt.Sprintf("task %s not found", taskID))
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

func (s *Store) Notify(ctx context.Context, workspaceID, taskID, title, message string) error {
	query := `
		INSERT INTO notifications (id, workspace_id, task_id, title, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), workspaceID, taskID, title, message, time.Now(),
	); err != nil {
		if isForeignKeyViolation(err) {
			return pkgerrors.ErrNotFound.WithCause(err).
				WithDetail("message", fmt.Sprintf("task %s not found", taskID))
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *Store) OpenTasksWithDueDates(ctx context.Context, workspaceID string) ([]engine.DueTask, error) {
	query := `
		SELECT id, workspace_id, due_date
		FROM tasks
		WHERE workspace_id = $1
		  AND due_date IS NOT NULL
		  AND status NOT IN ('DONE', 'CANCELLED')
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []engine.DueTask
	for rows.Next() {
		var t engine.DueTask
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan due task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) checkTask(ctx context.Context, workspaceID, taskID string) error {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND workspace_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, taskID, workspaceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("task %s not found", taskID))
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
