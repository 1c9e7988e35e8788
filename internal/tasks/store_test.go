package tasks

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgresmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"teamflow/internal/automation"
	"teamflow/pkg/errors"
	"teamflow/pkg/migrations"
)

func setupStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	container, err := postgresmodule.Run(ctx, "postgres:15",
		postgresmodule.WithDatabase("test_db"),
		postgresmodule.WithUsername("test_user"),
		postgresmodule.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	conn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres uri: %v", err)
	}

	db, err := sql.Open("postgres", conn)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := migrations.RunPostgres(db, "../../migrations/postgres"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewStore(db), db
}

func seedTask(t *testing.T, db *sql.DB, id, workspaceID, status string, dueDate *time.Time) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO tasks (id, workspace_id, title, status, due_date) VALUES ($1, $2, $3, $4, $5)`,
		id, workspaceID, "task "+id, status, dueDate,
	)
	require.NoError(t, err)
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ($1, $2)`, id, id+"@example.com")
	require.NoError(t, err)
}

func seedLabel(t *testing.T, db *sql.DB, id, workspaceID string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO labels (id, workspace_id, name) VALUES ($1, $2, $3)`, id, workspaceID, id)
	require.NoError(t, err)
}

func TestStore(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()

	t.Run("update status and priority", func(t *testing.T) {
		seedTask(t, db, "t-status", "ws1", "TODO", nil)

		require.NoError(t, store.UpdateStatus(ctx, "ws1", "t-status", automation.StatusDone))
		require.NoError(t, store.UpdatePriority(ctx, "ws1", "t-status", automation.PriorityHigh))

		var status, priority string
		require.NoError(t, db.QueryRow(`SELECT status, priority FROM tasks WHERE id = 't-status'`).Scan(&status, &priority))
		assert.Equal(t, "DONE", status)
		assert.Equal(t, "HIGH", priority)
	})

	t.Run("unknown task is not found", func(t *testing.T) {
		err := store.UpdateStatus(ctx, "ws1", "missing", automation.StatusDone)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("workspace mismatch is not found", func(t *testing.T) {
		seedTask(t, db, "t-ws", "ws1", "TODO", nil)
		err := store.UpdateStatus(ctx, "ws-other", "t-ws", automation.StatusDone)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("assign and unassign", func(t *testing.T) {
		seedTask(t, db, "t-assign", "ws1", "TODO", nil)
		seedUser(t, db, "u1")

		require.NoError(t, store.Assign(ctx, "ws1", "t-assign", "u1"))

		var assignee sql.NullString
		require.NoError(t, db.QueryRow(`SELECT assignee_id FROM tasks WHERE id = 't-assign'`).Scan(&assignee))
		assert.Equal(t, "u1", assignee.String)

		require.NoError(t, store.Unassign(ctx, "ws1", "t-assign"))
		require.NoError(t, db.QueryRow(`SELECT assignee_id FROM tasks WHERE id = 't-assign'`).Scan(&assignee))
		assert.False(t, assignee.Valid)
	})

	t.Run("assign unknown user is not found", func(t *testing.T) {
		seedTask(t, db, "t-assign-bad", "ws1", "TODO", nil)

		err := store.Assign(ctx, "ws1", "t-assign-bad", "ghost")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("labels are idempotent", func(t *testing.T) {
		seedTask(t, db, "t-label", "ws1", "TODO", nil)
		seedLabel(t, db, "bug", "ws1")

		require.NoError(t, store.AddLabel(ctx, "ws1", "t-label", "bug"))
		require.NoError(t, store.AddLabel(ctx, "ws1", "t-label", "bug"))

		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_labels WHERE task_id = 't-label'`).Scan(&n))
		assert.Equal(t, 1, n)

		require.NoError(t, store.RemoveLabel(ctx, "ws1", "t-label", "bug"))
		require.NoError(t, store.RemoveLabel(ctx, "ws1", "t-label", "bug"))
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_labels WHERE task_id = 't-label'`).Scan(&n))
		assert.Equal(t, 0, n)
	})

	t.Run("add unknown label is not found", func(t *testing.T) {
		seedTask(t, db, "t-label-bad", "ws1", "TODO", nil)

		err := store.AddLabel(ctx, "ws1", "t-label-bad", "ghost-label")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("comments carry the automation author", func(t *testing.T) {
		seedTask(t, db, "t-comment", "ws1", "TODO", nil)

		require.NoError(t, store.AddComment(ctx, "ws1", "t-comment", "Nice work!"))

		var body, author string
		require.NoError(t, db.QueryRow(`SELECT body, created_by FROM comments WHERE task_id = 't-comment'`).Scan(&body, &author))
		assert.Equal(t, "Nice work!", body)
		assert.Equal(t, "automation", author)
	})

	t.Run("notifications are stored", func(t *testing.T) {
		seedTask(t, db, "t-notify", "ws1", "TODO", nil)

		require.NoError(t, store.Notify(ctx, "ws1", "t-notify", "Due soon", "24h left"))

		var title string
		require.NoError(t, db.QueryRow(`SELECT title FROM notifications WHERE task_id = 't-notify'`).Scan(&title))
		assert.Equal(t, "Due soon", title)
	})

	t.Run("open tasks with due dates excludes done and cancelled", func(t *testing.T) {
		due := time.Now().Add(24 * time.Hour)
		seedTask(t, db, "t-due-open", "ws-due", "IN_PROGRESS", &due)
		seedTask(t, db, "t-due-done", "ws-due", "DONE", &due)
		seedTask(t, db, "t-due-cancelled", "ws-due", "CANCELLED", &due)
		seedTask(t, db, "t-no-due", "ws-due", "TODO", nil)

		tasks, err := store.OpenTasksWithDueDates(ctx, "ws-due")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "t-due-open", tasks[0].ID)
		assert.Equal(t, "ws-due", tasks[0].WorkspaceID)
		assert.WithinDuration(t, due, tasks[0].DueDate, time.Second)
	})
}
