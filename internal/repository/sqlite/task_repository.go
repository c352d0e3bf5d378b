package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	owner_id INTEGER NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id);
`

const selectTaskColumns = `
SELECT id, title, description, status, priority, created_at, owner_id
FROM tasks`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (int64, error) {
	task.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tasks (title, description, status, priority, created_at, owner_id)
VALUES (?, ?, ?, ?, ?, ?)`,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		task.CreatedAt.UnixMilli(),
		task.OwnerID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	task.ID = id
	return id, nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, selectTaskColumns+`
WHERE id=? AND owner_id=?`,
		id,
		ownerID,
	)
	return scanTask(row)
}

func (r *TaskRepository) Update(ctx context.Context, ownerID, id int64, patch repository.TaskPatch) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if !patch.Empty() {
		sets, args := patchAssignments(patch)
		args = append(args, id, ownerID)
		res, err := tx.ExecContext(ctx, `
UPDATE tasks
SET `+strings.Join(sets, ", ")+`
WHERE id=? AND owner_id=?`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("task update rows affected: %w", err)
		}
		if aff == 0 {
			return nil, fmt.Errorf("task: %w", repository.ErrNotFound)
		}
	}

	task, err := scanTask(tx.QueryRowContext(ctx, selectTaskColumns+`
WHERE id=? AND owner_id=?`,
		id,
		ownerID,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task update: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("task: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, ownerID int64, filter repository.TaskFilter) ([]domain.Task, error) {
	where := []string{"owner_id=?"}
	args := []any{ownerID}

	if filter.Status != nil {
		where = append(where, "status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		where = append(where, "priority=?")
		args = append(args, *filter.Priority)
	}
	if filter.CreatedFrom != nil {
		where = append(where, "created_at>=?")
		args = append(args, filter.CreatedFrom.UnixMilli())
	}
	if filter.CreatedTo != nil {
		where = append(where, "created_at<=?")
		args = append(args, filter.CreatedTo.UnixMilli())
	}

	query := selectTaskColumns + `
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY id ASC`

	return r.queryTasks(ctx, query, args...)
}

// Search matches query as a substring of title or description. sqlite's
// LIKE folds case for ASCII letters only.
func (r *TaskRepository) Search(ctx context.Context, ownerID int64, query string) ([]domain.Task, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.queryTasks(ctx, selectTaskColumns+`
WHERE owner_id=? AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')
ORDER BY id ASC`,
		ownerID,
		pattern,
		pattern,
	)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

func patchAssignments(patch repository.TaskPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *patch.Description)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *patch.Priority)
	}
	if patch.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, string(*patch.Status))
	}
	return sets, args
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		task      domain.Task
		status    string
		createdAt int64
	)

	if err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&task.Priority,
		&createdAt,
		&task.OwnerID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = domain.TaskStatus(status)
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &task, nil
}
