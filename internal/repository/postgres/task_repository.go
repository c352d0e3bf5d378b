package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
)`

const createTasksOwnerIndex = `CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id)`

const taskColumns = `id, title, description, status, priority, created_at, owner_id`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	if _, err := r.pool.Exec(ctx, createTasksOwnerIndex); err != nil {
		return fmt.Errorf("create tasks owner index: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (int64, error) {
	task.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO tasks (title, description, status, priority, created_at, owner_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		task.Title,
		task.Description,
		string(task.Status),
		task.Priority,
		task.CreatedAt,
		task.OwnerID,
	).Scan(&task.ID)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return task.ID, nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE id = $1 AND owner_id = $2`, id, ownerID))
}

func (r *TaskRepository) Update(ctx context.Context, ownerID, id int64, patch repository.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return r.Get(ctx, ownerID, id)
	}

	var (
		p    placeholders
		sets []string
	)
	if patch.Title != nil {
		sets = append(sets, "title = "+p.add(*patch.Title))
	}
	if patch.Description != nil {
		sets = append(sets, "description = "+p.add(*patch.Description))
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = "+p.add(*patch.Priority))
	}
	if patch.Status != nil {
		sets = append(sets, "status = "+p.add(string(*patch.Status)))
	}

	query := `
UPDATE tasks
SET ` + strings.Join(sets, ", ") + `
WHERE id = ` + p.add(id) + ` AND owner_id = ` + p.add(ownerID) + `
RETURNING ` + taskColumns

	return scanTask(r.pool.QueryRow(ctx, query, p.args...))
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, ownerID int64, filter repository.TaskFilter) ([]domain.Task, error) {
	var p placeholders
	where := []string{"owner_id = " + p.add(ownerID)}

	if filter.Status != nil {
		where = append(where, "status = "+p.add(string(*filter.Status)))
	}
	if filter.Priority != nil {
		where = append(where, "priority = "+p.add(*filter.Priority))
	}
	if filter.CreatedFrom != nil {
		where = append(where, "created_at >= "+p.add(filter.CreatedFrom.UTC()))
	}
	if filter.CreatedTo != nil {
		where = append(where, "created_at <= "+p.add(filter.CreatedTo.UTC()))
	}

	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE `+strings.Join(where, " AND ")+`
ORDER BY id ASC`, p.args...)
}

func (r *TaskRepository) Search(ctx context.Context, ownerID int64, query string) ([]domain.Task, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.queryTasks(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE owner_id = $1 AND (title ILIKE $2 ESCAPE '\' OR description ILIKE $2 ESCAPE '\')
ORDER BY id ASC`, ownerID, pattern)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
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

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task   domain.Task
		status string
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&task.Priority,
		&task.CreatedAt,
		&task.OwnerID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Status = domain.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	return &task, nil
}
