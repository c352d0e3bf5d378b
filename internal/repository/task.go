package repository

import (
	"context"
	"errors"
	"time"

	"taskkeeper/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

// TaskFilter narrows List results. Nil fields do not restrict; set fields
// are combined with AND. Both time bounds are inclusive.
type TaskFilter struct {
	Status      *domain.TaskStatus
	Priority    *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TaskPatch carries a partial update. Only non-nil fields are written.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *int
	Status      *domain.TaskStatus
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil
}

// TaskRepository exposes owner-scoped persistence for tasks. Every method
// that reads or mutates existing rows takes the owner id and never touches
// rows belonging to someone else; a foreign task is reported as ErrNotFound.
// List and Search return tasks in ascending id order.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) (int64, error)
	Get(ctx context.Context, ownerID, id int64) (*domain.Task, error)
	Update(ctx context.Context, ownerID, id int64, patch TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, id int64) error
	List(ctx context.Context, ownerID int64, filter TaskFilter) ([]domain.Task, error)
	Search(ctx context.Context, ownerID int64, query string) ([]domain.Task, error)
}
