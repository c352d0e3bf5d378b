package service

import (
	"context"
	"errors"
	"fmt"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
)

// ErrTaskNotFound covers both missing tasks and tasks owned by someone else.
var ErrTaskNotFound = errors.New("task not found or you don't have permission")

// CreateTaskInput carries the fields a caller supplies for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    int
	Status      domain.TaskStatus
}

// TaskService coordinates owner-scoped task operations.
type TaskService interface {
	CreateTask(ctx context.Context, owner *domain.User, input CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, owner *domain.User, id int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, owner *domain.User, id int64, patch repository.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, owner *domain.User, id int64) error
	ListTasks(ctx context.Context, owner *domain.User, filter repository.TaskFilter) ([]domain.Task, error)
	SearchTasks(ctx context.Context, owner *domain.User, query string) ([]domain.Task, error)
}

type taskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) CreateTask(ctx context.Context, owner *domain.User, input CreateTaskInput) (*domain.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = domain.TaskStatusPending
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}

	task := &domain.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		OwnerID:     owner.ID,
	}
	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, owner *domain.User, id int64) (*domain.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	task, err := s.tasks.Get(ctx, owner.ID, id)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, owner *domain.User, id int64, patch repository.TaskPatch) (*domain.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if patch.Title != nil && *patch.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
	}

	task, err := s.tasks.Update(ctx, owner.ID, id, patch)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, owner *domain.User, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	return mapTaskErr(s.tasks.Delete(ctx, owner.ID, id))
}

func (s *taskService) ListTasks(ctx context.Context, owner *domain.User, filter repository.TaskFilter) ([]domain.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *filter.Status)
	}
	return s.tasks.List(ctx, owner.ID, filter)
}

func (s *taskService) SearchTasks(ctx context.Context, owner *domain.User, query string) ([]domain.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	return s.tasks.Search(ctx, owner.ID, query)
}

func requireOwner(owner *domain.User) error {
	if owner == nil || owner.ID == 0 {
		return errors.New("task operation requires an authenticated owner")
	}
	return nil
}

func mapTaskErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
