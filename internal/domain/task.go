package domain

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
)

// Valid reports whether s is one of the known task states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus converts raw input into a TaskStatus.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	status := TaskStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status %q", raw)
	}
	return status, nil
}

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          int64
	Title       string
	Description string
	Status      TaskStatus
	Priority    int
	CreatedAt   time.Time
	OwnerID     int64
}
