package repository

import (
	"context"

	"taskkeeper/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Username and email uniqueness is enforced by the backing store; a
// violating Create returns an error wrapping ErrConflict.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
