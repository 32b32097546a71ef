package repository

import (
	"context"

	"task-management-api/internal/user/domain"
)

// Repository defines the user lookups the auth service depends on.
// Missing rows are (nil, nil), not errors.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
