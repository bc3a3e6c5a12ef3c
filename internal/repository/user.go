package repository

import (
	"context"

	"fleetops/internal/domain"
)

// UserRepository defines the persistence operations for operations
// users.
type UserRepository interface {
	// Create adds a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetAll retrieves all users.
	GetAll(ctx context.Context) ([]*domain.User, error)
}
