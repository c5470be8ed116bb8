package repository

import (
	"context"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
)

// UserRepository is the user-record store. Emails are stored and looked up
// in normalized form; Create returns domain.ErrEmailTaken on a
// case-insensitive duplicate.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Count(ctx context.Context) (int, error)
}
