package ports

import (
	"context"

	"github.com/kevin07696/subscription-tracker/internal/domain"
)

// UserRepository defines the interface for user persistence.
// Lookups that miss return domain.ErrUserNotFound; Create returns
// domain.ErrUserAlreadyExists when the email or username is taken.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
