package user

import (
	"context"
	"fmt"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// Service implements ports.UserService
type Service struct {
	users  ports.UserRepository
	logger ports.Logger
}

// NewService creates a new user service
func NewService(users ports.UserRepository, logger ports.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// ListUsers lists every account. Callers gate this to admins.
func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns an account to itself or to an admin
func (s *Service) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if !actor.CanAccess(id) {
		s.logger.Warn("user lookup denied",
			ports.String("actor_id", actor.ID),
			ports.String("user_id", id))
		return nil, domain.ErrAuthAccessDenied
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
