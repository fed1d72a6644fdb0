package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	"github.com/kevin07696/subscription-tracker/pkg/observability"
	"github.com/kevin07696/subscription-tracker/pkg/timeutil"
)

// Config controls account creation
type Config struct {
	// AllowAdminBootstrap opens the create-admin endpoint
	AllowAdminBootstrap bool
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
}

// Service implements ports.AuthService
type Service struct {
	users  ports.UserRepository
	jwt    *JWTManager
	logger ports.Logger
	cfg    Config
	now    timeutil.Clock
}

// NewService creates a new auth service
func NewService(users ports.UserRepository, jwt *JWTManager, cfg Config, logger ports.Logger, clock timeutil.Clock) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if clock == nil {
		clock = timeutil.Now
	}
	return &Service{
		users:  users,
		jwt:    jwt,
		logger: logger,
		cfg:    cfg,
		now:    clock,
	}
}

// SignUp creates a regular account and signs it in
func (s *Service) SignUp(ctx context.Context, req ports.SignUpRequest) (*ports.AuthResult, error) {
	return s.register(ctx, req, false)
}

// CreateAdmin creates an administrator. Closed unless bootstrap is enabled.
func (s *Service) CreateAdmin(ctx context.Context, req ports.SignUpRequest) (*ports.AuthResult, error) {
	if !s.cfg.AllowAdminBootstrap {
		s.logger.Warn("admin bootstrap attempted while disabled",
			ports.String("email", req.Email))
		return nil, domain.ErrAuthBootstrapClosed
	}
	return s.register(ctx, req, true)
}

// RegisterAdmin creates an administrator regardless of the bootstrap switch.
// Only operator tooling calls it.
func (s *Service) RegisterAdmin(ctx context.Context, req ports.SignUpRequest) (*ports.AuthResult, error) {
	return s.register(ctx, req, true)
}

// SignIn checks credentials and issues a token
func (s *Service) SignIn(ctx context.Context, req ports.SignInRequest) (*ports.AuthResult, error) {
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("sign in failed: invalid password",
			ports.String("user_id", user.ID))
		return nil, domain.ErrAuthInvalidPassword
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "issue token", err)
	}

	s.logger.Info("user signed in", ports.String("user_id", user.ID))
	return &ports.AuthResult{User: user, Token: token}, nil
}

// Authenticate verifies a bearer token and reloads its user
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrAuthMissing
	}

	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeAuthInvalid, "not authorized, invalid token", err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.WrapError(domain.ErrorCodeAuthInvalid, "not authorized, user not found", err)
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

func (s *Service) register(ctx context.Context, req ports.SignUpRequest, admin bool) (*ports.AuthResult, error) {
	username, err := domain.NormalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, email, username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "hash password", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "issue token", err)
	}

	role := "user"
	if admin {
		role = "admin"
	}
	observability.RecordUserRegistered(role)
	s.logger.Info("user registered",
		ports.String("user_id", user.ID),
		ports.String("role", role),
		ports.Time("at", now.Truncate(time.Second)))

	return &ports.AuthResult{User: user, Token: token}, nil
}

// ensureUnique checks email and username up front so the caller gets a
// clean conflict. Stores still enforce uniqueness on Create.
func (s *Service) ensureUnique(ctx context.Context, email, username string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("check username: %w", err)
	}
	return nil
}
