package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/subscription-tracker/internal/domain"
)

// CreateSubscriptionRequest carries caller input for a new subscription.
// Nil pointers take the documented defaults.
type CreateSubscriptionRequest struct {
	StartDate           time.Time        `json:"startDate"`
	Price               *decimal.Decimal `json:"price"`
	AutoRenew           *bool            `json:"autoRenew"`
	NotificationEnabled *bool            `json:"notificationEnabled"`
	NotificationDays    *int             `json:"notificationDays"`
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Currency            string           `json:"currency"`
	BillingCycle        string           `json:"billingCycle"`
	Category            string           `json:"category"`
	Provider            string           `json:"provider"`
}

// UpdateSubscriptionRequest is a partial update; nil fields are left alone
type UpdateSubscriptionRequest struct {
	StartDate           *time.Time       `json:"startDate"`
	Price               *decimal.Decimal `json:"price"`
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	Currency            *string          `json:"currency"`
	BillingCycle        *string          `json:"billingCycle"`
	Category            *string          `json:"category"`
	Provider            *string          `json:"provider"`
	AutoRenew           *bool            `json:"autoRenew"`
	NotificationEnabled *bool            `json:"notificationEnabled"`
	NotificationDays    *int             `json:"notificationDays"`
}

// UpcomingRenewalsQuery narrows the upcoming-renewals view
type UpcomingRenewalsQuery struct {
	Window  time.Duration
	DueOnly bool
}

// SweepResult summarizes one pass over overdue subscriptions
type SweepResult struct {
	Errors         []SweepError `json:"errors,omitempty"`
	ProcessedCount int          `json:"processed"`
	RenewedCount   int          `json:"renewed"`
	ExpiredCount   int          `json:"expired"`
	SkippedCount   int          `json:"skipped"`
	FailedCount    int          `json:"failed"`
}

// SweepError records one subscription that could not be saved during a sweep
type SweepError struct {
	SubscriptionID string `json:"subscriptionId"`
	Error          string `json:"error"`
}

// ReminderResult summarizes one reminder dispatch run
type ReminderResult struct {
	Errors       []SweepError `json:"errors,omitempty"`
	ScannedCount int          `json:"scanned"`
	SentCount    int          `json:"sent"`
	SkippedCount int          `json:"skipped"`
	FailedCount  int          `json:"failed"`
}

// SubscriptionService defines the business logic for subscription operations.
// actor is the authenticated caller.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, actor *domain.User, req CreateSubscriptionRequest) (*domain.Subscription, error)
	GetSubscription(ctx context.Context, actor *domain.User, id string) (*domain.Subscription, error)
	ListUserSubscriptions(ctx context.Context, actor *domain.User, userID string) ([]*domain.Subscription, error)
	UpdateSubscription(ctx context.Context, actor *domain.User, id string, req UpdateSubscriptionRequest) (*domain.Subscription, error)
	CancelSubscription(ctx context.Context, actor *domain.User, id string) (*domain.Subscription, error)
	DeleteSubscription(ctx context.Context, actor *domain.User, id string) error
	UpcomingRenewals(ctx context.Context, actor *domain.User, query UpcomingRenewalsQuery) ([]*domain.Subscription, error)
	ListAllSubscriptions(ctx context.Context) ([]*domain.Subscription, error)
	SweepRenewals(ctx context.Context, batchSize int) (*SweepResult, error)
}

// ReminderService dispatches renewal reminders
type ReminderService interface {
	DispatchDueReminders(ctx context.Context) (*ReminderResult, error)
}

// AuthResult is returned by sign-up and sign-in
type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// SignUpRequest carries new account credentials
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest carries login credentials
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService issues and verifies tokens
type AuthService interface {
	SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error)
	SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error)
	CreateAdmin(ctx context.Context, req SignUpRequest) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// UserService is the read side of user accounts
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error)
}
