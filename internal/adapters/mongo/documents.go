package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kevin07696/subscription-tracker/internal/domain"
)

const (
	subscriptionsCollection = "subscriptions"
	usersCollection         = "users"
)

type subscriptionDocument struct {
	ID                  string          `bson:"_id"`
	UserID              string          `bson:"userId"`
	Name                string          `bson:"name"`
	Description         string          `bson:"description"`
	Price               bson.Decimal128 `bson:"price"`
	Currency            string          `bson:"currency"`
	BillingCycle        string          `bson:"billingCycle"`
	StartDate           time.Time       `bson:"startDate"`
	NextBillingDate     time.Time       `bson:"nextBillingDate"`
	Status              string          `bson:"status"`
	Category            string          `bson:"category"`
	Provider            string          `bson:"provider"`
	AutoRenew           bool            `bson:"autoRenew"`
	NotificationEnabled bool            `bson:"notificationEnabled"`
	NotificationDays    int             `bson:"notificationDays"`
	CancelledAt         *time.Time      `bson:"cancelledAt,omitempty"`
	CreatedAt           time.Time       `bson:"createdAt"`
	UpdatedAt           time.Time       `bson:"updatedAt"`
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	IsAdmin      bool      `bson:"isAdmin"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func toSubscriptionDocument(s *domain.Subscription) (*subscriptionDocument, error) {
	price, err := bson.ParseDecimal128(s.Price.String())
	if err != nil {
		return nil, fmt.Errorf("encode price %s: %w", s.Price, err)
	}
	return &subscriptionDocument{
		ID:                  s.ID,
		UserID:              s.UserID,
		Name:                s.Name,
		Description:         s.Description,
		Price:               price,
		Currency:            s.Currency,
		BillingCycle:        string(s.BillingCycle),
		StartDate:           s.StartDate,
		NextBillingDate:     s.NextBillingDate,
		Status:              string(s.Status),
		Category:            s.Category,
		Provider:            s.Provider,
		AutoRenew:           s.AutoRenew,
		NotificationEnabled: s.NotificationEnabled,
		NotificationDays:    s.NotificationDays,
		CancelledAt:         s.CancelledAt,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}, nil
}

func (d *subscriptionDocument) toDomain() (*domain.Subscription, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("decode price for %s: %w", d.ID, err)
	}

	var cancelledAt *time.Time
	if d.CancelledAt != nil {
		at := d.CancelledAt.UTC()
		cancelledAt = &at
	}

	return &domain.Subscription{
		ID:                  d.ID,
		UserID:              d.UserID,
		Name:                d.Name,
		Description:         d.Description,
		Price:               price,
		Currency:            d.Currency,
		BillingCycle:        domain.BillingCycle(d.BillingCycle),
		StartDate:           d.StartDate.UTC(),
		NextBillingDate:     d.NextBillingDate.UTC(),
		Status:              domain.SubscriptionStatus(d.Status),
		Category:            d.Category,
		Provider:            d.Provider,
		AutoRenew:           d.AutoRenew,
		NotificationEnabled: d.NotificationEnabled,
		NotificationDays:    d.NotificationDays,
		CancelledAt:         cancelledAt,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}, nil
}

func toUserDocument(u *domain.User) *userDocument {
	return &userDocument{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		IsAdmin:      d.IsAdmin,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
