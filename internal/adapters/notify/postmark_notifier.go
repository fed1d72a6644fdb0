package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
	pkghttp "github.com/kevin07696/subscription-tracker/pkg/http"
)

var (
	ErrInvalidConfig     = errors.New("invalid notifier configuration")
	ErrFailedToSendEmail = errors.New("failed to send email")
)

const reminderTag = "renewal-reminder"

// PostmarkConfig holds the Postmark credentials and sender addresses
type PostmarkConfig struct {
	ServerToken   string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken  string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail   string `env:"EMAIL_SENDER"`
	SupportEmail  string `env:"EMAIL_SUPPORT"`
	MessageStream string        `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
	Timeout       time.Duration `env:"POSTMARK_TIMEOUT" envDefault:"10s"`
}

type emailSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkNotifier emails reminders through Postmark's transactional API
type PostmarkNotifier struct {
	client emailSender
	config PostmarkConfig
}

// NewPostmarkNotifier validates cfg and creates the Postmark client
func NewPostmarkNotifier(cfg PostmarkConfig) (*PostmarkNotifier, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: EMAIL_SENDER is required", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	client.HTTPClient = pkghttp.NewHTTPClient(pkghttp.NotifierClientConfig(), timeout)

	return &PostmarkNotifier{
		client: client,
		config: cfg,
	}, nil
}

func (n *PostmarkNotifier) Notify(ctx context.Context, r ports.RenewalReminder) error {
	if r.Email == "" {
		return fmt.Errorf("%w: reminder for %s has no recipient", ErrFailedToSendEmail, r.SubscriptionID)
	}

	replyTo := n.config.SupportEmail
	if replyTo == "" {
		replyTo = n.config.SenderEmail
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:          n.config.SenderEmail,
		ReplyTo:       replyTo,
		To:            r.Email,
		Subject:       reminderSubject(r),
		Tag:           reminderTag,
		TextBody:      reminderBody(r),
		MessageStream: n.config.MessageStream,
		Metadata: map[string]string{
			"subscription_id": r.SubscriptionID,
			"billing_date":    r.BillingDate.Format("2006-01-02"),
		},
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}

func reminderSubject(r ports.RenewalReminder) string {
	switch r.DaysUntilBilling {
	case 0:
		return fmt.Sprintf("%s renews today", r.SubscriptionName)
	case 1:
		return fmt.Sprintf("%s renews tomorrow", r.SubscriptionName)
	default:
		return fmt.Sprintf("%s renews in %d days", r.SubscriptionName, r.DaysUntilBilling)
	}
}

func reminderBody(r ports.RenewalReminder) string {
	var b strings.Builder
	name := r.Username
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your %s subscription to %s (%s) renews on %s.\n",
		strings.ToLower(r.BillingCycle), r.SubscriptionName, r.Provider, r.BillingDate.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Amount: %s %s\n\n", r.Price.StringFixed(2), r.Currency)
	b.WriteString("If you no longer need it, cancel before the renewal date.\n")
	return b.String()
}
