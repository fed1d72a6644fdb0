package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

func testReminder() ports.RenewalReminder {
	return ports.RenewalReminder{
		BillingDate:      time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Price:            decimal.RequireFromString("15.5"),
		SubscriptionID:   "sub-1",
		UserID:           "user-1",
		Username:         "alice",
		Email:            "alice@example.com",
		SubscriptionName: "Netflix",
		Provider:         "Netflix Inc",
		Currency:         "USD",
		BillingCycle:     "Monthly",
		DaysUntilBilling: 3,
	}
}

type notifierFunc func(ctx context.Context, r ports.RenewalReminder) error

func (f notifierFunc) Notify(ctx context.Context, r ports.RenewalReminder) error { return f(ctx, r) }

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), testReminder()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Renewal reminder", entry.Message)
	assert.Equal(t, "sub-1", entry.ContextMap()["subscription_id"])
}

func TestFanout(t *testing.T) {
	var calls []string
	ok := notifierFunc(func(ctx context.Context, r ports.RenewalReminder) error {
		calls = append(calls, "ok")
		return nil
	})
	boom := errors.New("boom")
	failing := notifierFunc(func(ctx context.Context, r ports.RenewalReminder) error {
		calls = append(calls, "fail")
		return boom
	})

	err := Fanout{failing, ok}.Notify(context.Background(), testReminder())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"fail", "ok"}, calls)

	var partial *ports.DeliveryError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Delivered)
	assert.Equal(t, 1, partial.Failed)

	err = Fanout{failing, failing}.Notify(context.Background(), testReminder())
	require.ErrorAs(t, err, &partial)
	assert.Zero(t, partial.Delivered)
	assert.Equal(t, 2, partial.Failed)

	assert.NoError(t, Fanout{ok}.Notify(context.Background(), testReminder()))
}

type fakeEmailSender struct {
	sent []postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

func TestNewPostmarkNotifier_Validation(t *testing.T) {
	_, err := NewPostmarkNotifier(PostmarkConfig{SenderEmail: "noreply@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPostmarkNotifier(PostmarkConfig{ServerToken: "token"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	n, err := NewPostmarkNotifier(PostmarkConfig{ServerToken: "token", SenderEmail: "noreply@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestPostmarkNotifier_Notify(t *testing.T) {
	cfg := PostmarkConfig{SenderEmail: "noreply@example.com", SupportEmail: "help@example.com", MessageStream: "outbound"}

	t.Run("sends email", func(t *testing.T) {
		sender := &fakeEmailSender{}
		n := &PostmarkNotifier{client: sender, config: cfg}

		require.NoError(t, n.Notify(context.Background(), testReminder()))
		require.Len(t, sender.sent, 1)

		email := sender.sent[0]
		assert.Equal(t, "alice@example.com", email.To)
		assert.Equal(t, "help@example.com", email.ReplyTo)
		assert.Equal(t, "Netflix renews in 3 days", email.Subject)
		assert.Contains(t, email.TextBody, "Hi alice")
		assert.Contains(t, email.TextBody, "15.50 USD")
		assert.Contains(t, email.TextBody, "Sunday, March 10, 2024")
		assert.Equal(t, "sub-1", email.Metadata["subscription_id"])
	})

	t.Run("postmark error code", func(t *testing.T) {
		sender := &fakeEmailSender{resp: postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}}
		n := &PostmarkNotifier{client: sender, config: cfg}

		err := n.Notify(context.Background(), testReminder())
		assert.ErrorIs(t, err, ErrFailedToSendEmail)
		assert.ErrorContains(t, err, "inactive recipient")
	})

	t.Run("missing recipient", func(t *testing.T) {
		sender := &fakeEmailSender{}
		n := &PostmarkNotifier{client: sender, config: cfg}

		r := testReminder()
		r.Email = ""
		assert.ErrorIs(t, n.Notify(context.Background(), r), ErrFailedToSendEmail)
		assert.Empty(t, sender.sent)
	})
}

func TestReminderSubject(t *testing.T) {
	r := testReminder()
	r.DaysUntilBilling = 0
	assert.Equal(t, "Netflix renews today", reminderSubject(r))
	r.DaysUntilBilling = 1
	assert.Equal(t, "Netflix renews tomorrow", reminderSubject(r))
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPNotifier(t *testing.T) {
	ch := &fakeChannel{}
	n := &AMQPNotifier{channel: ch, exchange: DefaultExchange, logger: zap.NewNop()}

	require.NoError(t, n.Notify(context.Background(), testReminder()))
	assert.Equal(t, DefaultExchange, ch.exchange)
	assert.Equal(t, ReminderRoutingKey, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "sub-1:2024-03-10T00:00:00Z", ch.msg.MessageId)

	var decoded ports.RenewalReminder
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, "sub-1", decoded.SubscriptionID)
	assert.True(t, decoded.Price.Equal(decimal.RequireFromString("15.5")))

	ch.err = errors.New("channel closed")
	assert.ErrorContains(t, n.Notify(context.Background(), testReminder()), "channel closed")

	require.NoError(t, n.Close())
	assert.True(t, ch.closed)
}

func TestBreakerNotifier(t *testing.T) {
	boom := errors.New("smtp down")
	calls := 0
	failing := notifierFunc(func(ctx context.Context, r ports.RenewalReminder) error {
		calls++
		return boom
	})

	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	b := NewBreakerNotifier("email", failing, cfg, zap.NewNop())

	assert.ErrorIs(t, b.Notify(context.Background(), testReminder()), boom)
	assert.ErrorIs(t, b.Notify(context.Background(), testReminder()), boom)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Notify(context.Background(), testReminder())
	assert.ErrorIs(t, err, ErrNotifierUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestBreakerNotifier_PassesThrough(t *testing.T) {
	b := NewBreakerNotifier("log", NewLogNotifier(zap.NewNop()), DefaultBreakerConfig(), zap.NewNop())
	assert.NoError(t, b.Notify(context.Background(), testReminder()))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
