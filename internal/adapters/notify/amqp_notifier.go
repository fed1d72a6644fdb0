package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

const (
	// DefaultExchange is the topic exchange reminder events are published to
	DefaultExchange = "subscriptions.events"

	// ReminderRoutingKey routes renewal reminder events
	ReminderRoutingKey = "subscription.renewal.reminder"
)

// AMQPConfig configures the broker publisher
type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"subscriptions.events"`
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes reminders as JSON events on a RabbitMQ topic
// exchange for downstream consumers (mailers, push services).
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewAMQPNotifier dials the broker and declares the exchange
func NewAMQPNotifier(cfg AMQPConfig, logger *zap.Logger) (*AMQPNotifier, error) {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info("RabbitMQ reminder publisher connected", zap.String("exchange", exchange))

	return &AMQPNotifier{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, r ports.RenewalReminder) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(ctx,
		n.exchange,         // exchange
		ReminderRoutingKey, // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    r.SubscriptionID + ":" + r.BillingDate.UTC().Format(time.RFC3339),
			Timestamp:    time.Now(),
			Type:         ReminderRoutingKey,
			Body:         payload,
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish reminder",
			zap.String("subscription_id", r.SubscriptionID),
			zap.Error(err),
		)
		return fmt.Errorf("publish reminder: %w", err)
	}

	n.logger.Debug("Reminder published",
		zap.String("subscription_id", r.SubscriptionID),
		zap.Int("size", len(payload)),
	)
	return nil
}

// Close closes the channel and connection
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		if err := n.channel.Close(); err != nil {
			n.logger.Warn("Error closing AMQP channel", zap.Error(err))
		}
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
