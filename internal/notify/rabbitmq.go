package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"calendar_bot/internal/domain"
)

// errNacked is returned when the broker refuses a publish.
var errNacked = errors.New("broker nacked message")

// RabbitMQ hands notifications to a chat gateway over a durable queue instead of posting
// them directly. Publishes are confirmed by the broker before Notify returns.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// Message is the queued payload consumed by the gateway.
type Message struct {
	Request   domain.NotificationRequest `json:"request"`
	Timestamp time.Time                  `json:"timestamp"`
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := setupChannel(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("notifier", "rabbitmq"),
	}, nil
}

// setupChannel declares the direct exchange and the durable queue bound to it and puts the
// channel into confirm mode.
func setupChannel(conn *amqp.Connection, cfg Config) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	steps := []struct {
		what string
		fn   func() error
	}{
		{"declare exchange", func() error {
			return ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil)
		}},
		{"declare queue", func() error {
			_, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
			return err
		}},
		{"bind queue", func() error {
			return ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.Exchange, false, nil)
		}},
		{"enable confirms", func() error {
			return ch.Confirm(false)
		}},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			ch.Close()
			return nil, fmt.Errorf("%s: %w", step.what, err)
		}
	}

	return ch, nil
}

func (r *RabbitMQ) Notify(ctx context.Context, req *domain.NotificationRequest) error {
	now := time.Now().UTC()

	body, err := json.Marshal(Message{Request: *req, Timestamp: now})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(ctx, r.exchange, r.routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    req.ItemID,
			Timestamp:    now,
			Headers:      amqp.Table{"destination": req.Destination},
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish notification: %w: %w", domain.ErrDeliveryFailed, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for publish confirm: %w: %w", domain.ErrDeliveryFailed, err)
	}
	if !acked {
		return fmt.Errorf("publish notification: %w: %w", domain.ErrDeliveryFailed, errNacked)
	}

	r.logger.Debug("published notification",
		"item_id", req.ItemID,
		"destination", req.Destination,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
