package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Publisher is the part of *amqp.Channel the transport uses.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPTransport publishes notifications to a topic exchange with routing
// keys notify.<condition> and notify.digest.
type AMQPTransport struct {
	ch       Publisher
	exchange string
	logger   *zap.Logger
	now      func() time.Time
}

func NewAMQPTransport(ch Publisher, exchange string, logger *zap.Logger) *AMQPTransport {
	return &AMQPTransport{ch: ch, exchange: exchange, logger: logger, now: time.Now}
}

// DialAMQP connects to the broker and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
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
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, ch, nil
}

type digestMessage struct {
	UserID        int64                 `json:"user_id"`
	SentAt        time.Time             `json:"sent_at"`
	Notifications []models.Notification `json:"notifications"`
}

func (t *AMQPTransport) Send(ctx context.Context, n models.Notification) error {
	return t.publish(ctx, "notify."+string(n.Condition), n.UserID, string(n.Condition), n)
}

func (t *AMQPTransport) SendDigest(ctx context.Context, userID int64, notes []models.Notification) error {
	msg := digestMessage{UserID: userID, SentAt: t.now().UTC(), Notifications: notes}
	return t.publish(ctx, "notify.digest", userID, "digest", msg)
}

func (t *AMQPTransport) publish(ctx context.Context, routingKey string, userID int64, kind string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: serialization error: %v", ErrPermanent, err)
	}

	err = t.ch.Publish(
		t.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    t.now(),
			Headers: amqp.Table{
				"user_id": strconv.FormatInt(userID, 10),
				"kind":    kind,
			},
		},
	)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("notification publish failed, channel closed: %w", err)
		}
		return fmt.Errorf("notification publish failed: %w", err)
	}

	t.logger.Debug("📤 notification published", zap.String("routing_key", routingKey), zap.Int64("user_id", userID))
	return nil
}
