// Package relay publishes the stock event log to Kafka for reporting.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/feed"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const ConsumerName = "kafka-relay"

// Writer is the part of *kafka.Writer the relay uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type EventSource interface {
	EventsAfter(ctx context.Context, seq int64, limit int) ([]models.StockEvent, error)
}

// NewKafkaWriter builds a writer for topic that batches for low latency.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireAll,
	}
}

// KafkaPublisher forwards events in seq order, keyed by product id so all
// events of one product land on the same partition.
type KafkaPublisher struct {
	writer Writer
	logger *zap.Logger
	runner *feed.Runner[models.StockEvent]
}

func NewKafkaPublisher(events EventSource, cursors feed.Cursors, writer Writer, batchSize int, interval time.Duration, logger *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{writer: writer, logger: logger}
	p.runner = &feed.Runner[models.StockEvent]{
		Name:      ConsumerName,
		Cursors:   cursors,
		Fetch:     events.EventsAfter,
		Handle:    p.publish,
		BatchSize: batchSize,
		Interval:  interval,
		Logger:    logger,
	}
	return p
}

func (p *KafkaPublisher) Drain(ctx context.Context) error {
	return p.runner.Drain(ctx)
}

func (p *KafkaPublisher) Run(ctx context.Context) error {
	return p.runner.Run(ctx)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) publish(ctx context.Context, events []models.StockEvent) (int64, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return 0, fmt.Errorf("failed to encode event %d: %w", ev.Seq, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(ev.ProductID, 10)),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "seq", Value: []byte(strconv.FormatInt(ev.Seq, 10))},
				{Key: "kind", Value: []byte(ev.Kind)},
			},
		})
	}

	// The batch is written as a unit; on failure the whole batch is retried.
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("❌ Failed to publish stock events", zap.Error(err),
			zap.Int64("first_seq", events[0].Seq), zap.Int("count", len(events)))
		return 0, err
	}

	last := events[len(events)-1].Seq
	p.logger.Debug("📤 stock events published", zap.Int64("last_seq", last), zap.Int("count", len(events)))
	return last, nil
}
