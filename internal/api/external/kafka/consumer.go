package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"PaymentWebhooks/internal/api/messaging"
	"PaymentWebhooks/pkg/correlation"

	"github.com/segmentio/kafka-go"
)

const commitTimeout = 5 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer implements messaging.Worker using Kafka.
type Consumer struct {
	reader messageReader
	topic  string
	group  string
}

var _ messaging.Worker = (*Consumer)(nil)

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // synchronous commits
		StartOffset:    kafka.FirstOffset,
		// faster group coordination
		MaxWait:          500 * time.Millisecond,
		RebalanceTimeout: 5 * time.Second,
	})

	return &Consumer{reader: reader, topic: topic, group: groupID}
}

// Start fetches messages and passes them to handler, committing each one the
// handler accepts. Blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Start(ctx context.Context, handler messaging.MessageHandler) error {
	slog.Info("Consumer started", "topic", c.topic, "group_id", c.group)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Consumer stopped (context cancelled)", "topic", c.topic)
				return nil
			}
			slog.Error("Failed to fetch message", "topic", c.topic, slog.Any("error", err))
			return err
		}

		msgCtx := extractCorrelationID(ctx, msg.Headers)

		slog.DebugContext(msgCtx, "Message received",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key))

		if err := handler(msgCtx, msg.Key, msg.Value); err != nil {
			// Not committed: redelivered after restart or rebalance.
			slog.ErrorContext(msgCtx, "Handler error, message not committed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				slog.Any("error", err))
			continue
		}

		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		err = c.reader.CommitMessages(commitCtx, msg)
		cancel()
		if err != nil {
			slog.ErrorContext(msgCtx, "Failed to commit message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				slog.Any("error", err))
			continue
		}

		slog.DebugContext(msgCtx, "Message committed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset)
	}
}

func (c *Consumer) Close() error {
	slog.Info("Closing consumer", "topic", c.topic, "group_id", c.group)
	return c.reader.Close()
}

// extractCorrelationID returns ctx carrying the message's correlation id, or a
// fresh one when the header is missing.
func extractCorrelationID(ctx context.Context, headers []kafka.Header) context.Context {
	for _, h := range headers {
		if h.Key == correlation.KafkaHeaderName && len(h.Value) > 0 {
			return correlation.WithID(ctx, string(h.Value))
		}
	}
	return correlation.WithID(ctx, correlation.NewID())
}
