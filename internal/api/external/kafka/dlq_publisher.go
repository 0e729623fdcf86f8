package kafka

import (
	"context"
	"log/slog"
	"time"

	"PaymentWebhooks/internal/api/messaging"
	"PaymentWebhooks/pkg/correlation"

	"github.com/segmentio/kafka-go"
)

// DLQPublisher publishes failed messages to a Dead Letter Queue topic.
type DLQPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

var _ messaging.DLQPublisher = (*DLQPublisher)(nil)

func NewDLQPublisher(brokers []string, dlqTopic string) *DLQPublisher {
	return &DLQPublisher{writer: newWriter(brokers, dlqTopic), topic: dlqTopic, now: time.Now}
}

// PublishToDLQ sends a failed message to DLQ with error information in headers.
func (p *DLQPublisher) PublishToDLQ(ctx context.Context, key, value []byte, err error) error {
	headers := []kafka.Header{
		{Key: "error", Value: []byte(err.Error())},
		{Key: "failed_at", Value: []byte(p.now().UTC().Format(time.RFC3339))},
	}
	if corrID := correlation.FromContext(ctx); corrID != "" {
		headers = append(headers, kafka.Header{Key: correlation.KafkaHeaderName, Value: []byte(corrID)})
	}

	msg := kafka.Message{Key: key, Value: value, Headers: headers}

	if writeErr := p.writer.WriteMessages(ctx, msg); writeErr != nil {
		slog.ErrorContext(ctx, "Failed to publish to DLQ",
			"topic", p.topic,
			"key", string(key),
			slog.Any("error", writeErr),
			slog.Any("original_error", err))
		return writeErr
	}

	slog.WarnContext(ctx, "Message sent to DLQ",
		"topic", p.topic,
		"key", string(key),
		slog.Any("error", err))
	return nil
}

func (p *DLQPublisher) Close() error {
	return p.writer.Close()
}
