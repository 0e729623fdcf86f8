package messaging

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"PaymentWebhooks/pkg/metrics"
)

const dlqPublishTimeout = 5 * time.Second

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// ErrMaxRetriesExceeded is returned when all retry attempts fail.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// ErrPermanent marks a failure that retrying cannot fix. WithRetry gives up on
// it immediately.
var ErrPermanent = errors.New("permanent failure")

// WithRetry wraps a handler with exponential backoff + jitter retry logic.
func WithRetry(handler MessageHandler, cfg RetryConfig) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		backoff := cfg.InitialBackoff

		var lastErr error
		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			lastErr = handler(ctx, key, value)
			if lastErr == nil {
				return nil
			}
			if errors.Is(lastErr, ErrPermanent) {
				return lastErr
			}

			// Don't sleep after last attempt
			if attempt < cfg.MaxAttempts-1 {
				jitter := time.Duration(rand.IntN(100)) * time.Millisecond
				sleepTime := backoff + jitter
				if sleepTime > cfg.MaxBackoff {
					sleepTime = cfg.MaxBackoff
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(sleepTime):
				}

				backoff *= 2
			}
		}

		return errors.Join(ErrMaxRetriesExceeded, lastErr)
	}
}

// DLQPublisher can publish failed messages to a dead letter queue.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, key, value []byte, err error) error
}

// WithDLQ wraps a handler to send failed messages to DLQ after exhausting retries.
func WithDLQ(handler MessageHandler, dlq DLQPublisher) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		err := handler(ctx, key, value)
		if err == nil {
			return nil
		}

		// The main ctx may already be cancelled during shutdown.
		dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dlqPublishTimeout)
		defer cancel()
		if dlqErr := dlq.PublishToDLQ(dlqCtx, key, value, err); dlqErr != nil {
			slog.ErrorContext(ctx, "Failed to publish message to DLQ",
				"key", string(key), slog.Any("error", dlqErr), slog.Any("cause", err))
		}
		// Commit the offset: the message now lives in the DLQ.
		return nil
	}
}

// WithMetrics records processing duration and outcome per topic and group.
func WithMetrics(topic, group string, handler MessageHandler) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		start := time.Now()
		err := handler(ctx, key, value)

		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.KafkaProcessingDuration.WithLabelValues(topic, group, status).Observe(time.Since(start).Seconds())
		metrics.KafkaMessagesProcessed.WithLabelValues(topic, group, status).Inc()
		return err
	}
}
