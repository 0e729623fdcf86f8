package api

import (
	"context"
	"log/slog"

	"PaymentWebhooks/config"
	"PaymentWebhooks/internal/api/consumers"
	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/external/kafka"
	"PaymentWebhooks/internal/api/messaging"
)

// StartWorkers runs the notification consumer until ctx is cancelled. The
// returned channel is closed once the consumer and its DLQ writer are shut down.
func StartWorkers(ctx context.Context, cfg config.Config, notifier *notification.Notifier) <-chan struct{} {
	done := make(chan struct{})

	dlq := kafka.NewDLQPublisher(cfg.KafkaBrokers, cfg.KafkaNotificationsDLQTopic)

	controller := consumers.NewNotificationMessageController(notifier)
	handler := messaging.WithMetrics(
		cfg.KafkaNotificationsTopic,
		cfg.KafkaNotificationsGroup,
		messaging.WithDLQ(
			messaging.WithRetry(controller.HandleMessage, messaging.DefaultRetryConfig()),
			dlq,
		),
	)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic, cfg.KafkaNotificationsGroup)
	runner := messaging.NewRunner([]messaging.Worker{consumer}, handler)

	go func() {
		defer close(done)
		defer dlq.Close()

		slog.Info("Starting notification consumer",
			"topic", cfg.KafkaNotificationsTopic,
			"group", cfg.KafkaNotificationsGroup)
		if err := runner.Start(ctx); err != nil {
			slog.Error("Notification runner failed", slog.Any("error", err))
		}
	}()

	return done
}
