package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/messaging"
	"PaymentWebhooks/pkg/correlation"
)

type notificationSender interface {
	Send(ctx context.Context, req notification.Request) notification.Delivery
}

// NotificationMessageController delivers notification requests read from Kafka.
type NotificationMessageController struct {
	notifier notificationSender
}

func NewNotificationMessageController(n notificationSender) *NotificationMessageController {
	return &NotificationMessageController{notifier: n}
}

// HandleMessage returns an error only when a retry could succeed. Malformed
// messages are marked permanent so they go straight to the DLQ.
func (c *NotificationMessageController) HandleMessage(ctx context.Context, key, value []byte) error {
	env, err := messaging.DecodeEnvelope(value)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode envelope", "key", string(key), slog.Any("error", err))
		return err
	}

	if correlation.FromContext(ctx) == "" && env.CorrelationID != "" {
		ctx = correlation.WithID(ctx, env.CorrelationID)
	}

	if env.Type != notification.MessageType {
		slog.WarnContext(ctx, "Skipping message of unknown type", "event_id", env.EventID, "type", env.Type)
		return nil
	}

	var req notification.Request
	if err := env.DecodePayload(&req); err != nil {
		slog.ErrorContext(ctx, "Failed to decode notification request",
			"event_id", env.EventID, slog.Any("error", err))
		return err
	}

	slog.DebugContext(ctx, "Processing notification message",
		"event_id", env.EventID, "order_id", req.OrderID, "kind", req.Kind)

	d := c.notifier.Send(ctx, req)
	if d.Success {
		return nil
	}
	if notification.IsPermanent(d.Err) {
		return nil
	}
	return fmt.Errorf("deliver notification for order %s: %w", req.OrderID, d.Err)
}
