package payment

import (
	"context"

	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/domain/order"
)

//go:generate mockgen -source ports.go -destination mock_ports.go -package payment

// Dispatcher hands a notification off without blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notification.Request)
}

// AuditSink mirrors recorded webhook events to secondary storage.
type AuditSink interface {
	Record(ctx context.Context, ev order.WebhookEvent) error
}
