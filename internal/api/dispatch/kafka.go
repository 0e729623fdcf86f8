package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/domain/payment"
	"PaymentWebhooks/internal/api/messaging"
	"PaymentWebhooks/pkg/correlation"
)

const publishTimeout = 5 * time.Second

// Kafka publishes notification requests for the notifications consumer. When
// the broker is unreachable it falls back to sending inline.
type Kafka struct {
	publisher messaging.Publisher
	fallback  *Inline
	wg        sync.WaitGroup
}

var _ payment.Dispatcher = (*Kafka)(nil)

func NewKafka(publisher messaging.Publisher, fallback *Inline) *Kafka {
	return &Kafka{publisher: publisher, fallback: fallback}
}

func (d *Kafka) Dispatch(ctx context.Context, req notification.Request) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		err := d.publish(pubCtx, req)
		if err == nil {
			return
		}
		slog.ErrorContext(ctx, "Failed to publish notification request",
			"order_id", req.OrderID, "kind", req.Kind, slog.Any("error", err))
		if d.fallback != nil {
			d.fallback.Dispatch(ctx, req)
		}
	}()
}

func (d *Kafka) publish(ctx context.Context, req notification.Request) error {
	env, err := messaging.NewEnvelope(req.OrderID, notification.MessageType, req)
	if err != nil {
		return err
	}
	env.CorrelationID = correlation.FromContext(ctx)
	return d.publisher.Publish(ctx, env)
}

func (d *Kafka) Wait() {
	d.wg.Wait()
	if d.fallback != nil {
		d.fallback.Wait()
	}
}
