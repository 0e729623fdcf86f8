// Package dispatch hands customer notifications off the request goroutine.
package dispatch

import (
	"context"
	"sync"
	"time"

	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/domain/payment"
)

const defaultTimeout = 15 * time.Second

type notificationSender interface {
	Send(ctx context.Context, req notification.Request) notification.Delivery
}

// Inline sends each notification on its own goroutine. The send outlives the
// request context but is bounded by timeout.
type Inline struct {
	notifier notificationSender
	timeout  time.Duration
	wg       sync.WaitGroup
}

var _ payment.Dispatcher = (*Inline)(nil)

func NewInline(n notificationSender, timeout time.Duration) *Inline {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Inline{notifier: n, timeout: timeout}
}

func (d *Inline) Dispatch(ctx context.Context, req notification.Request) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.notifier.Send(sendCtx, req)
	}()
}

// Wait blocks until every dispatched send has finished.
func (d *Inline) Wait() {
	d.wg.Wait()
}
