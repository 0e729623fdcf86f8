package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/messaging"
	"PaymentWebhooks/pkg/correlation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	requests []notification.Request
	ctxErrs  []error
	delay    time.Duration
}

func (n *recordingNotifier) Send(ctx context.Context, req notification.Request) notification.Delivery {
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return notification.Delivery{Success: true}
}

type mockPublisher struct {
	mu        sync.Mutex
	envelopes []messaging.Envelope
	err       error
}

func (p *mockPublisher) Publish(_ context.Context, env messaging.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return p.err
}

func (p *mockPublisher) Close() error { return nil }

func TestInline_DetachesFromRequestContext(t *testing.T) {
	// given
	notifier := &recordingNotifier{delay: 10 * time.Millisecond}
	d := NewInline(notifier, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	// when
	d.Dispatch(ctx, notification.Request{OrderID: "ord_1"})
	cancel()
	d.Wait()

	// then
	require.Len(t, notifier.requests, 1)
	assert.Equal(t, "ord_1", notifier.requests[0].OrderID)
	assert.NoError(t, notifier.ctxErrs[0])
}

func TestKafka_Dispatch(t *testing.T) {
	req := notification.Request{OrderID: "ord_1", Kind: notification.KindPaid, CustomerEmail: "siti@example.com"}

	t.Run("publishes envelope keyed by order", func(t *testing.T) {
		pub := &mockPublisher{}
		fallback := &recordingNotifier{}
		d := NewKafka(pub, NewInline(fallback, time.Second))

		d.Dispatch(correlation.WithID(context.Background(), "corr-7"), req)
		d.Wait()

		require.Len(t, pub.envelopes, 1)
		env := pub.envelopes[0]
		assert.Equal(t, "ord_1", env.Key)
		assert.Equal(t, "corr-7", env.CorrelationID)
		assert.Equal(t, notification.MessageType, env.Type)
		var decoded notification.Request
		require.NoError(t, json.Unmarshal(env.Payload, &decoded))
		assert.Equal(t, req, decoded)
		assert.Empty(t, fallback.requests)
	})

	t.Run("falls back to inline send when broker is down", func(t *testing.T) {
		pub := &mockPublisher{err: errors.New("leader not available")}
		fallback := &recordingNotifier{}
		d := NewKafka(pub, NewInline(fallback, time.Second))

		d.Dispatch(context.Background(), req)
		d.Wait()

		require.Len(t, fallback.requests, 1)
		assert.Equal(t, req, fallback.requests[0])
	})
}
