package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"PaymentWebhooks/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

type recordingDLQ struct {
	key, value []byte
	err        error
	calls      int
}

func (d *recordingDLQ) PublishToDLQ(ctx context.Context, key, value []byte, err error) error {
	d.calls++
	d.key, d.value, d.err = key, value, err
	return ctx.Err()
}

func TestWithRetry(t *testing.T) {
	testCases := []struct {
		name          string
		failures      int32
		handlerErr    error
		expectedCalls int32
		expectedErr   error
	}{
		{name: "succeeds first time", failures: 0, expectedCalls: 1},
		{name: "recovers after transient failures", failures: 2, handlerErr: errors.New("smtp 451"), expectedCalls: 3},
		{name: "gives up after max attempts", failures: 10, handlerErr: errors.New("smtp 451"), expectedCalls: 3, expectedErr: ErrMaxRetriesExceeded},
		{name: "does not retry permanent failures", failures: 10, handlerErr: fmt.Errorf("%w: no recipient", ErrPermanent), expectedCalls: 1, expectedErr: ErrPermanent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var calls atomic.Int32
			handler := WithRetry(func(ctx context.Context, key, value []byte) error {
				if calls.Add(1) <= tc.failures {
					return tc.handlerErr
				}
				return nil
			}, fastRetry)

			// when
			err := handler(context.Background(), []byte("k"), []byte("v"))

			// then
			assert.Equal(t, tc.expectedCalls, calls.Load())
			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := WithRetry(func(ctx context.Context, key, value []byte) error {
		cancel()
		return errors.New("boom")
	}, RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second})

	err := handler(ctx, nil, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithDLQ(t *testing.T) {
	t.Run("should publish failed message and swallow error", func(t *testing.T) {
		dlq := &recordingDLQ{}
		cause := errors.New("mail api down")
		handler := WithDLQ(func(ctx context.Context, key, value []byte) error { return cause }, dlq)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := handler(ctx, []byte("ord_1"), []byte(`{}`))

		require.NoError(t, err)
		assert.Equal(t, 1, dlq.calls)
		assert.Equal(t, "ord_1", string(dlq.key))
		assert.ErrorIs(t, dlq.err, cause)
	})

	t.Run("should not touch DLQ on success", func(t *testing.T) {
		dlq := &recordingDLQ{}
		handler := WithDLQ(func(ctx context.Context, key, value []byte) error { return nil }, dlq)

		require.NoError(t, handler(context.Background(), nil, nil))
		assert.Zero(t, dlq.calls)
	})
}

func TestWithMetrics(t *testing.T) {
	topic, group := "metrics-test-topic", "metrics-test-group"
	ok := WithMetrics(topic, group, func(ctx context.Context, key, value []byte) error { return nil })
	failing := WithMetrics(topic, group, func(ctx context.Context, key, value []byte) error { return errors.New("x") })

	require.NoError(t, ok(context.Background(), nil, nil))
	require.Error(t, failing(context.Background(), nil, nil))
	require.Error(t, failing(context.Background(), nil, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues(topic, group, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.KafkaMessagesProcessed.WithLabelValues(topic, group, "error")))
}
