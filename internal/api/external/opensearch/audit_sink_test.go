package opensearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"PaymentWebhooks/internal/api/domain/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	mu       sync.Mutex
	version  string
	exists   bool
	created  bool
	docs     map[string]map[string]any
	failDocs bool
}

func (c *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		_, _ = fmt.Fprintf(w, `{"cluster_name":"audit","version":{"distribution":"opensearch","number":%q},"tagline":"The OpenSearch Project: https://opensearch.org/"}`, c.version)
	case r.Method == http.MethodHead && r.URL.Path == "/webhook-events":
		if c.exists {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut && r.URL.Path == "/webhook-events":
		c.created, c.exists = true, true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodPut && len(r.URL.Path) > len("/webhook-events/_doc/"):
		if c.failDocs {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"shard failure"}`)
			return
		}
		id := r.URL.Path[len("/webhook-events/_doc/"):]
		var doc map[string]any
		_ = json.NewDecoder(r.Body).Decode(&doc)
		c.docs[id] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newCluster(t *testing.T, exists bool) (*fakeCluster, string) {
	t.Helper()
	c := &fakeCluster{version: "2.11.0", exists: exists, docs: map[string]map[string]any{}}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return c, srv.URL
}

func TestNewAuditSink(t *testing.T) {
	t.Run("creates missing index", func(t *testing.T) {
		cluster, url := newCluster(t, false)

		_, err := NewAuditSink(context.Background(), []string{url}, "webhook-events")

		require.NoError(t, err)
		assert.True(t, cluster.created)
	})

	t.Run("reuses existing index", func(t *testing.T) {
		cluster, url := newCluster(t, true)

		_, err := NewAuditSink(context.Background(), []string{url}, "webhook-events")

		require.NoError(t, err)
		assert.False(t, cluster.created)
	})

	t.Run("rejects a cluster with an unreadable version", func(t *testing.T) {
		cluster, url := newCluster(t, true)
		cluster.version = "unknown"

		_, err := NewAuditSink(context.Background(), []string{url}, "webhook-events")

		assert.ErrorContains(t, err, "indices.exists")
	})

	t.Run("requires addresses", func(t *testing.T) {
		_, err := NewAuditSink(context.Background(), nil, "webhook-events")

		assert.Error(t, err)
	})
}

func TestAuditSink_Record(t *testing.T) {
	ev := order.WebhookEvent{
		ID: "0b6d8a9e-6f0e-4c55-9e43-5b8f0a2b1c11",
		NewWebhookEvent: order.NewWebhookEvent{
			IdempotencyKey:  "paid:inv_1",
			OrderID:         "ord_1",
			Outcome:         "paid",
			ProviderEventID: "inv_1",
			Payload:         json.RawMessage(`{"id":"inv_1","status":"PAID"}`),
			CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	t.Run("indexes event under its id", func(t *testing.T) {
		cluster, url := newCluster(t, true)
		sink, err := NewAuditSink(context.Background(), []string{url}, "webhook-events")
		require.NoError(t, err)

		require.NoError(t, sink.Record(context.Background(), ev))

		cluster.mu.Lock()
		defer cluster.mu.Unlock()
		doc, ok := cluster.docs[ev.ID]
		require.True(t, ok)
		assert.Equal(t, ev.ID, doc["event_id"])
		assert.Equal(t, "ord_1", doc["order_id"])
		assert.Equal(t, "paid:inv_1", doc["idempotency_key"])
		assert.Equal(t, "2024-05-01T12:00:00Z", doc["created_at"])
	})

	t.Run("reports cluster errors", func(t *testing.T) {
		cluster, url := newCluster(t, true)
		sink, err := NewAuditSink(context.Background(), []string{url}, "webhook-events")
		require.NoError(t, err)
		cluster.mu.Lock()
		cluster.failDocs = true
		cluster.mu.Unlock()

		err = sink.Record(context.Background(), ev)

		assert.ErrorContains(t, err, "index error")
	})
}
