package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"PaymentWebhooks/internal/api/domain/order"
	"PaymentWebhooks/internal/api/domain/payment"

	"github.com/opensearch-project/opensearch-go"
)

var _ payment.AuditSink = (*AuditSink)(nil)

// AuditSink mirrors stored webhook events into an OpenSearch index for
// operators. Postgres stays the source of truth.
type AuditSink struct {
	client *opensearch.Client
	index  string
}

func NewAuditSink(ctx context.Context, urls []string, index string) (*AuditSink, error) {
	if len(urls) == 0 {
		return nil, errors.New("no OpenSearch addresses configured")
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: urls,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}

	sink := &AuditSink{client: client, index: index}
	if err := sink.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *AuditSink) ensureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("indices.exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"event_id":          map[string]any{"type": "keyword"},
				"idempotency_key":   map[string]any{"type": "keyword"},
				"order_id":          map[string]any{"type": "keyword"},
				"outcome":           map[string]any{"type": "keyword"},
				"provider_event_id": map[string]any{"type": "keyword"},
				"created_at":        map[string]any{"type": "date"},
				"payload":           map[string]any{"type": "object", "enabled": false},
			},
		},
	}
	buf, _ := json.Marshal(body)
	cr, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(bytes.NewReader(buf)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("indices.create: %w", err)
	}
	defer cr.Body.Close()
	// A concurrent replica may have created it first.
	if cr.IsError() && cr.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("indices.create error: %s", cr.String())
	}
	return nil
}

type auditDoc struct {
	EventID         string          `json:"event_id"`
	IdempotencyKey  string          `json:"idempotency_key"`
	OrderID         string          `json:"order_id"`
	Outcome         string          `json:"outcome"`
	ProviderEventID string          `json:"provider_event_id,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Record indexes ev under its own id, so repeating it overwrites the same document.
func (s *AuditSink) Record(ctx context.Context, ev order.WebhookEvent) error {
	doc := auditDoc{
		EventID:         ev.ID,
		IdempotencyKey:  ev.IdempotencyKey,
		OrderID:         ev.OrderID,
		Outcome:         ev.Outcome,
		ProviderEventID: ev.ProviderEventID,
		Payload:         ev.Payload,
		CreatedAt:       ev.CreatedAt.UTC(),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal audit doc: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(payload),
		s.client.Index.WithDocumentID(ev.ID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.String())
	}
	return nil
}
