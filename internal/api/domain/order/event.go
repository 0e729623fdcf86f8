package order

import (
	"encoding/json"
	"time"
)

type NewWebhookEvent struct {
	IdempotencyKey  string          `json:"idempotency_key"`
	OrderID         string          `json:"order_id"`
	Outcome         string          `json:"outcome"`
	ProviderEventID string          `json:"provider_event_id,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type WebhookEvent struct {
	ID string `json:"id"`
	NewWebhookEvent
}

type EventQuery struct {
	OrderIDs []string `json:"order_ids" url:"order_ids,comma,omitempty" form:"order_ids"`
	Outcomes []string `json:"outcomes" url:"outcomes,comma,omitempty" form:"outcomes"`

	Limit   int    `json:"limit" url:"limit,omitempty" form:"limit"`
	Cursor  string `json:"cursor" url:"cursor,omitempty" form:"cursor"`
	SortAsc bool   `json:"sort_asc" url:"sort_asc,omitempty" form:"sort_asc"`
}

const (
	DefaultEventPageSize = 50
	MaxEventPageSize     = 500
)

// Normalize clamps Limit into [1, MaxEventPageSize].
func (q EventQuery) Normalize() EventQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultEventPageSize
	}
	if q.Limit > MaxEventPageSize {
		q.Limit = MaxEventPageSize
	}
	return q
}

type EventPage struct {
	Items      []WebhookEvent `json:"items"`
	NextCursor string         `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
}
