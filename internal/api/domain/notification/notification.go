// Package notification renders and sends the customer email that follows a
// payment outcome. Delivery failures are reported as values, never as errors
// that could fail the webhook request.
package notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPaid    Kind = "paid"
	KindExpired Kind = "expired"
)

type PaidDetail struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
	Method   string          `json:"method,omitempty"`
	PaidAt   time.Time       `json:"paid_at,omitempty"`
}

type Request struct {
	OrderID       string      `json:"order_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	ServiceName   string      `json:"service_name"`
	Language      string      `json:"language"`
	Kind          Kind        `json:"kind"`
	Paid          *PaidDetail `json:"paid,omitempty"`
}

type Delivery struct {
	Success   bool
	MessageID string
	Err       error
}

type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
}

type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type SendResult struct {
	MessageID string
}

// Sender is the outbound mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// MessageType tags a Request published on the notifications topic.
const MessageType = "notification.requested"
