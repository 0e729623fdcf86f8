package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeExpired   Outcome = "expired"
	OutcomeUnhandled Outcome = "unhandled"
)

const (
	providerStatusPaid    = "PAID"
	providerStatusExpired = "EXPIRED"
	providerEventPaid     = "invoice.paid"
	providerEventExpired  = "invoice.expired"
)

// WebhookPayload is the provider's invoice notification after normalization.
// Every field is optional.
type WebhookPayload struct {
	ID             string              `json:"id,omitempty"`
	Status         string              `json:"status,omitempty"`
	Event          string              `json:"event,omitempty"`
	ExternalID     string              `json:"external_id,omitempty"`
	InvoiceID      string              `json:"invoice_id,omitempty"`
	Amount         decimal.NullDecimal `json:"amount"`
	PaidAmount     decimal.NullDecimal `json:"paid_amount"`
	Currency       string              `json:"currency,omitempty"`
	PaymentMethod  string              `json:"payment_method,omitempty"`
	PaymentChannel string              `json:"payment_channel,omitempty"`
	PaidAt         string              `json:"paid_at,omitempty"`
	OrderID        string              `json:"metadata_order_id,omitempty"`
}

// Event is a classified delivery. Raw keeps the original body for the event log.
type Event struct {
	Outcome Outcome
	Payload WebhookPayload
	Raw     json.RawMessage
}

// Reference identifies the invoice the provider is talking about: id, else invoice_id.
func (p WebhookPayload) Reference() string {
	return firstNonEmpty(p.ID, p.InvoiceID)
}

// PrefixSource is the identifier partial invoice matching starts from.
func (p WebhookPayload) PrefixSource() string {
	return firstNonEmpty(p.ID, p.ExternalID, p.InvoiceID)
}

// IdempotencyRef is the provider-side identity of a delivery.
func (p WebhookPayload) IdempotencyRef() string {
	return firstNonEmpty(p.ID, p.InvoiceID, p.ExternalID)
}

// SettledAmount prefers paid_amount over amount.
func (p WebhookPayload) SettledAmount() decimal.NullDecimal {
	if p.PaidAmount.Valid {
		return p.PaidAmount
	}
	return p.Amount
}

func (p WebhookPayload) Method() string {
	return firstNonEmpty(p.PaymentMethod, p.PaymentChannel)
}

// PaidTime parses paid_at as RFC 3339; zero when absent or unparseable.
func (p WebhookPayload) PaidTime() time.Time {
	t, err := time.Parse(time.RFC3339, p.PaidAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Normalize decodes a raw webhook body and classifies it.
func Normalize(raw []byte) (Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, ErrMalformedPayload
	}

	if !utf8.Valid(trimmed) {
		return Event{}, fmt.Errorf("%w: invalid utf-8", ErrMalformedPayload)
	}

	stored, err := storableRaw(trimmed)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var top wirePayload
	if err := json.Unmarshal(stored, &top); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if nested := bytes.TrimSpace(top.Data); len(nested) > 0 && nested[0] == '{' {
		var inner wirePayload
		if err := json.Unmarshal(nested, &inner); err == nil {
			top.fillFrom(inner)
		}
	}

	payload := top.toPayload()
	return Event{
		Outcome: classify(payload),
		Payload: payload,
		Raw:     stored,
	}, nil
}

var escapedNUL = []byte(`\u0000`)

// storableRaw returns the body as it is kept in the event log. Postgres jsonb
// rejects NUL characters, so bodies carrying them are re-encoded without.
func storableRaw(body []byte) (json.RawMessage, error) {
	if !bytes.Contains(body, escapedNUL) {
		return json.RawMessage(body), nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stripNUL(v)); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}

func stripNUL(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, "\x00", "")
	case []any:
		for i := range t {
			t[i] = stripNUL(t[i])
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[strings.ReplaceAll(k, "\x00", "")] = stripNUL(val)
		}
		return out
	default:
		return v
	}
}

func classify(p WebhookPayload) Outcome {
	if p.ID != "" && p.Status != "" {
		switch p.Status {
		case providerStatusPaid:
			return OutcomePaid
		case providerStatusExpired:
			return OutcomeExpired
		default:
			return OutcomeUnhandled
		}
	}

	switch p.Event {
	case providerEventPaid:
		return OutcomePaid
	case providerEventExpired:
		return OutcomeExpired
	default:
		return OutcomeUnhandled
	}
}

type wirePayload struct {
	ID             flexString      `json:"id"`
	Status         flexString      `json:"status"`
	Event          flexString      `json:"event"`
	ExternalID     flexString      `json:"external_id"`
	InvoiceID      flexString      `json:"invoice_id"`
	Amount         flexDecimal     `json:"amount"`
	PaidAmount     flexDecimal     `json:"paid_amount"`
	Currency       flexString      `json:"currency"`
	PaymentMethod  flexString      `json:"payment_method"`
	PaymentChannel flexString      `json:"payment_channel"`
	PaidAt         flexString      `json:"paid_at"`
	Metadata       json.RawMessage `json:"metadata"`
	Data           json.RawMessage `json:"data"`
}

type wireMetadata struct {
	OrderID flexString `json:"order_id"`
}

func (w *wirePayload) orderID() string {
	var m wireMetadata
	if err := json.Unmarshal(w.Metadata, &m); err != nil {
		return ""
	}
	return string(m.OrderID)
}

// fillFrom copies fields of the nested data object into fields left empty at the top level.
func (w *wirePayload) fillFrom(inner wirePayload) {
	fill := func(dst *flexString, src flexString) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&w.ID, inner.ID)
	fill(&w.Status, inner.Status)
	fill(&w.Event, inner.Event)
	fill(&w.ExternalID, inner.ExternalID)
	fill(&w.InvoiceID, inner.InvoiceID)
	fill(&w.Currency, inner.Currency)
	fill(&w.PaymentMethod, inner.PaymentMethod)
	fill(&w.PaymentChannel, inner.PaymentChannel)
	fill(&w.PaidAt, inner.PaidAt)
	if !w.Amount.Valid {
		w.Amount = inner.Amount
	}
	if !w.PaidAmount.Valid {
		w.PaidAmount = inner.PaidAmount
	}
	if w.orderID() == "" && inner.orderID() != "" {
		w.Metadata = inner.Metadata
	}
}

func (w *wirePayload) toPayload() WebhookPayload {
	return WebhookPayload{
		ID:             string(w.ID),
		Status:         string(w.Status),
		Event:          string(w.Event),
		ExternalID:     string(w.ExternalID),
		InvoiceID:      string(w.InvoiceID),
		Amount:         decimal.NullDecimal(w.Amount),
		PaidAmount:     decimal.NullDecimal(w.PaidAmount),
		Currency:       string(w.Currency),
		PaymentMethod:  string(w.PaymentMethod),
		PaymentChannel: string(w.PaymentChannel),
		PaidAt:         string(w.PaidAt),
		OrderID:        w.orderID(),
	}
}

// flexString accepts a JSON string or number. Other JSON types decode to "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*f = flexString(b)
	default:
		*f = ""
	}
	return nil
}

// flexDecimal accepts a JSON number or numeric string; anything else is treated as absent.
type flexDecimal decimal.NullDecimal

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' {
		*f = flexDecimal{}
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		*f = flexDecimal{}
		return nil
	}
	*f = flexDecimal{Decimal: d, Valid: true}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
