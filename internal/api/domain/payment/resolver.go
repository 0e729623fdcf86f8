package payment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"PaymentWebhooks/internal/api/domain/order"
)

const (
	StrategyMetadataOrderID      = "metadata_order_id"
	StrategyExternalIDOrderToken = "external_id_order_token"
	StrategyExternalIDInvoice    = "external_id_invoice"
	StrategyPayloadInvoice       = "payload_invoice"
	StrategyInvoicePrefix        = "invoice_prefix"
	StrategyRecentPending        = "recent_pending"

	// StrategyNone labels deliveries no strategy matched.
	StrategyNone = "none"
)

const (
	invoicePrefixLength = 10
	recentPendingWindow = 24 * time.Hour
)

var (
	orderTokenPattern    = regexp.MustCompile(`^order-(.+)$`)
	invoiceExternalIDPat = regexp.MustCompile(`^INV-`)
)

// Strategy looks an order up from one payload field. Find returns nil, nil on a miss.
type Strategy struct {
	Name string
	Find func(ctx context.Context, p WebhookPayload) (*order.Order, error)
}

type Resolution struct {
	Order    *order.Order
	Strategy string
}

func (r Resolution) Found() bool {
	return r.Order != nil
}

// Resolver tries strategies in order; the first match with a valid order id wins.
type Resolver struct {
	shared     []Strategy
	expiryOnly []Strategy
}

func NewResolver(repo order.TxRepo, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		shared: []Strategy{
			{Name: StrategyMetadataOrderID, Find: byMetadataOrderID(repo)},
			{Name: StrategyExternalIDOrderToken, Find: byExternalIDOrderToken(repo)},
			{Name: StrategyExternalIDInvoice, Find: byExternalIDInvoice(repo)},
			{Name: StrategyPayloadInvoice, Find: byPayloadInvoice(repo)},
		},
		expiryOnly: []Strategy{
			{Name: StrategyInvoicePrefix, Find: byInvoicePrefix(repo)},
			{Name: StrategyRecentPending, Find: byRecentPending(repo, now)},
		},
	}
}

// Strategies returns the ordered list used for outcome.
func (r *Resolver) Strategies(outcome Outcome) []Strategy {
	switch outcome {
	case OutcomePaid:
		return r.shared
	case OutcomeExpired:
		return append(append([]Strategy(nil), r.shared...), r.expiryOnly...)
	default:
		return nil
	}
}

// Resolve returns a zero Resolution when nothing matched. Store errors abort the walk.
func (r *Resolver) Resolve(ctx context.Context, ev Event) (Resolution, error) {
	for _, s := range r.Strategies(ev.Outcome) {
		o, err := s.Find(ctx, ev.Payload)
		if err != nil {
			return Resolution{}, fmt.Errorf("strategy %s: %w", s.Name, err)
		}
		if o == nil {
			continue
		}
		if !order.ValidID(o.ID) {
			slog.WarnContext(ctx, "Skipping matched order with malformed id",
				"strategy", s.Name, "order_id_len", len(o.ID))
			continue
		}
		return Resolution{Order: o, Strategy: s.Name}, nil
	}
	return Resolution{}, nil
}

func byMetadataOrderID(repo order.TxRepo) func(context.Context, WebhookPayload) (*order.Order, error) {
	return func(ctx context.Context, p WebhookPayload) (*order.Order, error) {
		if !order.ValidID(p.OrderID) {
			return nil, nil
		}
		return repo.FindByID(ctx, p.OrderID)
	}
}

func byExternalIDOrderToken(repo order.TxRepo) func(context.Context, WebhookPayload) (*order.Order, error) {
	return func(ctx context.Context, p WebhookPayload) (*order.Order, error) {
		m := orderTokenPattern.FindStringSubmatch(p.ExternalID)
		if m == nil || !order.ValidID(m[1]) {
			return nil, nil
		}
		return repo.FindByID(ctx, m[1])
	}
}

func byExternalIDInvoice(repo order.TxRepo) func(context.Context, WebhookPayload) (*order.Order, error) {
	return func(ctx context.Context, p WebhookPayload) (*order.Order, error) {
		if !invoiceExternalIDPat.MatchString(p.ExternalID) || !order.UsableInvoiceID(p.ExternalID) {
			return nil, nil
		}
		return repo.FindOne(ctx, order.LookupQuery{InvoiceID: p.ExternalID})
	}
}

func byPayloadInvoice(repo order.TxRepo) func(context.Context, WebhookPayload) (*order.Order, error) {
	return func(ctx context.Context, p WebhookPayload) (*order.Order, error) {
		ref := p.Reference()
		if !order.UsableInvoiceID(ref) {
			return nil, nil
		}
		return repo.FindOne(ctx, order.LookupQuery{InvoiceID: ref})
	}
}

func byInvoicePrefix(repo order.TxRepo) func(context.Context, WebhookPayload) (*order.Order, error) {
	return func(ctx context.Context, p WebhookPayload) (*order.Order, error) {
		ref := p.PrefixSource()
		if !order.UsableInvoiceID(ref) {
			return nil, nil
		}
		prefix := ref
		if runes := []rune(ref); len(runes) > invoicePrefixLength {
			prefix = string(runes[:invoicePrefixLength])
		}
		return repo.FindOne(ctx, order.LookupQuery{InvoiceIDContains: prefix})
	}
}

func byRecentPending(repo order.TxRepo, now func() time.Time) func(context.Context, WebhookPayload) (*order.Order, error) {
	return func(ctx context.Context, _ WebhookPayload) (*order.Order, error) {
		since := now().Add(-recentPendingWindow)
		return repo.FindOne(ctx, order.LookupQuery{
			Statuses:     order.AwaitingPayment,
			CreatedAfter: &since,
		})
	}
}
