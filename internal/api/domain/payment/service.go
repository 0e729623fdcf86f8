package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/domain/order"
	"PaymentWebhooks/pkg/metrics"
)

const auditTimeout = 5 * time.Second

// Result describes what Process did with one delivery.
type Result struct {
	Outcome        Outcome
	Resolved       bool
	Strategy       string
	OrderID        string
	PreviousStatus order.Status
	Status         order.Status
	Transitioned   bool
	Duplicate      bool
}

type Service struct {
	repo       order.Repo
	resolver   *Resolver
	dispatcher Dispatcher
	audit      AuditSink
	now        func() time.Time
}

type Option func(*Service)

func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo order.Repo, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = NewResolver(repo, s.now)
	return s
}

// TargetStatus is the status outcome moves an awaiting-payment order to.
func TargetStatus(outcome Outcome) (order.Status, bool) {
	switch outcome {
	case OutcomePaid:
		return order.StatusDocumentVerification, true
	case OutcomeExpired:
		return order.StatusPaymentExpired, true
	default:
		return "", false
	}
}

// Process resolves the order for ev, applies the status edge if the order is
// still awaiting payment and records the delivery. The customer is notified
// only when the status actually changed.
func (s *Service) Process(ctx context.Context, ev Event) (Result, error) {
	res := Result{Outcome: ev.Outcome}

	target, ok := TargetStatus(ev.Outcome)
	if !ok {
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultIgnored).Inc()
		return res, nil
	}

	resolution, err := s.resolver.Resolve(ctx, ev)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultFailed).Inc()
		return res, fmt.Errorf("resolve order: %w", err)
	}

	if !resolution.Found() {
		s.logUnresolved(ctx, ev)
		metrics.WebhookResolutionTotal.WithLabelValues(StrategyNone).Inc()
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultUnresolved).Inc()
		return res, nil
	}

	o := resolution.Order
	metrics.WebhookResolutionTotal.WithLabelValues(resolution.Strategy).Inc()
	res.Resolved = true
	res.Strategy = resolution.Strategy
	res.OrderID = o.ID
	res.PreviousStatus = o.Status
	res.Status = o.Status

	now := s.now().UTC()
	var recorded *order.WebhookEvent

	err = s.repo.InTransaction(ctx, func(tx order.TxRepo) error {
		if o.Status.IsAwaitingPayment() {
			applied, err := tx.UpdateStatus(ctx, order.StatusUpdate{
				OrderID:   o.ID,
				From:      order.AwaitingPayment,
				To:        target,
				UpdatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("update status: %w", err)
			}
			res.Transitioned = applied
		}

		stored, err := tx.CreateWebhookEvent(ctx, order.NewWebhookEvent{
			IdempotencyKey:  idempotencyKey(ev, o.ID),
			OrderID:         o.ID,
			Outcome:         string(ev.Outcome),
			ProviderEventID: ev.Payload.ID,
			Payload:         ev.Raw,
			CreatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("record webhook event: %w", err)
		}
		recorded = stored
		return nil
	})

	if errors.Is(err, order.ErrEventAlreadyStored) {
		slog.InfoContext(ctx, "Duplicate webhook delivery ignored",
			"order_id", o.ID, "outcome", ev.Outcome, "strategy", resolution.Strategy)
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultDuplicate).Inc()
		res.Transitioned = false
		res.Duplicate = true
		return res, nil
	}
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultFailed).Inc()
		return Result{Outcome: ev.Outcome}, fmt.Errorf("apply %s to order %s: %w", ev.Outcome, o.ID, err)
	}

	if res.Transitioned {
		res.Status = target
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultTransitioned).Inc()
		slog.InfoContext(ctx, "Order status updated from webhook",
			"order_id", o.ID, "from", o.Status, "to", target, "strategy", resolution.Strategy)
		s.dispatcher.Dispatch(ctx, notificationRequest(ev, o))
	} else {
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Outcome), metrics.ResultNoop).Inc()
		slog.InfoContext(ctx, "Order already past awaiting payment, status unchanged",
			"order_id", o.ID, "status", o.Status, "outcome", ev.Outcome)
	}

	s.mirror(ctx, recorded)

	return res, nil
}

func (s *Service) logUnresolved(ctx context.Context, ev Event) {
	attrs := []any{
		"outcome", ev.Outcome,
		"id", ev.Payload.ID,
		"external_id", ev.Payload.ExternalID,
		"invoice_id", ev.Payload.InvoiceID,
	}
	if ev.Outcome == OutcomePaid {
		slog.ErrorContext(ctx, "Payment confirmed but no order matched", attrs...)
		return
	}
	slog.WarnContext(ctx, "Expiry received but no order matched", attrs...)
}

func (s *Service) mirror(ctx context.Context, ev *order.WebhookEvent) {
	if s.audit == nil || ev == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.audit.Record(auditCtx, *ev); err != nil {
		slog.WarnContext(ctx, "Failed to mirror webhook event", "event_id", ev.ID, slog.Any("error", err))
	}
}

// idempotencyKey is <outcome>:<provider reference>, falling back to the order id.
func idempotencyKey(ev Event, orderID string) string {
	ref := ev.Payload.IdempotencyRef()
	if !order.UsableInvoiceID(ref) {
		ref = orderID
	}
	return string(ev.Outcome) + ":" + ref
}

func notificationRequest(ev Event, o *order.Order) notification.Request {
	req := notification.Request{
		OrderID:       o.ID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		ServiceName:   o.ServiceName,
		Language:      string(o.Language),
		Kind:          notification.KindExpired,
	}
	if ev.Outcome == OutcomePaid {
		req.Kind = notification.KindPaid
		amount := ev.Payload.SettledAmount()
		req.Paid = &notification.PaidDetail{
			Amount:   amount.Decimal,
			Currency: ev.Payload.Currency,
			Method:   ev.Payload.Method(),
			PaidAt:   ev.Payload.PaidTime(),
		}
	}
	return req
}
