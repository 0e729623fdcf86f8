package order

import (
	"fmt"
	"time"
)

// LookupQuery selects at most one order, newest first. Every non-zero field
// is an additional AND condition.
type LookupQuery struct {
	InvoiceID         string
	InvoiceIDContains string
	Statuses          []Status
	CreatedAfter      *time.Time
}

func (q LookupQuery) Validate() error {
	if q.InvoiceID == "" && q.InvoiceIDContains == "" && len(q.Statuses) == 0 && q.CreatedAfter == nil {
		return fmt.Errorf("%w: lookup without criteria", ErrInvalidQuery)
	}
	if len(q.InvoiceID) > MaxInvoiceIDLength || len(q.InvoiceIDContains) > MaxInvoiceIDLength {
		return fmt.Errorf("%w: invoice id too long", ErrInvalidQuery)
	}
	return nil
}

// StatusUpdate is applied only while the order is still in one of From.
type StatusUpdate struct {
	OrderID   string
	From      []Status
	To        Status
	UpdatedAt time.Time
}
