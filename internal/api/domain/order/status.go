package order

import "fmt"

type Status string

const (
	StatusPendingPayment       Status = "pending_payment"
	StatusPending              Status = "pending"
	StatusDocumentVerification Status = "document_verification"
	StatusCompleted            Status = "completed"
	StatusPaymentExpired       Status = "payment_expired"
)

// AwaitingPayment lists the statuses a payment outcome may move an order out of.
var AwaitingPayment = []Status{StatusPendingPayment, StatusPending}

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPendingPayment, StatusPending, StatusDocumentVerification, StatusCompleted, StatusPaymentExpired:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) IsAwaitingPayment() bool {
	return s == StatusPendingPayment || s == StatusPending
}
