package order

import "errors"

var (
	// ErrInvalidStatus is returned for status values the store does not know.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidQuery is returned when a lookup or event query cannot be executed.
	ErrInvalidQuery = errors.New("invalid order query")

	// ErrEventAlreadyStored is returned when a webhook event with the same idempotency key exists.
	ErrEventAlreadyStored = errors.New("event already stored")
)
