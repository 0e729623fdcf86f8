package payment

import "errors"

var (
	// ErrMalformedPayload is returned for bodies that are not a JSON object.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrPayloadTooLarge is returned when the body exceeds the configured limit.
	ErrPayloadTooLarge = errors.New("webhook payload too large")
)
