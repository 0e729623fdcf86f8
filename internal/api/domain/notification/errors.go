package notification

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured    = errors.New("mail sender not configured")
	ErrMissingRecipient = errors.New("customer email missing")
	ErrUnknownKind      = errors.New("unknown notification kind")

	// ErrRejected wraps a non-2xx answer from the mail provider.
	ErrRejected = errors.New("mail provider rejected message")

	// ErrRefused is a rejection the provider will repeat for the same message
	// (4xx other than timeout and throttling).
	ErrRefused = fmt.Errorf("%w: refused", ErrRejected)
)

// IsPermanent reports whether retrying the same request cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrMissingRecipient) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrRefused)
}
