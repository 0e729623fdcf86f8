package order

import "context"

//go:generate mockgen -source repo.go -destination mock_repo.go -package order

type Repo interface {
	TxRepo
	EventLog
	InTransaction(ctx context.Context, fn func(repo TxRepo) error) error
}

type TxRepo interface {
	// FindByID returns nil, nil when no order has that id.
	FindByID(ctx context.Context, id string) (*Order, error)
	// FindOne returns the newest order matching q, or nil, nil.
	FindOne(ctx context.Context, q LookupQuery) (*Order, error)
	// UpdateStatus reports whether a row was changed.
	UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)
	// CreateWebhookEvent returns ErrEventAlreadyStored on a repeated idempotency key.
	CreateWebhookEvent(ctx context.Context, e NewWebhookEvent) (*WebhookEvent, error)
}

type EventLog interface {
	GetWebhookEvents(ctx context.Context, q EventQuery) (EventPage, error)
}
