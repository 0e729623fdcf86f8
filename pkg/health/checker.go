// Package health exposes liveness and readiness probes backed by pluggable checkers.
package health

import (
	"context"
	"time"
)

const DefaultTimeout = 3 * time.Second

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}
