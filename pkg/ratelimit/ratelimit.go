// Package ratelimit implements fixed-window request counting keyed by client.
//
// A window opens on the first hit for a key and lasts Window. Hits inside an
// open window are counted until Max is reached; further hits are denied without
// touching the counter. Once the window has elapsed the next hit opens a new one.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid rate limit config")

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	left := d.ResetAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return left.Truncate(time.Second) + time.Second
}

// Store performs one atomic check-and-increment for key.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (Decision, error)
}

type Config struct {
	Window time.Duration
	Max    int
}

func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	if c.Max < 1 {
		return fmt.Errorf("%w: max must be at least 1, got %d", ErrInvalidConfig, c.Max)
	}
	return nil
}

type Limiter struct {
	store Store
	cfg   Config
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(store Store, cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Limiter{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := l.store.Hit(ctx, key, l.cfg.Window, l.cfg.Max, l.now())
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}
	return d, nil
}

func (l *Limiter) Config() Config {
	return l.cfg
}

func (l *Limiter) Now() time.Time {
	return l.now()
}
