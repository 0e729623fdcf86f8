package notification

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"PaymentWebhooks/pkg/metrics"
)

// Notifier turns a Request into a Message and hands it to the Sender.
type Notifier struct {
	sender       Sender
	translations Translations
	from         string
	logoPath     string
}

type Option func(*Notifier)

func WithFrom(from string) Option {
	return func(n *Notifier) {
		n.from = from
	}
}

// WithLogo attaches the file at path inline when it exists.
func WithLogo(path string) Option {
	return func(n *Notifier) {
		n.logoPath = path
	}
}

func WithTranslations(t Translations) Option {
	return func(n *Notifier) {
		n.translations = t
	}
}

// NewNotifier accepts a nil sender; every Send then reports ErrNotConfigured.
func NewNotifier(sender Sender, opts ...Option) *Notifier {
	n := &Notifier{
		sender:       sender,
		translations: DefaultTranslations(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Send(ctx context.Context, req Request) Delivery {
	d := n.send(ctx, req)
	if d.Success {
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		slog.InfoContext(ctx, "Customer notification sent",
			"order_id", req.OrderID, "kind", req.Kind, "message_id", d.MessageID)
		return d
	}

	result := "failed"
	if errors.Is(d.Err, ErrNotConfigured) || errors.Is(d.Err, ErrMissingRecipient) {
		result = "skipped"
	}
	metrics.NotificationsTotal.WithLabelValues(result).Inc()
	slog.WarnContext(ctx, "Customer notification not delivered",
		"order_id", req.OrderID, "kind", req.Kind, slog.Any("error", d.Err))
	return d
}

func (n *Notifier) send(ctx context.Context, req Request) Delivery {
	if n.sender == nil {
		return Delivery{Err: ErrNotConfigured}
	}
	if req.CustomerEmail == "" {
		return Delivery{Err: ErrMissingRecipient}
	}

	logo := n.loadLogo(ctx)

	subject, body, err := Render(req, n.translations.Get(req.Language), logo != nil)
	if err != nil {
		return Delivery{Err: err}
	}

	msg := Message{
		From:    n.from,
		To:      req.CustomerEmail,
		Subject: subject,
		HTML:    body,
	}
	if logo != nil {
		msg.Attachments = append(msg.Attachments, *logo)
	}

	res, err := n.sender.Send(ctx, msg)
	if err != nil {
		return Delivery{Err: fmt.Errorf("send mail: %w", err)}
	}
	return Delivery{Success: true, MessageID: res.MessageID}
}

func (n *Notifier) loadLogo(ctx context.Context) *Attachment {
	if n.logoPath == "" {
		return nil
	}
	content, err := os.ReadFile(n.logoPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.DebugContext(ctx, "Logo not readable, sending without it", "path", n.logoPath, slog.Any("error", err))
		}
		return nil
	}
	return &Attachment{
		Filename:    filepath.Base(n.logoPath),
		ContentType: http.DetectContentType(content),
		ContentID:   logoContentID,
		Content:     content,
	}
}
