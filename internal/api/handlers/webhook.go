package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"PaymentWebhooks/internal/api/domain/payment"

	"github.com/gin-gonic/gin"
)

const DefaultMaxBodyBytes int64 = 1 << 20

type webhookProcessor interface {
	Process(ctx context.Context, ev payment.Event) (payment.Result, error)
}

type WebhookHandler struct {
	service      webhookProcessor
	maxBodyBytes int64
	production   bool
}

func NewWebhookHandler(s webhookProcessor, maxBodyBytes int64, production bool) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &WebhookHandler{service: s, maxBodyBytes: maxBodyBytes, production: production}
}

// HandleInvoice processes one provider delivery.
// POST /webhooks/invoices
func (h *WebhookHandler) HandleInvoice(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := h.readBody(c)
	if err != nil {
		if errors.Is(err, payment.ErrPayloadTooLarge) {
			slog.WarnContext(ctx, "Webhook body too large", "content_length", c.Request.ContentLength, "limit", h.maxBodyBytes)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON payload"})
		return
	}

	ev, err := payment.Normalize(raw)
	if err != nil {
		slog.WarnContext(ctx, "Malformed webhook payload", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON payload"})
		return
	}

	res, err := h.service.Process(ctx, ev)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to process webhook",
			"outcome", ev.Outcome, "reference", ev.Payload.Reference(), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": h.internalMessage(err)})
		return
	}

	slog.DebugContext(ctx, "Webhook processed",
		"outcome", res.Outcome,
		"resolved", res.Resolved,
		"strategy", res.Strategy,
		"order_id", res.OrderID,
		"transitioned", res.Transitioned,
		"duplicate", res.Duplicate)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, error) {
	if c.Request.ContentLength > h.maxBodyBytes {
		return nil, payment.ErrPayloadTooLarge
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > h.maxBodyBytes {
		return nil, payment.ErrPayloadTooLarge
	}
	return raw, nil
}

func (h *WebhookHandler) internalMessage(err error) string {
	if h.production {
		return "Internal server error"
	}
	return err.Error()
}
