package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"PaymentWebhooks/internal/api/domain/order"

	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	log order.EventLog
}

func NewEventsHandler(log order.EventLog) *EventsHandler {
	return &EventsHandler{log: log}
}

// GetEvents lists recorded webhook deliveries, newest first unless sort_asc is set.
// GET /webhooks/events?order_ids=a,b&outcomes=paid&limit=50&cursor=...
func (h *EventsHandler) GetEvents(c *gin.Context) {
	var q order.EventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid query: " + err.Error()})
		return
	}
	q.OrderIDs = splitCommaValues(q.OrderIDs)
	q.Outcomes = splitCommaValues(q.Outcomes)

	page, err := h.log.GetWebhookEvents(c.Request.Context(), q)
	if err != nil {
		h.handleError(c.Request.Context(), c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *EventsHandler) handleError(ctx context.Context, c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		slog.ErrorContext(ctx, "Failed to list webhook events", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

// splitCommaValues accepts both ?k=a,b and ?k=a&k=b.
func splitCommaValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
