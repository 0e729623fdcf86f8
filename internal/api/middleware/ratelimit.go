package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"PaymentWebhooks/pkg/metrics"
	"PaymentWebhooks/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// ClientKey identifies the caller: the first X-Forwarded-For entry, then
// X-Real-IP, then the connection's remote address.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit counts requests per client under route. Store failures let the
// request through.
func RateLimit(l *ratelimit.Limiter, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		client := ClientKey(c.Request)

		d, err := l.Allow(ctx, route+":"+client)
		if err != nil {
			slog.ErrorContext(ctx, "Rate limiter unavailable, allowing request",
				"route", route, "client", client, slog.Any("error", err))
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retryAfter := d.RetryAfter(l.Now())
			h.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			metrics.RateLimitRejectionsTotal.WithLabelValues(route).Inc()
			slog.WarnContext(ctx, "Rate limit exceeded", "route", route, "client", client)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}

		c.Next()
	}
}
