package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"PaymentWebhooks/pkg/correlation"

	"github.com/gin-gonic/gin"
)

const maxLoggedBody = 8 * 1024

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseBodyWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - r.body.Len(); room > 0 {
		if len(b) > room {
			r.body.Write(b[:room])
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// CorrelationMiddleware takes X-Correlation-ID from the request or generates one,
// stores it in the request context and echoes it back.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlation.HeaderName)
		if id == "" {
			id = correlation.NewID()
		}

		c.Request = c.Request.WithContext(correlation.WithID(c.Request.Context(), id))
		c.Header(correlation.HeaderName, id)

		c.Next()
	}
}

// GinRequestLogger logs one line per request. Bodies are captured only up to
// maxLoggedBody, and request bodies only when Content-Length fits in that bound,
// so oversized uploads are never buffered here.
func GinRequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var requestBody []byte
		if c.Request.Body != nil && c.Request.ContentLength >= 0 && c.Request.ContentLength <= maxLoggedBody {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody))
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		writer := &responseBodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		slog.LogAttrs(c.Request.Context(), level, "HTTP Request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("query", c.Request.URL.RawQuery),
			slog.Int("status", status),
			slog.String("client_ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
			bodyAttr("request_body", requestBody),
			bodyAttr("response_body", writer.body.Bytes()),
		)
	}
}

func bodyAttr(key string, b []byte) slog.Attr {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return slog.Any(key, nil)
	}
	if json.Valid(trimmed) {
		return slog.Any(key, json.RawMessage(trimmed))
	}
	return slog.String(key, string(trimmed))
}
