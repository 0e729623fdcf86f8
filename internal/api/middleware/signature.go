package middleware

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"PaymentWebhooks/pkg/correlation"

	"github.com/gin-gonic/gin"
)

// TokenVerifier checks a shared-secret token carried in a request header.
type TokenVerifier struct {
	header string
	secret string
}

// NewTokenVerifier reads the token from header. For the Authorization header
// the "Bearer " scheme prefix is stripped first.
func NewTokenVerifier(header, secret string) *TokenVerifier {
	return &TokenVerifier{header: header, secret: secret}
}

func (v *TokenVerifier) Header() string {
	return v.header
}

// Verify is false when either the header or the configured secret is missing.
func (v *TokenVerifier) Verify(h http.Header) bool {
	if v.secret == "" {
		return false
	}
	token := h.Get(v.header)
	if strings.EqualFold(v.header, "Authorization") {
		scheme, rest, ok := strings.Cut(token, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return false
		}
		token = strings.TrimSpace(rest)
	}
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(v.secret)) == 1
}

type SignaturePolicy string

const (
	PolicyEnforce SignaturePolicy = "enforce"
	PolicyWarn    SignaturePolicy = "warn"
)

// ParseSignaturePolicy returns the explicit policy, or enforce in production
// and warn elsewhere when raw is empty.
func ParseSignaturePolicy(raw string, production bool) (SignaturePolicy, error) {
	switch SignaturePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyEnforce:
		return PolicyEnforce, nil
	case PolicyWarn:
		return PolicyWarn, nil
	case "":
		if production {
			return PolicyEnforce, nil
		}
		return PolicyWarn, nil
	default:
		return "", fmt.Errorf("unknown signature policy %q", raw)
	}
}

func RequireSignature(v *TokenVerifier, policy SignaturePolicy, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v.Verify(c.Request.Header) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if policy == PolicyWarn {
			slog.WarnContext(ctx, "Request token invalid, continuing in warn mode",
				"path", c.FullPath(), "header", v.header, "correlation_id", correlation.FromContext(ctx))
			c.Next()
			return
		}

		slog.WarnContext(ctx, "Request rejected: invalid token",
			"path", c.FullPath(), "header", v.header, "client", ClientKey(c.Request))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
	}
}
