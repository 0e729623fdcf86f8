package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(GinMiddleware())
	engine.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/orders/:id", http.MethodGet, "418"))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/2", nil))

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/orders/:id", http.MethodGet, "418"))
	assert.Equal(t, before+2, after)
}

func TestRegistryGathers(t *testing.T) {
	WebhookEventsTotal.WithLabelValues("paid", ResultTransitioned).Inc()

	families, err := Registry.Gather()

	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "webhook_events_total")
}
