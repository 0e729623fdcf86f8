package api

import (
	"net/http"

	"PaymentWebhooks/internal/api/handlers"
	"PaymentWebhooks/pkg/health"
	"PaymentWebhooks/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Guards are the middleware chains placed in front of each route group.
type Guards struct {
	CORS    gin.HandlerFunc
	Webhook []gin.HandlerFunc
	Admin   []gin.HandlerFunc
}

type Router struct {
	webhook        *handlers.WebhookHandler
	events         *handlers.EventsHandler
	healthRegistry *health.Registry
	guards         Guards
}

func NewRouter(
	webhook *handlers.WebhookHandler,
	events *handlers.EventsHandler,
	healthRegistry *health.Registry,
	guards Guards,
) *Router {
	return &Router{
		webhook:        webhook,
		events:         events,
		healthRegistry: healthRegistry,
		guards:         guards,
	}
}

func (r *Router) SetUp(engine *gin.Engine) {
	engine.GET("/health/live", health.LivenessHandler())
	engine.GET("/health/ready", health.ReadinessHandler(r.healthRegistry, health.DefaultTimeout))
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	webhooks := engine.Group("/webhooks")
	if r.guards.CORS != nil {
		webhooks.OPTIONS("/invoices", r.guards.CORS, func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
	}
	webhooks.POST("/invoices", chain(r.guards.CORS, r.guards.Webhook, r.webhook.HandleInvoice)...)
	webhooks.GET("/events", chain(nil, r.guards.Admin, r.events.GetEvents)...)
}

func chain(first gin.HandlerFunc, guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+2)
	if first != nil {
		out = append(out, first)
	}
	out = append(out, guards...)
	return append(out, handler)
}
