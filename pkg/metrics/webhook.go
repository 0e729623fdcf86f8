package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result label values for WebhookEventsTotal.
const (
	ResultTransitioned = "transitioned"
	ResultNoop         = "noop"
	ResultDuplicate    = "duplicate"
	ResultUnresolved   = "unresolved"
	ResultIgnored      = "ignored"
	ResultRejected     = "rejected"
	ResultFailed       = "failed"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by classified outcome and processing result",
		},
		[]string{"outcome", "result"},
	)

	// strategy="none" counts deliveries no strategy could match.
	WebhookResolutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_resolution_total",
			Help: "Order resolution attempts by winning strategy",
		},
		[]string{"strategy"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Requests rejected by the fixed-window rate limiter",
		},
		[]string{"route"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Customer notification attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		WebhookEventsTotal,
		WebhookResolutionTotal,
		RateLimitRejectionsTotal,
		NotificationsTotal,
	)
}
