package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentInitiations *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
	recoveryHits       *prometheus.CounterVec
	dispatches         *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		paymentInitiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_payment_initiations_total",
			Help: "Payment initiation attempts by environment and outcome.",
		}, []string{"environment", "outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_webhook_events_total",
			Help: "Processor notification callbacks by mapped status.",
		}, []string{"status"}),
		recoveryHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_recovery_resolutions_total",
			Help: "Order recovery outcomes by resolving tier (or miss).",
		}, []string{"tier"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_confirmation_dispatches_total",
			Help: "Confirmation email dispatches by kind and result.",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkout_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	for _, c := range []prometheus.Collector{
		m.paymentInitiations, m.webhookEvents, m.recoveryHits, m.dispatches,
		m.httpRequests, m.httpDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordInitiation(env string, outcome string) {
	if m == nil {
		return
	}
	m.paymentInitiations.WithLabelValues(env, outcome).Inc()
}

func (m *Metrics) RecordWebhookEvent(status string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRecovery(tier string) {
	if m == nil {
		return
	}
	m.recoveryHits.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordDispatch(kind string, result string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(kind, result).Inc()
}

// GinMiddleware records request counts and latency per route template.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
