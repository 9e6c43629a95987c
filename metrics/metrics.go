// Package metrics holds the Prometheus collectors for the order queue.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restaurant-queue/models"
)

// Metrics holds all collectors for the service
type Metrics struct {
	OrdersCreated          *prometheus.CounterVec
	StatusTransitions      *prometheus.CounterVec
	QueueDepth             prometheus.Gauge
	WaitEstimateFallbacks  *prometheus.CounterVec
	EventPublishFailures   *prometheus.CounterVec
	CodeGenerationFailures prometheus.Counter
	HTTPRequests           *prometheus.CounterVec
	HTTPDuration           *prometheus.HistogramVec
}

// NewMetrics registers every collector with registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_orders_created_total",
				Help: "Total number of orders placed, by initial status",
			},
			[]string{"status"},
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_order_status_transitions_total",
				Help: "Total number of order status changes",
			},
			[]string{"from", "to"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "restaurant_queue_depth",
				Help: "Number of orders currently IN_QUEUE, as of the last estimate",
			},
		),
		WaitEstimateFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_wait_estimate_fallbacks_total",
				Help: "Wait estimates that returned the default band, by reason",
			},
			[]string{"reason"},
		),
		EventPublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_event_publish_failures_total",
				Help: "Lifecycle events that could not be delivered to the broker",
			},
			[]string{"type"},
		),
		CodeGenerationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "restaurant_order_code_exhausted_total",
				Help: "Order creations rejected because no free code was found",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "restaurant_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "restaurant_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// NewRegistry creates a private registry with the service collectors plus
// the Go runtime and process collectors.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, NewMetrics(reg)
}

// HandlerFor exposes reg on the /metrics endpoint
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nil-safe recorders so callers without metrics can pass nil.

func (m *Metrics) OrderCreated(status models.OrderStatus) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Transition(from, to models.OrderStatus) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) SetQueueDepth(n int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) EstimateFallback(reason string) {
	if m == nil {
		return
	}
	m.WaitEstimateFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) PublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) CodeSpaceExhausted() {
	if m == nil {
		return
	}
	m.CodeGenerationFailures.Inc()
}

// Instrument records request counts and latency keyed by the matched route
// template rather than the raw path.
func (m *Metrics) Instrument() gin.HandlerFunc {
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
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
