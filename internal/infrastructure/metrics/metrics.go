package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soulcircle_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soulcircle_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soulcircle_messages_total",
			Help: "Messages appended, by log kind.",
		},
		[]string{"log"},
	)
	membershipTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soulcircle_membership_changes_total",
			Help: "Group membership operations, by operation and result code.",
		},
		[]string{"op", "result"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "soulcircle_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soulcircle_ws_events_total",
			Help: "Total number of websocket frames handled, by type.",
		},
		[]string{"event"},
	)
	activeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soulcircle_active_subscriptions",
			Help: "Live snapshot subscriptions, by topic kind.",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		messagesTotal,
		membershipTotal,
		wsActiveConnections,
		wsEventsTotal,
		activeSubscriptions,
	)
}

func HTTPMetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func IncMessage(logKind string) {
	messagesTotal.WithLabelValues(logKind).Inc()
}

// ObserveMembership records a membership operation; result is "ok" or the
// error code.
func ObserveMembership(op, result string) {
	membershipTotal.WithLabelValues(op, result).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncSubscriptions(topic string) {
	activeSubscriptions.WithLabelValues(topic).Inc()
}

func DecSubscriptions(topic string) {
	activeSubscriptions.WithLabelValues(topic).Dec()
}
