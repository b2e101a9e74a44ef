package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Poll kinds and results used as metric labels.
const (
	PollHistory = "history"
	PollTyping  = "typing"
	PollUnread  = "unread"

	ResultOK        = "ok"
	ResultError     = "error"
	ResultStale     = "stale"
	ResultDiscarded = "discarded"
	ResultUnchanged = "unchanged"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests processed by the portal.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	pollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_poll_cycles_total",
			Help: "Backend poll results by kind.",
		},
		[]string{"kind", "result"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_total",
			Help: "Notifications raised for unread-count increases.",
		},
		[]string{"channel"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_ws_active_connections",
			Help: "Number of active dashboard websocket connections.",
		},
	)
	dashboardSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_dashboard_sessions",
			Help: "Number of live dashboard sessions.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		pollCyclesTotal,
		notificationsTotal,
		wsActiveConnections,
		dashboardSessions,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncPoll(kind, result string) {
	pollCyclesTotal.WithLabelValues(kind, result).Inc()
}

func IncNotification(channel string) {
	notificationsTotal.WithLabelValues(channel).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func SetDashboardSessions(n int) {
	dashboardSessions.Set(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
