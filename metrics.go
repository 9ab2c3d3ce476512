package main

import (
	"strconv"

	"taskman/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsCollector holds the counters the handlers record into. Metrics are
// registered against a private registry so tests can rebuild them without
// duplicate-registration panics.
type metricsCollector struct {
	requests      *prometheus.CounterVec
	loginFailures prometheus.Counter
	tokensRevoked prometheus.Counter
}

var (
	registry *prometheus.Registry
	stats    *metricsCollector
)

func initMetrics(bl *session.Blacklist) {
	registry = prometheus.NewRegistry()
	stats = &metricsCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_http_requests_total",
			Help: "HTTP responses by status code",
		}, []string{"status"}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_login_failures_total",
			Help: "Failed login attempts",
		}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_tokens_revoked_total",
			Help: "Tokens blacklisted via logout",
		}),
	}
	registry.MustRegister(stats.requests, stats.loginFailures, stats.tokensRevoked)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "taskman_blacklist_entries",
		Help: "Live entries in the token blacklist",
	}, func() float64 { return float64(bl.Len()) }))
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		stats.requests.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()
	}
}
