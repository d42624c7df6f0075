package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AttemptEvents counts ledger transitions: started, resumed, submitted, incomplete.
	AttemptEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_attempt_events_total",
			Help: "Attempt ledger transitions by kind",
		},
		[]string{"event"},
	)

	EligibilityDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_eligibility_denied_total",
			Help: "Start or access requests rejected by the eligibility gate",
		},
		[]string{"reason"},
	)

	LedgerConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "test_ledger_conflicts_total",
			Help: "Ledger write conflicts, by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AttemptEvents)
		prometheus.MustRegister(EligibilityDenied)
		prometheus.MustRegister(LedgerConflicts)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
