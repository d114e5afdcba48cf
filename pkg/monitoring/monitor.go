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

	// ExamAttempts event: started | submitted | rejected
	ExamAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_attempts_total",
			Help: "Exam attempt lifecycle events",
		},
		[]string{"event"},
	)

	ExamScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_score_percentage",
			Help:    "Percentage score of submitted exam attempts",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// ClassroomEnrollments event: joined | left | full
	ClassroomEnrollments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classroom_enrollments_total",
			Help: "Classroom enrollment events",
		},
		[]string{"event"},
	)

	CounselingSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counseling_sessions_total",
			Help: "Counseling session status changes",
		},
		[]string{"status"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_ws_connections",
			Help: "Open notification WebSocket connections on this instance",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(ExamAttempts)
		prometheus.MustRegister(ExamScore)
		prometheus.MustRegister(ClassroomEnrollments)
		prometheus.MustRegister(CounselingSessions)
		prometheus.MustRegister(WSConnections)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
