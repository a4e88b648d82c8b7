package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 指标在包级注册一次，多个服务器实例共享
var (
	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "confstake",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "confstake",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	requestSize = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "confstake",
			Subsystem:  "api",
			Name:       "request_size_bytes",
			Help:       "API request size in bytes",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"method", "route"},
	)

	responseSize = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "confstake",
			Subsystem:  "api",
			Name:       "response_size_bytes",
			Help:       "API response size in bytes",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"method", "route"},
	)
)

// Metrics 指标收集中间件
type Metrics struct{}

// NewMetrics 创建指标中间件
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Middleware 返回Gin中间件
//
// 以路由模板（如 /api/v1/certificates/:id）作为标签，避免凭证ID撑大基数
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Request.ContentLength; size > 0 {
			requestSize.WithLabelValues(method, route).Observe(float64(size))
		}
		if size := c.Writer.Size(); size > 0 {
			responseSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
