package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizmaster/profile-kit/pkg/metrics"
)

// Metrics records request counts and latency by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPLatency.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
