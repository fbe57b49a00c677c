package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/monitoring"
)

// Logger writes one line per request and records the request metrics.
// Paths are labelled by route template to keep metric cardinality bounded.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		monitoring.HttpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		monitoring.ResponseTimeHistogram.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.GetString(UserIDKey); id != "" {
			fields = append(fields, zap.String("user_id", id))
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status == 401 || status == 403:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
