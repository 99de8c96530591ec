package middleware

import (
	"strconv"
	"time"

	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request through the observability logger.
// 5xx responses log at error level, 4xx at warn, everything else at info.
func RequestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			fields["http.response_size"] = c.Writer.Size()
		}

		switch {
		case statusCode >= 500:
			fields["http.error_type"] = "server_error"
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			fields["http.error_type"] = "client_error"
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}

// LearnerContext copies the :userId route param into the request context so
// service logs can be correlated by learner.
func LearnerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := strconv.Atoi(c.Param("userId")); err == nil && id > 0 {
			c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), id))
		}
		c.Next()
	}
}
