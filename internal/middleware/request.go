package middleware

import (
	"time"

	"commentservice/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"
const RequestIDKey = "request_id"

// RequestID tags the request with the caller's X-Request-ID or a new one and
// stores a request-scoped logger in the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		ctx := logger.NewContextWithFields(c.Request.Context(), logrus.Fields{
			"requestId": id,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request once it has been served.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.For(c).WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIp": c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request served")
		case c.Writer.Status() >= 400:
			entry.Warn("Request served")
		default:
			entry.Info("Request served")
		}
	}
}
