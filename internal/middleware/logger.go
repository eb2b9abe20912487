package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger 為每個請求指定 request id 並記錄存取日誌
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if id, ok := UserID(c); ok {
			attrs = append(attrs, "user_id", id)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request handled", attrs...)
		case status >= 400:
			logger.Warn("request handled", attrs...)
		default:
			logger.Info("request handled", attrs...)
		}
	}
}
