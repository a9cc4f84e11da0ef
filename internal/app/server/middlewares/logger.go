package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"txcluster/internal/app/pkg/logger"
)

// HeaderRequestID 请求 ID 头，缺省时生成 UUID
const HeaderRequestID = "X-Request-ID"

// Logger 注入 trace_id 并记录访问日志
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(HeaderRequestID)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Header(HeaderRequestID, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if c.Writer.Status() >= 500 {
			log.ErrorContext(c.Request.Context(), "HTTP request", fields...)
			return
		}
		log.InfoContext(c.Request.Context(), "HTTP request", fields...)
	}
}
