package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"txcluster/internal/app/pkg/ginx"
	"txcluster/internal/app/pkg/logger"
)

// ErrorHandler 统一错误处理：捕获 panic，兜底未写响应的 c.Errors
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(c.Request.Context(), "Handler panic", "panic", r, "path", c.Request.URL.Path)
				c.Abort()
				ginx.InternalError(c, http.StatusText(http.StatusInternalServerError))
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			ginx.Fail(c, c.Errors.Last().Err)
		}
	}
}
