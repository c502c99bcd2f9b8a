package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/utils"
)

// Recovery 捕获 panic，返回统一的 500 错误响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithModule("http").Error("请求处理发生 panic",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", utils.RequestID(c)),
					zap.ByteString("stack", debug.Stack()))

				utils.InternalServerError(c, "An unexpected error occurred. Please try again later.")
			}
		}()
		c.Next()
	}
}
