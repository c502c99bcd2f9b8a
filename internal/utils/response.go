package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey gin.Context 中保存请求 ID 的键
const RequestIDKey = "request_id"

// ErrorResponse 统一错误响应结构
type ErrorResponse struct {
	Error     string `json:"error"`      // 错误类型
	Message   string `json:"message"`    // 可读信息
	RequestID string `json:"request_id"` // 请求 ID
}

// RequestID 返回当前请求 ID（未经过中间件时为空）
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Success 返回成功响应（直接输出数据，不包装）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 返回错误响应
func Error(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:     kind,
		Message:   message,
		RequestID: RequestID(c),
	})
}

// BadRequest 返回400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "InvalidQueryError", message)
}

// NotFound 返回404错误
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	Error(c, http.StatusNotFound, "NotFoundError", message)
}

// InternalServerError 返回500错误
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "An unexpected error occurred"
	}
	Error(c, http.StatusInternalServerError, "InternalServerError", message)
}
