package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"git-browser-web/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 请求 ID 在 gin.Context 和响应头中的名字
const (
	RequestIDKey    = "RequestID"
	RequestIDHeader = "X-Request-ID"
)

// RequestID 为每个请求分配 ID，客户端带了 X-Request-ID 时沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger 记录每个请求的方法、路径、状态码和耗时
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", logger.Since(start)),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("请求失败", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("请求出错", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}

// Recovery 捕获 handler 中的 panic 并返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("处理请求时发生 panic",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("panic", err),
					zap.ByteString("stack", debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "An unknown error occurred", "kind": "Unknown"})
			}
		}()
		c.Next()
	}
}
