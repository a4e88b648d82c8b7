package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	infralog "github.com/weisyn/confstake/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/confstake/pkg/types"
)

// Logger 日志中间件
// 记录所有API请求（复用系统统一日志接口）
type Logger struct {
	logger infralog.Logger
}

// NewLogger 创建日志中间件
func NewLogger(logger infralog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Middleware 返回Gin中间件
func (m *Logger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		requestID := GetRequestID(c)

		c.Next()

		if m.logger == nil {
			return
		}
		latency := time.Since(start)
		status := c.Writer.Status()
		caller := GetCaller(c)

		if zl := m.logger.GetZapLogger(); zl != nil {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("client_ip", c.ClientIP()),
			}
			if caller != types.ZeroAddress {
				fields = append(fields, zap.String("caller", caller.Hex()))
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("errors", c.Errors.String()))
			}
			switch {
			case status >= 500:
				zl.Error("HTTP request", fields...)
			case status >= 400:
				zl.Warn("HTTP request", fields...)
			default:
				zl.Info("HTTP request", fields...)
			}
			return
		}

		msg := fmt.Sprintf("HTTP request | id=%s method=%s path=%s status=%d latency=%s ip=%s",
			requestID, c.Request.Method, path, status, latency.String(), c.ClientIP())
		switch {
		case status >= 500:
			m.logger.Error(msg)
		case status >= 400:
			m.logger.Warn(msg)
		default:
			m.logger.Info(msg)
		}
	}
}
