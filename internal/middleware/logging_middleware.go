package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger writes one structured entry per handled request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		panic("RequestLogger requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		ce := logger.Check(levelFor(status), "Incoming Request")
		if ce == nil {
			return
		}
		ce.Write(requestFields(c, path, query, status, time.Since(start))...)
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func requestFields(c *gin.Context, path, query string, status int, latency time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", path),
		zap.String("route", c.FullPath()),
		zap.Int("status_code", status),
		zap.Int("response_bytes", c.Writer.Size()),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
	}
	if query != "" {
		fields = append(fields, zap.String("query", query))
	}
	// Set by VerifyToken on authenticated routes.
	if userID := c.GetString(ContextUserID); userID != "" {
		fields = append(fields, zap.String("userID", userID))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.String("gin_errors", c.Errors.String()))
	}
	return fields
}
