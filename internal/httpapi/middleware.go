package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/williamjonathanliem/elysian-cms/internal/oplog"
	"go.uber.org/zap"
)

const (
	headerRequestID       = "X-Request-ID"
	contextKeyRequestID   = "request_id"
	contextKeyCurrentUser = "current_user"
	maxRequestIDLength    = 128
)

// requestIDMiddleware reuses a client supplied X-Request-ID or mints one and
// threads it through the request context for operation logs.
func requestIDMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := strings.TrimSpace(ctx.GetHeader(headerRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		ctx.Set(contextKeyRequestID, requestID)
		ctx.Header(headerRequestID, requestID)
		ctx.Request = ctx.Request.WithContext(oplog.WithRequestID(ctx.Request.Context(), requestID))
		ctx.Next()
	}
}

func requestIDFromGin(ctx *gin.Context) string {
	return ctx.GetString(contextKeyRequestID)
}

func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		startedAt := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = ctx.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(startedAt)),
			zap.String("client_ip", ctx.ClientIP()),
			zap.String("request_id", requestIDFromGin(ctx)),
		}
		if len(ctx.Errors) > 0 {
			fields = append(fields, zap.String("errors", ctx.Errors.String()))
		}
		if ctx.Writer.Status() >= 500 {
			logger.Warn("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}

func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(requestCtx)
		ctx.Next()
	}
}
