// Package oplog reports villa service operations through zap.
package oplog

import (
	"context"

	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"go.uber.org/zap"
)

const logMessage = "villa operation"

// Logger adapts a zap.Logger to villa.OperationLogger.
type Logger struct {
	logger *zap.Logger
}

// New wraps logger; a nil logger discards everything.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// LogOperation writes one structured line per operation; failures go to warn.
func (operationLogger *Logger) LogOperation(ctx context.Context, entry villa.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if entry.VillaID != 0 {
		fields = append(fields, zap.Int64("villa_id", entry.VillaID.Int64()))
	}
	if entry.RoomID != 0 {
		fields = append(fields, zap.Int64("room_id", entry.RoomID.Int64()))
	}
	if entry.ReservationID != 0 {
		fields = append(fields, zap.Int64("reservation_id", entry.ReservationID.Int64()))
	}
	if entry.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", entry.UserID.Int64()))
	}
	if entry.Subject != "" {
		fields = append(fields, zap.String("subject", entry.Subject))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn(logMessage, fields...)
		return
	}
	operationLogger.logger.Info(logMessage, fields...)
}

type requestIDKey struct{}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	return requestID, ok && requestID != ""
}
