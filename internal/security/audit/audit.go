package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits a structured record for every mutating operation: who acted,
// on what, and with what outcome.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, businessID, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("business_id", businessID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogTransaction(ctx context.Context, businessID, userID, transactionID, status, details string) {
	al.LogAction(ctx, businessID, userID, "commit", "transaction", transactionID, status, details)
}

func (al *Logger) LogStockAdjustment(ctx context.Context, businessID, userID, productID, status, details string) {
	al.LogAction(ctx, businessID, userID, "adjust_stock", "product", productID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, businessID, userID, reason string) {
	al.LogAction(ctx, businessID, userID, "access_denied", "api", "", "denied", reason)
}
