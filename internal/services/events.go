package services

import (
	"context"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

// EventPublisher publishes ledger events; *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error
}

// events publishes after a write has been committed. Failures are logged
// and never returned: the write already succeeded.
type events struct {
	pub    EventPublisher
	logger *applog.Logger
}

func (e events) publish(ctx context.Context, kind amqp.EventKind, ownerID int64, period core.Period) {
	if e.pub == nil {
		e.logger.DebugContext(ctx, "AMQP publisher not configured, skipping ledger event",
			applog.FieldEvent, string(kind))
		return
	}

	evt := amqp.NewLedgerEvent(kind, ownerID, period)
	if err := e.pub.PublishLedgerEvent(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEvent, string(kind),
			applog.FieldOwnerID, ownerID,
			applog.FieldYear, period.Year,
			applog.FieldMonth, period.Month,
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldError, err.Error())
	}
}
