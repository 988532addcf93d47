package event

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BillingAuditHandler writes a structured audit record for every billing event.
// It is the default subscriber wired into the event bus at startup.
type BillingAuditHandler struct {
	logger *zap.Logger
}

// NewBillingAuditHandler creates a new audit handler
func NewBillingAuditHandler(logger *zap.Logger) *BillingAuditHandler {
	return &BillingAuditHandler{logger: logger}
}

// EventTypes returns the billing event types this handler records
func (h *BillingAuditHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceNumberAssigned,
		billing.EventTypeInvoiceStatusChanged,
		billing.EventTypeInvoiceItemSoftDeleted,
	}
}

// Handle logs the event with its payload-specific fields
func (h *BillingAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *billing.InvoiceCreatedEvent:
		fields = append(fields,
			zap.String("client_id", e.ClientID.String()),
			zap.String("currency", e.Currency),
		)
	case *billing.InvoiceNumberAssignedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.Number),
			zap.Bool("fallback", e.Fallback),
		)
	case *billing.InvoiceStatusChangedEvent:
		fields = append(fields,
			zap.String("from_status", e.FromStatus),
			zap.String("to_status", e.ToStatus),
		)
	case *billing.InvoiceItemSoftDeletedEvent:
		fields = append(fields,
			zap.String("item_id", e.ItemID.String()),
		)
	}

	h.logger.Info("billing event", fields...)
	return nil
}

// Ensure BillingAuditHandler implements EventHandler
var _ shared.EventHandler = (*BillingAuditHandler)(nil)
