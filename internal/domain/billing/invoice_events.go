package billing

import (
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants for the billing domain
const (
	EventTypeInvoiceCreated         = "billing.invoice.created"
	EventTypeInvoiceNumberAssigned  = "billing.invoice.number_assigned"
	EventTypeInvoiceStatusChanged   = "billing.invoice.status_changed"
	EventTypeInvoiceItemSoftDeleted = "billing.invoice.item_soft_deleted"
)

// InvoiceCreatedEvent is raised when a new draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Currency string    `json:"currency"`
}

// NewInvoiceCreatedEvent creates an invoice created event
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", inv.ID),
		ClientID:        inv.ClientID,
		Currency:        string(inv.Currency),
	}
}

// InvoiceNumberAssignedEvent is raised when an invoice receives its number.
// Fallback reports whether the random-suffix path was used.
type InvoiceNumberAssignedEvent struct {
	shared.BaseDomainEvent
	Number   string `json:"number"`
	Fallback bool   `json:"fallback"`
}

// NewInvoiceNumberAssignedEvent creates a number assigned event
func NewInvoiceNumberAssignedEvent(inv *Invoice, number string, fallback bool) *InvoiceNumberAssignedEvent {
	return &InvoiceNumberAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceNumberAssigned, "Invoice", inv.ID),
		Number:          number,
		Fallback:        fallback,
	}
}

// InvoiceStatusChangedEvent is raised on every status transition
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// NewInvoiceStatusChangedEvent creates a status changed event
func NewInvoiceStatusChangedEvent(inv *Invoice, from, to InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, "Invoice", inv.ID),
		FromStatus:      string(from),
		ToStatus:        string(to),
	}
}

// InvoiceItemSoftDeletedEvent is raised when a line item is soft-deleted
type InvoiceItemSoftDeletedEvent struct {
	shared.BaseDomainEvent
	ItemID uuid.UUID `json:"item_id"`
}

// NewInvoiceItemSoftDeletedEvent creates an item soft deleted event
func NewInvoiceItemSoftDeletedEvent(inv *Invoice, itemID uuid.UUID) *InvoiceItemSoftDeletedEvent {
	return &InvoiceItemSoftDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceItemSoftDeleted, "Invoice", inv.ID),
		ItemID:          itemID,
	}
}
