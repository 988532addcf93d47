package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusPending, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Accounting-relevant states are never silently reopened: paid and cancelled
// are terminal, overdue can only resolve to paid or cancelled.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusSent || target == InvoiceStatusPending || target == InvoiceStatusCancelled
	case InvoiceStatusSent:
		return target == InvoiceStatusPaid || target == InvoiceStatusOverdue ||
			target == InvoiceStatusPending || target == InvoiceStatusCancelled
	case InvoiceStatusPending:
		return target == InvoiceStatusSent || target == InvoiceStatusPaid ||
			target == InvoiceStatusOverdue || target == InvoiceStatusCancelled
	case InvoiceStatusOverdue:
		return target == InvoiceStatusPaid || target == InvoiceStatusCancelled
	case InvoiceStatusPaid, InvoiceStatusCancelled:
		return false
	}
	return false
}

// IsTerminal returns true for states that allow no further transitions
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// PaymentMethod represents how an invoice is expected to be settled
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodPayBySquare  PaymentMethod = "pay_by_square"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodPayPal, PaymentMethodPayBySquare:
		return true
	}
	return false
}

// LineTotals holds the derived figures for a single line item
type LineTotals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// CalculateLineTotals computes the quantized totals for one line.
// Absent quantity or unit price yields all-zero totals instead of an error,
// which keeps partially filled draft rows harmless.
func CalculateLineTotals(quantity, unitPrice *decimal.Decimal, rate valueobject.VATRate) LineTotals {
	if quantity == nil || unitPrice == nil {
		return LineTotals{
			Subtotal:  decimal.Zero,
			TaxAmount: decimal.Zero,
			Total:     decimal.Zero,
		}
	}
	subtotal := valueobject.Quantize(quantity.Mul(*unitPrice))
	tax := rate.TaxOn(subtotal)
	return LineTotals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     valueobject.Quantize(subtotal.Add(tax)),
	}
}

// InvoiceItem represents a line item in an invoice. Items are only ever
// soft-deleted: a deleted item stays in storage for audit history but is
// excluded from all aggregation.
type InvoiceItem struct {
	ID          uuid.UUID             `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	Description string                `gorm:"size:200;not null"`
	Quantity    decimal.Decimal       `gorm:"type:numeric(10,2);not null"`
	UnitPrice   decimal.Decimal       `gorm:"type:numeric(12,2);not null"`
	VATRate     valueobject.VATRate   `gorm:"type:numeric(5,2);not null"`
	Total       decimal.Decimal       `gorm:"type:numeric(12,2);not null"`
	Deleted     bool                  `gorm:"not null;default:false"`
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName sets the database table name
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// NewInvoiceItem creates a new invoice line item
func NewInvoiceItem(invoiceID uuid.UUID, description string, quantity, unitPrice decimal.Decimal, rate valueobject.VATRate) (*InvoiceItem, error) {
	verr := &shared.ValidationError{}
	if description == "" {
		verr.Add("description", "description cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		verr.Add("quantity", "quantity must be positive")
	}
	if unitPrice.IsNegative() {
		verr.Add("unit_price", "unit price cannot be negative")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	now := time.Now()
	item := &InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     rate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.Total = item.LineTotals().Total
	return item, nil
}

// LineTotals returns the derived figures for this line
func (i *InvoiceItem) LineTotals() LineTotals {
	return CalculateLineTotals(&i.Quantity, &i.UnitPrice, i.VATRate)
}

// SoftDelete marks the item deleted. Already-deleted items stay deleted and
// keep their original deletion time.
func (i *InvoiceItem) SoftDelete(now time.Time) {
	if i.Deleted {
		return
	}
	i.Deleted = true
	i.DeletedAt = &now
	i.UpdatedAt = now
}

// Invoice is the aggregate root for a billable document. All monetary fields
// are derived by Recompute and never set directly by callers.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber *string              `gorm:"size:50;uniqueIndex"`
	ClientID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	CreatedBy     *uuid.UUID           `gorm:"type:uuid;index"`
	IssueDate     time.Time            `gorm:"type:date;not null"`
	DueDate       time.Time            `gorm:"type:date;not null;index"`
	Status        InvoiceStatus        `gorm:"size:20;not null;default:draft;index"`
	PaymentMethod PaymentMethod        `gorm:"size:20;not null;default:bank_transfer"`
	Currency      valueobject.Currency `gorm:"size:3;not null;default:EUR"`
	Subtotal      decimal.Decimal      `gorm:"type:numeric(12,2);not null"`
	TaxAmount     decimal.Decimal      `gorm:"type:numeric(12,2);not null"`
	TotalAmount   decimal.Decimal      `gorm:"type:numeric(12,2);not null"`
	TaxBreakdown  TaxBreakdown         `gorm:"type:jsonb;not null;default:'{}'"`
	Notes         string               `gorm:"type:text"`
	Items         []InvoiceItem        `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new invoice in draft status with no number
func NewInvoice(clientID uuid.UUID, issueDate, dueDate time.Time, currency valueobject.Currency, method PaymentMethod, createdBy *uuid.UUID) (*Invoice, error) {
	verr := &shared.ValidationError{}
	if clientID == uuid.Nil {
		verr.Add("client_id", "client is required")
	}
	if dueDate.Before(issueDate) {
		verr.Add("due_date", "due date cannot be before the issue date")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		verr.Add("currency", fmt.Sprintf("unsupported currency %q", currency))
	}
	if method == "" {
		method = PaymentMethodBankTransfer
	}
	if !method.IsValid() {
		verr.Add("payment_method", fmt.Sprintf("unsupported payment method %q", method))
	}
	if verr.HasErrors() {
		return nil, verr
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		CreatedBy:         createdBy,
		IssueDate:         issueDate,
		DueDate:           dueDate,
		Status:            InvoiceStatusDraft,
		PaymentMethod:     method,
		Currency:          currency,
		Subtotal:          decimal.Zero,
		TaxAmount:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		TaxBreakdown:      NewTaxBreakdown(),
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// CanModifyItems reports whether line items may still change
func (inv *Invoice) CanModifyItems() bool {
	return !inv.Status.IsTerminal()
}

// AddItem adds a new line item and recomputes the totals
func (inv *Invoice) AddItem(description string, quantity, unitPrice decimal.Decimal, rate valueobject.VATRate) (*InvoiceItem, error) {
	if !inv.CanModifyItems() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add items to a %s invoice", inv.Status))
	}
	item, err := NewInvoiceItem(inv.ID, description, quantity, unitPrice, rate)
	if err != nil {
		return nil, err
	}
	inv.Items = append(inv.Items, *item)
	inv.Recompute()
	inv.Touch()
	return &inv.Items[len(inv.Items)-1], nil
}

// UpdateItem changes fields of an existing non-deleted item and recomputes
func (inv *Invoice) UpdateItem(itemID uuid.UUID, description *string, quantity, unitPrice *decimal.Decimal) error {
	if !inv.CanModifyItems() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update items of a %s invoice", inv.Status))
	}
	item := inv.GetItem(itemID)
	if item == nil || item.Deleted {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
	}

	verr := &shared.ValidationError{}
	if description != nil {
		if *description == "" {
			verr.Add("description", "description cannot be empty")
		} else {
			item.Description = *description
		}
	}
	if quantity != nil {
		if quantity.LessThanOrEqual(decimal.Zero) {
			verr.Add("quantity", "quantity must be positive")
		} else {
			item.Quantity = *quantity
		}
	}
	if unitPrice != nil {
		if unitPrice.IsNegative() {
			verr.Add("unit_price", "unit price cannot be negative")
		} else {
			item.UnitPrice = *unitPrice
		}
	}
	if verr.HasErrors() {
		return verr
	}

	item.UpdatedAt = time.Now()
	inv.Recompute()
	inv.Touch()
	return nil
}

// SoftDeleteItem marks an item deleted and recomputes the totals.
// Soft-deleting an already-deleted item is a no-op.
func (inv *Invoice) SoftDeleteItem(itemID uuid.UUID, now time.Time) error {
	if !inv.CanModifyItems() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete items of a %s invoice", inv.Status))
	}
	item := inv.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
	}
	if item.Deleted {
		return nil
	}
	item.SoftDelete(now)
	inv.Recompute()
	inv.Touch()
	inv.AddDomainEvent(NewInvoiceItemSoftDeletedEvent(inv, itemID))
	return nil
}

// GetItem returns an item by its ID, deleted or not
func (inv *Invoice) GetItem(itemID uuid.UUID) *InvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// ActiveItems returns the non-soft-deleted items
func (inv *Invoice) ActiveItems() []InvoiceItem {
	active := make([]InvoiceItem, 0, len(inv.Items))
	for _, item := range inv.Items {
		if !item.Deleted {
			active = append(active, item)
		}
	}
	return active
}

// Recompute derives subtotal, tax amount, total and the tax breakdown from
// the non-deleted items. It is idempotent: calling it twice without item
// changes produces identical results. Every accumulator is quantized before
// being written back, so stored figures never carry float drift.
func (inv *Invoice) Recompute() {
	subtotal := decimal.Zero
	taxAmount := decimal.Zero
	breakdown := NewTaxBreakdown()

	for idx := range inv.Items {
		item := &inv.Items[idx]
		if item.Deleted {
			continue
		}
		totals := item.LineTotals()
		item.Total = totals.Total
		subtotal = subtotal.Add(totals.Subtotal)
		taxAmount = taxAmount.Add(totals.TaxAmount)
		breakdown.Accumulate(item.VATRate.Key(), totals.TaxAmount)
	}

	inv.Subtotal = valueobject.Quantize(subtotal)
	inv.TaxAmount = valueobject.Quantize(taxAmount)
	inv.TotalAmount = valueobject.Quantize(subtotal.Add(taxAmount))
	for key, amount := range breakdown {
		breakdown[key] = valueobject.Quantize(amount)
	}
	inv.TaxBreakdown = breakdown
}

// Validate checks the invoice invariants that do not depend on storage
func (inv *Invoice) Validate() error {
	verr := &shared.ValidationError{}
	if inv.DueDate.Before(inv.IssueDate) {
		verr.Add("due_date", "due date cannot be before the issue date")
	}
	if inv.Subtotal.IsNegative() {
		verr.Add("subtotal", "subtotal cannot be negative")
	}
	if inv.TaxAmount.IsNegative() {
		verr.Add("tax_amount", "tax amount cannot be negative")
	}
	if inv.TotalAmount.IsNegative() {
		verr.Add("total_amount", "total amount cannot be negative")
	}
	if inv.Status != InvoiceStatusDraft && inv.InvoiceNumber == nil {
		verr.Add("invoice_number", "non-draft invoices must carry an invoice number")
	}
	return verr.ErrOrNil()
}

// RequiresNumber reports whether leaving draft must assign an invoice number
func (inv *Invoice) RequiresNumber(target InvoiceStatus) bool {
	return inv.InvoiceNumber == nil && target != InvoiceStatusDraft
}

// AssignNumber sets the invoice number. Once assigned it is immutable.
func (inv *Invoice) AssignNumber(number string, fallback bool) error {
	if inv.InvoiceNumber != nil {
		return shared.NewDomainError("NUMBER_ASSIGNED", "Invoice number is already assigned and cannot change")
	}
	if number == "" {
		return shared.NewDomainError("INVALID_INPUT", "Invoice number cannot be empty")
	}
	inv.InvoiceNumber = &number
	inv.Touch()
	inv.AddDomainEvent(NewInvoiceNumberAssignedEvent(inv, number, fallback))
	return nil
}

// TransitionTo moves the invoice to a new status. The caller is responsible
// for assigning a number first when RequiresNumber reports one is needed.
func (inv *Invoice) TransitionTo(target InvoiceStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown invoice status %q", target))
	}
	if !inv.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot transition invoice from %s to %s", inv.Status, target))
	}
	from := inv.Status
	inv.Status = target
	inv.Touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, from, target))
	return nil
}

// IsDraft returns true while the invoice may still lack a number
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPayable reports whether the invoice can still be settled
func (inv *Invoice) IsPayable() bool {
	switch inv.Status {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPending, InvoiceStatusOverdue:
		return true
	}
	return false
}

// IsPastDue reports whether the invoice should be flagged overdue
func (inv *Invoice) IsPastDue(now time.Time) bool {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return inv.DueDate.Before(day) &&
		(inv.Status == InvoiceStatusSent || inv.Status == InvoiceStatusPending)
}

// NumberOrDraft returns the invoice number or a draft placeholder for display
func (inv *Invoice) NumberOrDraft() string {
	if inv.InvoiceNumber == nil {
		return "Draft"
	}
	return *inv.InvoiceNumber
}
