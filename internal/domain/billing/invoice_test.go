package billing

import (
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	inv, err := NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, PaymentMethodBankTransfer, nil)
	require.NoError(t, err)
	return inv
}

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates draft with zero totals", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.Nil(t, inv.InvoiceNumber)
		assert.True(t, inv.Subtotal.IsZero())
		assert.True(t, inv.TaxAmount.IsZero())
		assert.True(t, inv.TotalAmount.IsZero())
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, -1), valueobject.CurrencyEUR, PaymentMethodBankTransfer, nil)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects missing client", func(t *testing.T) {
		issue := time.Now()
		_, err := NewInvoice(uuid.Nil, issue, issue, valueobject.CurrencyEUR, PaymentMethodBankTransfer, nil)
		assert.Error(t, err)
	})

	t.Run("defaults currency and payment method", func(t *testing.T) {
		issue := time.Now()
		inv, err := NewInvoice(uuid.New(), issue, issue, "", "", nil)
		require.NoError(t, err)
		assert.Equal(t, valueobject.CurrencyEUR, inv.Currency)
		assert.Equal(t, PaymentMethodBankTransfer, inv.PaymentMethod)
	})
}

func TestCalculateLineTotals(t *testing.T) {
	rate := valueobject.MustVATRate("20")

	t.Run("two units at ten", func(t *testing.T) {
		qty := decimal.NewFromInt(2)
		price := decimal.NewFromInt(10)
		totals := CalculateLineTotals(&qty, &price, rate)
		assert.Equal(t, "20.00", totals.Subtotal.StringFixed(2))
		assert.Equal(t, "4.00", totals.TaxAmount.StringFixed(2))
		assert.Equal(t, "24.00", totals.Total.StringFixed(2))
	})

	t.Run("nil quantity yields zeros", func(t *testing.T) {
		price := decimal.NewFromInt(10)
		totals := CalculateLineTotals(nil, &price, rate)
		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.Total.IsZero())
	})

	t.Run("nil price yields zeros", func(t *testing.T) {
		qty := decimal.NewFromInt(2)
		totals := CalculateLineTotals(&qty, nil, rate)
		assert.True(t, totals.Total.IsZero())
	})

	t.Run("fractional rounding half up", func(t *testing.T) {
		qty := decimal.NewFromInt(3)
		price := decimal.RequireFromString("0.115")
		totals := CalculateLineTotals(&qty, &price, rate)
		// 3 * 0.115 = 0.345, quantized half up to 0.35
		assert.Equal(t, "0.35", totals.Subtotal.StringFixed(2))
	})
}

func TestInvoiceAddItem(t *testing.T) {
	rate := valueobject.MustVATRate("20")

	t.Run("aggregates totals and breakdown", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddItem("Consulting", d(t, "1"), d(t, "10.00"), rate)
		require.NoError(t, err)
		_, err = inv.AddItem("Hosting", d(t, "3"), d(t, "5.00"), rate)
		require.NoError(t, err)

		assert.Equal(t, "25.00", inv.Subtotal.StringFixed(2))
		assert.Equal(t, "5.00", inv.TaxAmount.StringFixed(2))
		assert.Equal(t, "30.00", inv.TotalAmount.StringFixed(2))
		require.Contains(t, inv.TaxBreakdown, "20.00")
		assert.Equal(t, "5.00", inv.TaxBreakdown["20.00"].StringFixed(2))
	})

	t.Run("separates breakdown per rate", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddItem("Standard", d(t, "1"), d(t, "100.00"), valueobject.MustVATRate("20"))
		require.NoError(t, err)
		_, err = inv.AddItem("Reduced", d(t, "1"), d(t, "100.00"), valueobject.MustVATRate("10"))
		require.NoError(t, err)

		assert.Equal(t, "20.00", inv.TaxBreakdown["20.00"].StringFixed(2))
		assert.Equal(t, "10.00", inv.TaxBreakdown["10.00"].StringFixed(2))
		assert.Equal(t, "30.00", inv.TaxAmount.StringFixed(2))
	})

	t.Run("rejects invalid item", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddItem("", d(t, "0"), d(t, "-1"), rate)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects items on terminal invoice", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
		require.NoError(t, inv.TransitionTo(InvoiceStatusSent))
		require.NoError(t, inv.TransitionTo(InvoiceStatusPaid))

		_, err := inv.AddItem("Late", d(t, "1"), d(t, "1.00"), rate)
		assert.Error(t, err)
	})
}

func TestInvoiceRecompute(t *testing.T) {
	rate := valueobject.MustVATRate("20")

	t.Run("idempotent", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddItem("Work", d(t, "2"), d(t, "10.00"), rate)
		require.NoError(t, err)

		first := inv.TotalAmount
		firstBreakdown := inv.TaxBreakdown
		inv.Recompute()
		inv.Recompute()
		assert.True(t, first.Equal(inv.TotalAmount))
		assert.True(t, firstBreakdown.Equal(inv.TaxBreakdown))
	})

	t.Run("skips deleted items", func(t *testing.T) {
		inv := newTestInvoice(t)
		_, err := inv.AddItem("Kept", d(t, "1"), d(t, "10.00"), rate)
		require.NoError(t, err)
		removed, err := inv.AddItem("Removed", d(t, "1"), d(t, "90.00"), rate)
		require.NoError(t, err)

		require.NoError(t, inv.SoftDeleteItem(removed.ID, time.Now()))
		assert.Equal(t, "10.00", inv.Subtotal.StringFixed(2))
		assert.Equal(t, "12.00", inv.TotalAmount.StringFixed(2))
	})
}

func TestInvoiceSoftDeleteItem(t *testing.T) {
	rate := valueobject.MustVATRate("20")

	t.Run("zeroes totals when last item removed", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddItem("Only", d(t, "2"), d(t, "50.00"), rate)
		require.NoError(t, err)

		require.NoError(t, inv.SoftDeleteItem(item.ID, time.Now()))
		assert.True(t, inv.Subtotal.IsZero())
		assert.True(t, inv.TaxAmount.IsZero())
		assert.True(t, inv.TotalAmount.IsZero())
		assert.Empty(t, inv.TaxBreakdown)
		assert.Len(t, inv.Items, 1)
	})

	t.Run("idempotent on already deleted item", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddItem("Only", d(t, "1"), d(t, "10.00"), rate)
		require.NoError(t, err)

		now := time.Now()
		require.NoError(t, inv.SoftDeleteItem(item.ID, now))
		deletedAt := inv.GetItem(item.ID).DeletedAt
		require.NoError(t, inv.SoftDeleteItem(item.ID, now.Add(time.Hour)))
		assert.Equal(t, deletedAt, inv.GetItem(item.ID).DeletedAt)
	})

	t.Run("unknown item", func(t *testing.T) {
		inv := newTestInvoice(t)
		err := inv.SoftDeleteItem(uuid.New(), time.Now())
		assert.Error(t, err)
	})
}

func TestInvoiceUpdateItem(t *testing.T) {
	rate := valueobject.MustVATRate("20")

	t.Run("updates fields and recomputes", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddItem("Work", d(t, "1"), d(t, "10.00"), rate)
		require.NoError(t, err)

		qty := d(t, "3")
		require.NoError(t, inv.UpdateItem(item.ID, nil, &qty, nil))
		assert.Equal(t, "30.00", inv.Subtotal.StringFixed(2))
	})

	t.Run("deleted item not updatable", func(t *testing.T) {
		inv := newTestInvoice(t)
		item, err := inv.AddItem("Work", d(t, "1"), d(t, "10.00"), rate)
		require.NoError(t, err)
		require.NoError(t, inv.SoftDeleteItem(item.ID, time.Now()))

		qty := d(t, "2")
		err = inv.UpdateItem(item.ID, nil, &qty, nil)
		assert.Error(t, err)
	})
}

func TestInvoiceStatusTransitions(t *testing.T) {
	tests := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{InvoiceStatusDraft, InvoiceStatusSent, true},
		{InvoiceStatusDraft, InvoiceStatusPending, true},
		{InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusDraft, InvoiceStatusOverdue, false},
		{InvoiceStatusSent, InvoiceStatusPaid, true},
		{InvoiceStatusSent, InvoiceStatusOverdue, true},
		{InvoiceStatusSent, InvoiceStatusDraft, false},
		{InvoiceStatusPending, InvoiceStatusSent, true},
		{InvoiceStatusPending, InvoiceStatusPaid, true},
		{InvoiceStatusOverdue, InvoiceStatusPaid, true},
		{InvoiceStatusOverdue, InvoiceStatusSent, false},
		{InvoiceStatusPaid, InvoiceStatusCancelled, false},
		{InvoiceStatusCancelled, InvoiceStatusDraft, false},
		{InvoiceStatusSent, InvoiceStatusSent, false},
	}

	for _, tt := range tests {
		name := string(tt.from) + " to " + string(tt.to)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestInvoiceTransitionTo(t *testing.T) {
	t.Run("valid transition records event", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
		inv.ClearDomainEvents()

		require.NoError(t, inv.TransitionTo(InvoiceStatusSent))
		assert.Equal(t, InvoiceStatusSent, inv.Status)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*InvoiceStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "draft", changed.FromStatus)
		assert.Equal(t, "sent", changed.ToStatus)
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		inv := newTestInvoice(t)
		err := inv.TransitionTo(InvoiceStatusPaid)
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_STATE", derr.Code)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.Error(t, inv.TransitionTo(InvoiceStatus("archived")))
	})
}

func TestInvoiceAssignNumber(t *testing.T) {
	t.Run("assigns once", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
		require.NotNil(t, inv.InvoiceNumber)
		assert.Equal(t, "INV-20260901-0001", *inv.InvoiceNumber)
	})

	t.Run("immutable once set", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
		err := inv.AssignNumber("INV-20260901-0002", false)
		require.Error(t, err)
		assert.Equal(t, "INV-20260901-0001", *inv.InvoiceNumber)
	})

	t.Run("fallback flag carried on event", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.ClearDomainEvents()
		require.NoError(t, inv.AssignNumber("INV-20260901-AB12CD34", true))

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assigned, ok := events[0].(*InvoiceNumberAssignedEvent)
		require.True(t, ok)
		assert.True(t, assigned.Fallback)
	})
}

func TestInvoiceRequiresNumber(t *testing.T) {
	inv := newTestInvoice(t)
	assert.True(t, inv.RequiresNumber(InvoiceStatusSent))
	assert.False(t, inv.RequiresNumber(InvoiceStatusDraft))

	require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
	assert.False(t, inv.RequiresNumber(InvoiceStatusSent))
}

func TestInvoiceIsPastDue(t *testing.T) {
	issue := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	inv, err := NewInvoice(uuid.New(), issue, due, valueobject.CurrencyEUR, PaymentMethodBankTransfer, nil)
	require.NoError(t, err)
	require.NoError(t, inv.AssignNumber("INV-20260801-0001", false))
	require.NoError(t, inv.TransitionTo(InvoiceStatusSent))

	assert.False(t, inv.IsPastDue(due))
	assert.True(t, inv.IsPastDue(due.AddDate(0, 0, 1)))

	require.NoError(t, inv.TransitionTo(InvoiceStatusPaid))
	assert.False(t, inv.IsPastDue(due.AddDate(0, 0, 1)))
}

func TestInvoiceValidate(t *testing.T) {
	t.Run("draft without number passes", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.NoError(t, inv.Validate())
	})

	t.Run("sent without number fails", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.Status = InvoiceStatusSent
		assert.Error(t, inv.Validate())
	})
}
