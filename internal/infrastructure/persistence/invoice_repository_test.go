package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupBillingTestDB creates an in-memory SQLite database with the billing schema
func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&billing.Invoice{},
		&billing.InvoiceItem{},
		&billing.Client{},
		&billing.ClientNote{},
		&billing.CompanyProfile{},
		&NumberSequenceRow{},
	))
	return db
}

func newPersistedInvoice(t *testing.T, repo *GormInvoiceRepository) *billing.Invoice {
	t.Helper()
	issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	inv, err := billing.NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
	require.NoError(t, err)
	_, err = inv.AddItem("Consulting", decimal.NewFromInt(2), decimal.RequireFromString("10.00"), valueobject.MustVATRate("20"))
	require.NoError(t, err)
	inv.ClearDomainEvents()
	require.NoError(t, repo.Save(context.Background(), inv))
	return inv
}

func TestGormInvoiceRepositorySaveAndFind(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newPersistedInvoice(t, repo)

	t.Run("round trips the aggregate", func(t *testing.T) {
		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusDraft, found.Status)
		assert.Equal(t, "24.00", found.TotalAmount.StringFixed(2))
		require.Len(t, found.Items, 1)
		assert.True(t, found.TaxBreakdown.Equal(inv.TaxBreakdown))
	})

	t.Run("unknown id yields not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by number", func(t *testing.T) {
		numbered := newPersistedInvoice(t, repo)
		require.NoError(t, numbered.AssignNumber("INV-20260901-0001", false))
		numbered.ClearDomainEvents()
		require.NoError(t, repo.Save(ctx, numbered))

		found, err := repo.FindByNumber(ctx, "INV-20260901-0001")
		require.NoError(t, err)
		assert.Equal(t, numbered.ID, found.ID)
	})
}

func TestGormInvoiceRepositorySaveWithLock(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	t.Run("matching version saves and increments", func(t *testing.T) {
		inv := newPersistedInvoice(t, repo)
		inv.Notes = "updated"

		require.NoError(t, repo.SaveWithLock(ctx, inv, 1))
		assert.Equal(t, 2, inv.Version)

		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Version)
		assert.Equal(t, "updated", found.Notes)
	})

	t.Run("stale version is rejected and leaves the row untouched", func(t *testing.T) {
		inv := newPersistedInvoice(t, repo)
		inv.Notes = "first edit"
		require.NoError(t, repo.SaveWithLock(ctx, inv, 1))

		stale := *inv
		stale.Notes = "stale edit"
		stale.TotalAmount = decimal.RequireFromString("999.99")
		err := repo.SaveWithLock(ctx, &stale, 1)
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))

		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Version)
		assert.Equal(t, "first edit", found.Notes)
		assert.Equal(t, "24.00", found.TotalAmount.StringFixed(2))
		assert.Len(t, found.Items, 1)
	})

	t.Run("missing invoice yields not found", func(t *testing.T) {
		issue := time.Now()
		ghost, err := billing.NewInvoice(uuid.New(), issue, issue, valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)

		err = repo.SaveWithLock(ctx, ghost, 1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInvoiceRepositorySoftDeletedItems(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newPersistedInvoice(t, repo)
	itemID := inv.Items[0].ID
	require.NoError(t, inv.SoftDeleteItem(itemID, time.Now()))
	inv.ClearDomainEvents()
	require.NoError(t, repo.SaveWithLock(ctx, inv, 1))

	// The row survives deletion for history but totals exclude it
	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.True(t, found.Items[0].Deleted)
	assert.Empty(t, found.ActiveItems())
	assert.True(t, found.TotalAmount.IsZero())
}

func TestGormInvoiceRepositoryFindAll(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	first := newPersistedInvoice(t, repo)
	second := newPersistedInvoice(t, repo)
	require.NoError(t, second.AssignNumber("INV-20260901-0042", false))
	second.ClearDomainEvents()
	require.NoError(t, second.TransitionTo(billing.InvoiceStatusSent))
	second.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, second))

	t.Run("filter by status", func(t *testing.T) {
		status := billing.InvoiceStatusSent
		filter := billing.InvoiceFilter{Filter: shared.DefaultFilter(), Status: &status}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, second.ID, found[0].ID)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("filter by client", func(t *testing.T) {
		filter := billing.InvoiceFilter{Filter: shared.DefaultFilter(), ClientID: &first.ClientID}
		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, first.ID, found[0].ID)
	})

	t.Run("search by number", func(t *testing.T) {
		filter := billing.InvoiceFilter{Filter: shared.DefaultFilter()}
		filter.Search = "0042"
		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, second.ID, found[0].ID)
	})
}

func TestGormInvoiceRepositoryFindPastDue(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	issue := time.Now().UTC().AddDate(0, 0, -30)
	overdue, err := billing.NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
	require.NoError(t, err)
	require.NoError(t, overdue.AssignNumber("INV-20260801-0001", false))
	require.NoError(t, overdue.TransitionTo(billing.InvoiceStatusSent))
	overdue.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, overdue))

	// Still within its payment term, must not be picked up
	current := newPersistedInvoice(t, repo)

	// Past due but already settled, must not be picked up either
	paid, err := billing.NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
	require.NoError(t, err)
	require.NoError(t, paid.AssignNumber("INV-20260801-0002", false))
	require.NoError(t, paid.TransitionTo(billing.InvoiceStatusSent))
	require.NoError(t, paid.TransitionTo(billing.InvoiceStatusPaid))
	paid.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, paid))

	found, err := repo.FindPastDue(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, overdue.ID, found[0].ID)
	assert.NotEqual(t, current.ID, found[0].ID)
}

func TestGormInvoiceRepositoryDelete(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newPersistedInvoice(t, repo)
	require.NoError(t, repo.Delete(ctx, inv.ID))

	_, err := repo.FindByID(ctx, inv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var itemCount int64
	require.NoError(t, db.Model(&billing.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&itemCount).Error)
	assert.Zero(t, itemCount)

	assert.ErrorIs(t, repo.Delete(ctx, inv.ID), shared.ErrNotFound)
}
