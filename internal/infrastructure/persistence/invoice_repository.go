package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with all its items, soft-deleted ones included
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByNumber finds an invoice by its assigned number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("invoice_number = ?", number).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAll finds invoices with filtering and pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	query := r.applyFilter(r.db.WithContext(ctx).Model(&billing.Invoice{}), filter)

	offset := (filter.Page - 1) * filter.PageSize
	query = query.Offset(offset).Limit(filter.PageSize)

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Preload("Items").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&billing.Invoice{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Search != "" {
		query = query.Where("invoice_number LIKE ? OR notes LIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}

// FindPastDue finds sent and pending invoices whose due date has passed
func (r *GormInvoiceRepository) FindPastDue(ctx context.Context) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	today := time.Now().Format("2006-01-02")
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status IN ? AND due_date < ?",
			[]billing.InvoiceStatus{billing.InvoiceStatusSent, billing.InvoiceStatusPending}, today).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice together with its items. Items are
// never hard-deleted here: rows removed from the aggregate stay in storage
// only if they are marked soft-deleted, everything else is upserted.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(invoice).Error; err != nil {
			return err
		}
		return r.saveItems(tx, invoice)
	})
}

func (r *GormInvoiceRepository) saveItems(tx *gorm.DB, invoice *billing.Invoice) error {
	for i := range invoice.Items {
		invoice.Items[i].InvoiceID = invoice.ID
		if err := tx.Save(&invoice.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// SaveWithLock updates an invoice with optimistic concurrency control.
// The caller supplies the version it based its changes on; a mismatch with
// the stored row fails the whole transaction with ErrConcurrencyConflict.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&billing.Invoice{}).
			Where("id = ?", invoice.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if currentVersion == 0 {
			return shared.ErrNotFound
		}
		if currentVersion != expectedVersion {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another user")
		}

		invoice.Version = expectedVersion + 1
		invoice.UpdatedAt = time.Now()

		result := tx.Model(&billing.Invoice{}).
			Where("id = ? AND version = ?", invoice.ID, expectedVersion).
			Updates(map[string]interface{}{
				"invoice_number": invoice.InvoiceNumber,
				"client_id":      invoice.ClientID,
				"issue_date":     invoice.IssueDate,
				"due_date":       invoice.DueDate,
				"status":         invoice.Status,
				"payment_method": invoice.PaymentMethod,
				"currency":       invoice.Currency,
				"subtotal":       invoice.Subtotal,
				"tax_amount":     invoice.TaxAmount,
				"total_amount":   invoice.TotalAmount,
				"tax_breakdown":  invoice.TaxBreakdown,
				"notes":          invoice.Notes,
				"version":        invoice.Version,
				"updated_at":     invoice.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The invoice has been modified by another user")
		}

		return r.saveItems(tx, invoice)
	})
}

// Delete removes an invoice and its items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&billing.InvoiceItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&billing.Invoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
