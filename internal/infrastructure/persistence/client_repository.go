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

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Client, error) {
	var client billing.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindAll finds clients with filtering and pagination
func (r *GormClientRepository) FindAll(ctx context.Context, filter billing.ClientFilter) ([]*billing.Client, error) {
	var clients []*billing.Client
	query := r.applyFilter(r.db.WithContext(ctx).Model(&billing.Client{}), filter)

	offset := (filter.Page - 1) * filter.PageSize
	query = query.Offset(offset).Limit(filter.PageSize)
	orderBy := ValidateSortField(filter.OrderBy, ClientSortFields, "name")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// Count counts clients matching the filter
func (r *GormClientRepository) Count(ctx context.Context, filter billing.ClientFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&billing.Client{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormClientRepository) applyFilter(query *gorm.DB, filter billing.ClientFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR vat_number LIKE ?", pattern, pattern, pattern)
	}
	return query
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *billing.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

// SaveWithLock updates a client with optimistic concurrency control
func (r *GormClientRepository) SaveWithLock(ctx context.Context, client *billing.Client, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&billing.Client{}).
			Where("id = ?", client.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}
		if currentVersion == 0 {
			return shared.ErrNotFound
		}
		if currentVersion != expectedVersion {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The client has been modified by another user")
		}

		client.Version = expectedVersion + 1
		client.UpdatedAt = time.Now()

		result := tx.Model(&billing.Client{}).
			Where("id = ? AND version = ?", client.ID, expectedVersion).
			Updates(map[string]interface{}{
				"type":           client.Type,
				"name":           client.Name,
				"email":          client.Email,
				"phone":          client.Phone,
				"mobile":         client.Mobile,
				"tax_number":     client.TaxNumber,
				"vat_number":     client.VATNumber,
				"address":        client.Address,
				"city":           client.City,
				"state":          client.State,
				"postal_code":    client.PostalCode,
				"country":        client.Country,
				"website":        client.Website,
				"notes":          client.Notes,
				"account_number": client.AccountNumber,
				"iban":           client.IBAN,
				"bic_swift":      client.BICSwift,
				"bank_name":      client.BankName,
				"updated_by":     client.UpdatedBy,
				"version":        client.Version,
				"updated_at":     client.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The client has been modified by another user")
		}
		return nil
	})
}

// Delete removes a client and its notes
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&billing.ClientNote{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&billing.Client{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// AddNote stores a client note
func (r *GormClientRepository) AddNote(ctx context.Context, note *billing.ClientNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// FindNotes returns the notes of a client, newest first
func (r *GormClientRepository) FindNotes(ctx context.Context, clientID uuid.UUID) ([]*billing.ClientNote, error) {
	var notes []*billing.ClientNote
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
