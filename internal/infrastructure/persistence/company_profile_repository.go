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

// GormCompanyProfileRepository implements CompanyProfileRepository using GORM
type GormCompanyProfileRepository struct {
	db *gorm.DB
}

// NewGormCompanyProfileRepository creates a new GormCompanyProfileRepository
func NewGormCompanyProfileRepository(db *gorm.DB) *GormCompanyProfileRepository {
	return &GormCompanyProfileRepository{db: db}
}

// FindByUserID finds the profile owned by a user
func (r *GormCompanyProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.CompanyProfile, error) {
	var profile billing.CompanyProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Save creates or updates a profile
func (r *GormCompanyProfileRepository) Save(ctx context.Context, profile *billing.CompanyProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// SaveWithLock updates a profile with optimistic concurrency control
func (r *GormCompanyProfileRepository) SaveWithLock(ctx context.Context, profile *billing.CompanyProfile, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&billing.CompanyProfile{}).
			Where("id = ?", profile.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}
		if currentVersion == 0 {
			return shared.ErrNotFound
		}
		if currentVersion != expectedVersion {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The profile has been modified by another user")
		}

		profile.Version = expectedVersion + 1
		profile.UpdatedAt = time.Now()

		result := tx.Model(&billing.CompanyProfile{}).
			Where("id = ? AND version = ?", profile.ID, expectedVersion).
			Updates(map[string]interface{}{
				"company_name":  profile.CompanyName,
				"address_line1": profile.AddressLine1,
				"address_line2": profile.AddressLine2,
				"city":          profile.City,
				"state":         profile.State,
				"postal_code":   profile.PostalCode,
				"country":       profile.Country,
				"email":         profile.Email,
				"phone":         profile.Phone,
				"tax_id":        profile.TaxID,
				"bank_account":  profile.BankAccount,
				"version":       profile.Version,
				"updated_at":    profile.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The profile has been modified by another user")
		}
		return nil
	})
}
