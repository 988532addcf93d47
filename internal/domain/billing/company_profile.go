package billing

import (
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CompanyProfile holds the issuing business's own details, printed on
// invoices and used as the beneficiary of payment references. One profile
// exists per user.
type CompanyProfile struct {
	shared.BaseAggregateRoot
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CompanyName  string    `gorm:"size:100"`
	AddressLine1 string    `gorm:"size:100"`
	AddressLine2 string    `gorm:"size:100"`
	City         string    `gorm:"size:50"`
	State        string    `gorm:"size:50"`
	PostalCode   string    `gorm:"size:20"`
	Country      string    `gorm:"size:50"`
	Email        string    `gorm:"size:254"`
	Phone        string    `gorm:"size:20"`
	TaxID        string    `gorm:"size:50"`
	BankAccount  string    `gorm:"size:50"`
}

// TableName sets the database table name
func (CompanyProfile) TableName() string {
	return "company_profiles"
}

// NewCompanyProfile creates an empty profile for the given user
func NewCompanyProfile(userID uuid.UUID) (*CompanyProfile, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user_id", "user is required")
	}
	return &CompanyProfile{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
	}, nil
}

// HasBankAccount reports whether payment references can be generated
func (p *CompanyProfile) HasBankAccount() bool {
	return p.BankAccount != ""
}
