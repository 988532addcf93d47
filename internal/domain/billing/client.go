package billing

import (
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientType distinguishes individual and company clients
type ClientType string

const (
	ClientTypeIndividual ClientType = "individual"
	ClientTypeCompany    ClientType = "company"
)

// IsValid checks if the client type is valid
func (t ClientType) IsValid() bool {
	return t == ClientTypeIndividual || t == ClientTypeCompany
}

// Client is the aggregate root for a billable party
type Client struct {
	shared.BaseAggregateRoot
	Type       ClientType `gorm:"size:10;not null;default:individual"`
	Name       string     `gorm:"size:200;not null;index"`
	Email      string     `gorm:"size:254"`
	Phone      string     `gorm:"size:20"`
	Mobile     string     `gorm:"size:20"`
	TaxNumber  string     `gorm:"size:50"`
	VATNumber  string     `gorm:"size:50"`
	Address    string     `gorm:"type:text"`
	City       string     `gorm:"size:100"`
	State      string     `gorm:"size:100"`
	PostalCode string     `gorm:"size:20"`
	Country    string     `gorm:"size:2;not null;default:SK"`
	Website    string     `gorm:"size:200"`
	Notes      string     `gorm:"type:text"`

	// Payment information
	AccountNumber string `gorm:"size:50"`
	IBAN          string `gorm:"size:50"`
	BICSwift      string `gorm:"size:20"`
	BankName      string `gorm:"size:100"`

	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName sets the database table name
func (Client) TableName() string {
	return "clients"
}

// NewClient creates a new client aggregate
func NewClient(clientType ClientType, name string, createdBy *uuid.UUID) (*Client, error) {
	verr := &shared.ValidationError{}
	if name == "" {
		verr.Add("name", "name cannot be empty")
	}
	if clientType == "" {
		clientType = ClientTypeIndividual
	}
	if !clientType.IsValid() {
		verr.Add("type", "client type must be individual or company")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	return &Client{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              clientType,
		Name:              name,
		Country:           "SK",
		CreatedBy:         createdBy,
		UpdatedBy:         createdBy,
	}, nil
}

// Rename changes the client display name
func (c *Client) Rename(name string, updatedBy *uuid.UUID) error {
	if name == "" {
		return shared.NewValidationError("name", "name cannot be empty")
	}
	c.Name = name
	c.UpdatedBy = updatedBy
	c.Touch()
	return nil
}

// DisplayName returns the name suffixed with the company marker
func (c *Client) DisplayName() string {
	if c.Type == ClientTypeCompany {
		return c.Name + " (Company)"
	}
	return c.Name
}

// ClientNote is a dated free-form note attached to a client
type ClientNote struct {
	shared.BaseEntity
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Note      string     `gorm:"type:text;not null"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName sets the database table name
func (ClientNote) TableName() string {
	return "client_notes"
}

// NewClientNote creates a note attached to the given client
func NewClientNote(clientID uuid.UUID, note string, createdBy *uuid.UUID) (*ClientNote, error) {
	if note == "" {
		return nil, shared.NewValidationError("note", "note cannot be empty")
	}
	return &ClientNote{
		BaseEntity: shared.NewBaseEntity(),
		ClientID:   clientID,
		Note:       note,
		CreatedBy:  createdBy,
	}, nil
}
