package billing

import (
	"context"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter narrows down invoice listings
type InvoiceFilter struct {
	shared.Filter
	Status    *InvoiceStatus
	ClientID  *uuid.UUID
	CreatedBy *uuid.UUID
}

// InvoiceRepository defines invoice persistence operations
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)
	FindPastDue(ctx context.Context) ([]*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClientFilter narrows down client listings
type ClientFilter struct {
	shared.Filter
	Type *ClientType
}

// ClientRepository defines client persistence operations
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindAll(ctx context.Context, filter ClientFilter) ([]*Client, error)
	Count(ctx context.Context, filter ClientFilter) (int64, error)
	Save(ctx context.Context, client *Client) error
	SaveWithLock(ctx context.Context, client *Client, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddNote(ctx context.Context, note *ClientNote) error
	FindNotes(ctx context.Context, clientID uuid.UUID) ([]*ClientNote, error)
}

// CompanyProfileRepository defines company profile persistence operations
type CompanyProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*CompanyProfile, error)
	Save(ctx context.Context, profile *CompanyProfile) error
	SaveWithLock(ctx context.Context, profile *CompanyProfile, expectedVersion int) error
}
