package billing

import (
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	ClientID      uuid.UUID                `json:"client_id" binding:"required"`
	IssueDate     time.Time                `json:"issue_date" binding:"required"`
	DueDate       time.Time                `json:"due_date" binding:"required"`
	Currency      string                   `json:"currency" binding:"omitempty,currency"`
	PaymentMethod string                   `json:"payment_method"`
	Notes         string                   `json:"notes"`
	Items         []CreateInvoiceItemInput `json:"items"`
}

// CreateInvoiceItemInput represents a line item in the create request.
// Quantity and unit price are optional: absent values produce a zero line.
type CreateInvoiceItemInput struct {
	Description string           `json:"description" binding:"required,min=1,max=200"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

// UpdateInvoiceRequest represents a request to update invoice header fields
type UpdateInvoiceRequest struct {
	IssueDate       *time.Time `json:"issue_date"`
	DueDate         *time.Time `json:"due_date"`
	PaymentMethod   *string    `json:"payment_method"`
	Notes           *string    `json:"notes"`
	ExpectedVersion int        `json:"expected_version" binding:"required,min=1"`
}

// AddInvoiceItemRequest represents a request to add a line item
type AddInvoiceItemRequest struct {
	Description     string           `json:"description" binding:"required,min=1,max=200"`
	Quantity        decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice       decimal.Decimal  `json:"unit_price" binding:"required"`
	VATRate         *decimal.Decimal `json:"vat_rate"`
	ExpectedVersion int              `json:"expected_version" binding:"required,min=1"`
}

// UpdateInvoiceItemRequest represents a request to update a line item
type UpdateInvoiceItemRequest struct {
	Description     *string          `json:"description"`
	Quantity        *decimal.Decimal `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	ExpectedVersion int              `json:"expected_version" binding:"required,min=1"`
}

// DeleteInvoiceItemRequest represents a request to soft-delete a line item
type DeleteInvoiceItemRequest struct {
	ExpectedVersion int `json:"expected_version" binding:"required,min=1"`
}

// TransitionInvoiceRequest represents a request to change invoice status
type TransitionInvoiceRequest struct {
	Status          string `json:"status" binding:"required"`
	ExpectedVersion int    `json:"expected_version" binding:"required,min=1"`
}

// InvoiceListFilter represents filtering options for invoice lists
type InvoiceListFilter struct {
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
	OrderBy  string  `form:"order_by"`
	OrderDir string  `form:"order_dir"`
	Search   string  `form:"search"`
	Status   *string `form:"status"`
	ClientID *uuid.UUID
}

// InvoiceItemResponse represents a line item in API responses
type InvoiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     string          `json:"vat_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
	Deleted     bool            `json:"deleted"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	InvoiceNumber *string               `json:"invoice_number"`
	DisplayNumber string                `json:"display_number"`
	ClientID      uuid.UUID             `json:"client_id"`
	IssueDate     time.Time             `json:"issue_date"`
	DueDate       time.Time             `json:"due_date"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"payment_method"`
	Currency      string                `json:"currency"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	TaxAmount     decimal.Decimal       `json:"tax_amount"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	TaxBreakdown  billing.TaxBreakdown  `json:"tax_breakdown"`
	Notes         string                `json:"notes,omitempty"`
	Items         []InvoiceItemResponse `json:"items"`
	Version       int                   `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// InvoiceListItemResponse represents an invoice row in list responses
type InvoiceListItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	DisplayNumber string          `json:"display_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Version       int             `json:"version"`
}

// PaymentReferenceResponse carries the machine-readable payment data for an
// invoice, including the Pay by Square payload when available
type PaymentReferenceResponse struct {
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Currency      string          `json:"currency"`
	Beneficiary   string          `json:"beneficiary"`
	IBAN          string          `json:"iban"`
	PaymentString string          `json:"payment_string,omitempty"`
}

// ToInvoiceItemResponse converts a domain item to its response form
func ToInvoiceItemResponse(item billing.InvoiceItem) InvoiceItemResponse {
	totals := item.LineTotals()
	return InvoiceItemResponse{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		VATRate:     item.VATRate.Key(),
		Subtotal:    totals.Subtotal,
		TaxAmount:   totals.TaxAmount,
		Total:       totals.Total,
		Deleted:     item.Deleted,
	}
}

// ToInvoiceResponse converts a domain invoice to its response form.
// Soft-deleted items are excluded.
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	active := inv.ActiveItems()
	items := make([]InvoiceItemResponse, 0, len(active))
	for _, item := range active {
		items = append(items, ToInvoiceItemResponse(item))
	}
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		DisplayNumber: inv.NumberOrDraft(),
		ClientID:      inv.ClientID,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Status:        inv.Status.String(),
		PaymentMethod: string(inv.PaymentMethod),
		Currency:      string(inv.Currency),
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		TaxBreakdown:  inv.TaxBreakdown,
		Notes:         inv.Notes,
		Items:         items,
		Version:       inv.GetVersion(),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// ToInvoiceListItemResponses converts domain invoices to list rows
func ToInvoiceListItemResponses(invoices []*billing.Invoice) []InvoiceListItemResponse {
	out := make([]InvoiceListItemResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, InvoiceListItemResponse{
			ID:            inv.ID,
			DisplayNumber: inv.NumberOrDraft(),
			ClientID:      inv.ClientID,
			IssueDate:     inv.IssueDate,
			DueDate:       inv.DueDate,
			Status:        inv.Status.String(),
			Currency:      string(inv.Currency),
			TotalAmount:   inv.TotalAmount,
			Version:       inv.GetVersion(),
		})
	}
	return out
}

// ==================== Client DTOs ====================

// CreateClientRequest represents a request to create a client
type CreateClientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name" binding:"required,min=1,max=200"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone"`
	Mobile        string `json:"mobile"`
	TaxNumber     string `json:"tax_number"`
	VATNumber     string `json:"vat_number"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Website       string `json:"website"`
	Notes         string `json:"notes"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
	BICSwift      string `json:"bic_swift"`
	BankName      string `json:"bank_name"`
}

// UpdateClientRequest represents a request to update a client
type UpdateClientRequest struct {
	Type            *string `json:"type"`
	Name            *string `json:"name"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Phone           *string `json:"phone"`
	Mobile          *string `json:"mobile"`
	TaxNumber       *string `json:"tax_number"`
	VATNumber       *string `json:"vat_number"`
	Address         *string `json:"address"`
	City            *string `json:"city"`
	State           *string `json:"state"`
	PostalCode      *string `json:"postal_code"`
	Country         *string `json:"country"`
	Website         *string `json:"website"`
	Notes           *string `json:"notes"`
	AccountNumber   *string `json:"account_number"`
	IBAN            *string `json:"iban"`
	BICSwift        *string `json:"bic_swift"`
	BankName        *string `json:"bank_name"`
	ExpectedVersion int     `json:"expected_version" binding:"required,min=1"`
}

// AddClientNoteRequest represents a request to attach a note to a client
type AddClientNoteRequest struct {
	Note string `json:"note" binding:"required,min=1"`
}

// ClientListFilter represents filtering options for client lists
type ClientListFilter struct {
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
	OrderBy  string  `form:"order_by"`
	OrderDir string  `form:"order_dir"`
	Search   string  `form:"search"`
	Type     *string `form:"type"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Mobile        string    `json:"mobile,omitempty"`
	TaxNumber     string    `json:"tax_number,omitempty"`
	VATNumber     string    `json:"vat_number,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	Country       string    `json:"country"`
	Website       string    `json:"website,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	AccountNumber string    `json:"account_number,omitempty"`
	IBAN          string    `json:"iban,omitempty"`
	BICSwift      string    `json:"bic_swift,omitempty"`
	BankName      string    `json:"bank_name,omitempty"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClientNoteResponse represents a client note in API responses
type ClientNoteResponse struct {
	ID        uuid.UUID `json:"id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// ToClientResponse converts a domain client to its response form
func ToClientResponse(c *billing.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		Type:          string(c.Type),
		Name:          c.Name,
		DisplayName:   c.DisplayName(),
		Email:         c.Email,
		Phone:         c.Phone,
		Mobile:        c.Mobile,
		TaxNumber:     c.TaxNumber,
		VATNumber:     c.VATNumber,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		PostalCode:    c.PostalCode,
		Country:       c.Country,
		Website:       c.Website,
		Notes:         c.Notes,
		AccountNumber: c.AccountNumber,
		IBAN:          c.IBAN,
		BICSwift:      c.BICSwift,
		BankName:      c.BankName,
		Version:       c.GetVersion(),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToClientResponses converts domain clients to response forms
func ToClientResponses(clients []*billing.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, ToClientResponse(c))
	}
	return out
}

// ToClientNoteResponses converts domain notes to response forms
func ToClientNoteResponses(notes []*billing.ClientNote) []ClientNoteResponse {
	out := make([]ClientNoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, ClientNoteResponse{ID: n.ID, Note: n.Note, CreatedAt: n.CreatedAt})
	}
	return out
}

// ==================== Company Profile DTOs ====================

// UpdateCompanyProfileRequest represents a request to update the profile
type UpdateCompanyProfileRequest struct {
	CompanyName     *string `json:"company_name"`
	AddressLine1    *string `json:"address_line1"`
	AddressLine2    *string `json:"address_line2"`
	City            *string `json:"city"`
	State           *string `json:"state"`
	PostalCode      *string `json:"postal_code"`
	Country         *string `json:"country"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Phone           *string `json:"phone"`
	TaxID           *string `json:"tax_id"`
	BankAccount     *string `json:"bank_account"`
	ExpectedVersion int     `json:"expected_version" binding:"required,min=1"`
}

// CompanyProfileResponse represents the company profile in API responses
type CompanyProfileResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	CompanyName  string    `json:"company_name,omitempty"`
	AddressLine1 string    `json:"address_line1,omitempty"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty"`
	Country      string    `json:"country,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	TaxID        string    `json:"tax_id,omitempty"`
	BankAccount  string    `json:"bank_account,omitempty"`
	Version      int       `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToCompanyProfileResponse converts a domain profile to its response form
func ToCompanyProfileResponse(p *billing.CompanyProfile) CompanyProfileResponse {
	return CompanyProfileResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		CompanyName:  p.CompanyName,
		AddressLine1: p.AddressLine1,
		AddressLine2: p.AddressLine2,
		City:         p.City,
		State:        p.State,
		PostalCode:   p.PostalCode,
		Country:      p.Country,
		Email:        p.Email,
		Phone:        p.Phone,
		TaxID:        p.TaxID,
		BankAccount:  p.BankAccount,
		Version:      p.GetVersion(),
		UpdatedAt:    p.UpdatedAt,
	}
}
