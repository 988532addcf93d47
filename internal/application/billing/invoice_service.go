package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentStringGenerator builds a machine-readable payment payload for an
// invoice, such as a Pay by Square string
type PaymentStringGenerator interface {
	Generate(invoiceNumber string, amount decimal.Decimal, currency valueobject.Currency, dueDate time.Time, iban, beneficiary string) (string, error)
}

// InvoiceService handles invoice business operations
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	profileRepo    billing.CompanyProfileRepository
	numberIssuer   *billing.NumberIssuer
	idempotency    shared.IdempotencyStore
	paymentStrings PaymentStringGenerator
	eventPublisher shared.EventPublisher
	defaultVATRate valueobject.VATRate
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	profileRepo billing.CompanyProfileRepository,
	numberIssuer *billing.NumberIssuer,
	idempotency shared.IdempotencyStore,
	defaultVATRate valueobject.VATRate,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		profileRepo:    profileRepo,
		numberIssuer:   numberIssuer,
		idempotency:    idempotency,
		defaultVATRate: defaultVATRate,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for domain event propagation
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetPaymentStringGenerator sets the payment payload generator
func (s *InvoiceService) SetPaymentStringGenerator(gen PaymentStringGenerator) {
	s.paymentStrings = gen
}

const idempotencyTTL = 24 * time.Hour

// Create creates a new draft invoice. When an idempotency key is supplied
// and was already processed, the call is rejected as a duplicate.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest, idempotencyKey string, createdBy *uuid.UUID) (*InvoiceResponse, error) {
	if idempotencyKey != "" && s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, "invoice:create:"+idempotencyKey, idempotencyTTL)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, shared.NewDomainError("DUPLICATE_REQUEST", "This request was already processed")
		}
	}

	inv, err := billing.NewInvoice(
		req.ClientID,
		req.IssueDate,
		req.DueDate,
		valueobject.Currency(req.Currency),
		billing.PaymentMethod(req.PaymentMethod),
		createdBy,
	)
	if err != nil {
		return nil, err
	}
	inv.Notes = req.Notes

	for _, item := range req.Items {
		if err := s.addItemInput(inv, item); err != nil {
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("client_id", inv.ClientID.String()),
		zap.String("total", inv.TotalAmount.StringFixed(2)))

	response := ToInvoiceResponse(inv)
	return &response, nil
}

func (s *InvoiceService) addItemInput(inv *billing.Invoice, input CreateInvoiceItemInput) error {
	rate := s.defaultVATRate
	if input.VATRate != nil {
		var err error
		rate, err = valueobject.NewVATRate(*input.VATRate)
		if err != nil {
			return err
		}
	}

	// A line without quantity or price is stored as a zero placeholder
	qty := decimal.Zero
	price := decimal.Zero
	if input.Quantity != nil {
		qty = *input.Quantity
	}
	if input.UnitPrice != nil {
		price = *input.UnitPrice
	}
	if qty.IsZero() && price.IsZero() {
		item := billing.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: input.Description,
			Quantity:    decimal.Zero,
			UnitPrice:   decimal.Zero,
			VATRate:     rate,
			Total:       decimal.Zero,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		inv.Items = append(inv.Items, item)
		inv.Recompute()
		return nil
	}

	_, err := inv.AddItem(input.Description, qty, price, rate)
	return err
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// GetByNumber retrieves an invoice by its assigned number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// List retrieves invoices with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceListItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := billing.InvoiceFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		ClientID: filter.ClientID,
	}
	if filter.Status != nil {
		status := billing.InvoiceStatus(*filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status))
		}
		domainFilter.Status = &status
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceListItemResponses(invoices), total, nil
}

// Update updates invoice header fields under optimistic locking
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update a %s invoice", inv.Status))
	}

	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if req.PaymentMethod != nil {
		method := billing.PaymentMethod(*req.PaymentMethod)
		if !method.IsValid() {
			return nil, shared.NewValidationError("payment_method", fmt.Sprintf("unsupported payment method %q", *req.PaymentMethod))
		}
		inv.PaymentMethod = method
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	inv.Touch()

	if err := s.invoiceRepo.SaveWithLock(ctx, inv, req.ExpectedVersion); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// AddItem adds a line item to an invoice under optimistic locking
func (s *InvoiceService) AddItem(ctx context.Context, invoiceID uuid.UUID, req AddInvoiceItemRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	rate := s.defaultVATRate
	if req.VATRate != nil {
		rate, err = valueobject.NewVATRate(*req.VATRate)
		if err != nil {
			return nil, err
		}
	}
	if _, err := inv.AddItem(req.Description, req.Quantity, req.UnitPrice, rate); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv, req.ExpectedVersion); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// UpdateItem updates a line item under optimistic locking
func (s *InvoiceService) UpdateItem(ctx context.Context, invoiceID, itemID uuid.UUID, req UpdateInvoiceItemRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.UpdateItem(itemID, req.Description, req.Quantity, req.UnitPrice); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv, req.ExpectedVersion); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// SoftDeleteItem soft-deletes a line item and recomputes the totals
func (s *InvoiceService) SoftDeleteItem(ctx context.Context, invoiceID, itemID uuid.UUID, req DeleteInvoiceItemRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.SoftDeleteItem(itemID, time.Now()); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv, req.ExpectedVersion); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	s.logger.Info("invoice item soft deleted",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("item_id", itemID.String()))

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// TransitionStatus moves an invoice to a new status. Leaving draft assigns
// the invoice number first; under allocator contention with the fallback
// disabled the transition fails and nothing is persisted.
func (s *InvoiceService) TransitionStatus(ctx context.Context, id uuid.UUID, req TransitionInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := billing.InvoiceStatus(req.Status)
	if !target.IsValid() {
		return nil, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", req.Status))
	}

	if inv.RequiresNumber(target) {
		number, usedFallback, err := s.numberIssuer.Issue(ctx)
		if err != nil {
			return nil, err
		}
		if err := inv.AssignNumber(number, usedFallback); err != nil {
			return nil, err
		}
		if usedFallback {
			s.logger.Warn("invoice number allocated via random fallback",
				zap.String("invoice_id", inv.ID.String()),
				zap.String("number", number))
		}
	}

	if err := inv.TransitionTo(target); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv, req.ExpectedVersion); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	s.logger.Info("invoice status changed",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("status", target.String()))

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// MarkOverdue flags all past-due sent and pending invoices as overdue.
// It returns the number of invoices transitioned.
func (s *InvoiceService) MarkOverdue(ctx context.Context) (int, error) {
	invoices, err := s.invoiceRepo.FindPastDue(ctx)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, inv := range invoices {
		if err := inv.TransitionTo(billing.InvoiceStatusOverdue); err != nil {
			continue
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, inv, inv.GetVersion()); err != nil {
			// A concurrent writer got there first, skip this one
			if shared.IsConflict(err) {
				continue
			}
			return marked, err
		}
		s.publishEvents(ctx, inv)
		marked++
	}

	if marked > 0 {
		s.logger.Info("overdue sweep complete", zap.Int("marked", marked))
	}
	return marked, nil
}

// Delete removes a draft invoice entirely. Non-draft invoices are part of
// the accounting record and can only be cancelled.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !inv.IsDraft() {
		return shared.NewDomainError("INVALID_STATE", "Only draft invoices can be deleted, cancel instead")
	}
	return s.invoiceRepo.Delete(ctx, id)
}

// PaymentReference builds the payment details for an invoice, including a
// Pay by Square payment string when a generator and bank account are set
func (s *InvoiceService) PaymentReference(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*PaymentReferenceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceNumber == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Draft invoices have no payment reference")
	}
	if !inv.IsPayable() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("A %s invoice cannot be paid", inv.Status))
	}

	response := &PaymentReferenceResponse{
		InvoiceNumber: *inv.InvoiceNumber,
		Amount:        inv.TotalAmount,
		DueDate:       inv.DueDate,
		Currency:      string(inv.Currency),
	}

	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return response, nil
		}
		return nil, err
	}
	response.Beneficiary = profile.CompanyName
	response.IBAN = profile.BankAccount

	if s.paymentStrings != nil && profile.HasBankAccount() {
		payload, err := s.paymentStrings.Generate(*inv.InvoiceNumber, inv.TotalAmount, inv.Currency, inv.DueDate, profile.BankAccount, profile.CompanyName)
		if err != nil {
			s.logger.Warn("payment string generation failed",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
		} else {
			response.PaymentString = payload
		}
	}
	return response, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, inv *billing.Invoice) {
	if s.eventPublisher == nil {
		inv.ClearDomainEvents()
		return
	}
	for _, event := range inv.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	inv.ClearDomainEvents()
}
