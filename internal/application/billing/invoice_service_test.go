package billing

import (
	"context"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/infrastructure/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindPastDue(ctx context.Context) ([]*billing.Invoice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice, expectedVersion int) error {
	args := m.Called(ctx, invoice, expectedVersion)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCompanyProfileRepository is a mock implementation of CompanyProfileRepository
type MockCompanyProfileRepository struct {
	mock.Mock
}

func (m *MockCompanyProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*billing.CompanyProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CompanyProfile), args.Error(1)
}

func (m *MockCompanyProfileRepository) Save(ctx context.Context, profile *billing.CompanyProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockCompanyProfileRepository) SaveWithLock(ctx context.Context, profile *billing.CompanyProfile, expectedVersion int) error {
	args := m.Called(ctx, profile, expectedVersion)
	return args.Error(0)
}

// stubSequence hands out sequential values without any locking
type stubSequence struct {
	next int
}

func (s *stubSequence) Next(context.Context, string) (int, error) {
	s.next++
	return s.next, nil
}

// lockedSequence always reports contention
type lockedSequence struct{}

func (lockedSequence) Next(context.Context, string) (int, error) {
	return 0, shared.ErrNumberContention
}

// memoryIdempotency is a map-backed IdempotencyStore for tests
type memoryIdempotency struct {
	seen map[string]struct{}
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{seen: make(map[string]struct{})}
}

func (s *memoryIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

func (s *memoryIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.seen[key]
	return ok, nil
}

func (s *memoryIdempotency) Close() error { return nil }

func newServiceUnderTest(invoiceRepo *MockInvoiceRepository, profileRepo *MockCompanyProfileRepository, sequence billing.NumberSequence, fallback bool) *InvoiceService {
	if sequence == nil {
		sequence = &stubSequence{}
	}
	return NewInvoiceService(
		invoiceRepo,
		profileRepo,
		billing.NewNumberIssuer(sequence, fallback),
		newMemoryIdempotency(),
		valueobject.MustVATRate("20"),
		zap.NewNop(),
	)
}

func validCreateRequest() CreateInvoiceRequest {
	qty := decimal.NewFromInt(2)
	price := decimal.RequireFromString("10.00")
	issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return CreateInvoiceRequest{
		ClientID:  uuid.New(),
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, 14),
		Items: []CreateInvoiceItemInput{
			{Description: "Consulting", Quantity: &qty, UnitPrice: &price},
		},
	}
}

func TestInvoiceServiceCreate(t *testing.T) {
	t.Run("creates draft with computed totals", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		resp, err := svc.Create(context.Background(), validCreateRequest(), "", nil)

		require.NoError(t, err)
		assert.Equal(t, "draft", resp.Status)
		assert.Nil(t, resp.InvoiceNumber)
		assert.Equal(t, "Draft", resp.DisplayNumber)
		assert.Equal(t, "20.00", resp.Subtotal.StringFixed(2))
		assert.Equal(t, "4.00", resp.TaxAmount.StringFixed(2))
		assert.Equal(t, "24.00", resp.TotalAmount.StringFixed(2))
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("item without quantity and price becomes a zero line", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		req := validCreateRequest()
		req.Items = []CreateInvoiceItemInput{{Description: "To be priced later"}}

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		resp, err := svc.Create(context.Background(), req, "", nil)

		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.True(t, resp.Items[0].Total.IsZero())
		assert.True(t, resp.TotalAmount.IsZero())
	})

	t.Run("duplicate idempotency key rejected", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)

		_, err := svc.Create(context.Background(), validCreateRequest(), "key-1", nil)
		require.NoError(t, err)

		_, err = svc.Create(context.Background(), validCreateRequest(), "key-1", nil)
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "DUPLICATE_REQUEST", derr.Code)
	})

	t.Run("invalid dates rejected before save", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)

		req := validCreateRequest()
		req.DueDate = req.IssueDate.AddDate(0, 0, -1)
		_, err := svc.Create(context.Background(), req, "", nil)

		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		invoiceRepo.AssertNotCalled(t, "Save")
	})
}

func TestInvoiceServiceTransitionStatus(t *testing.T) {
	newStoredInvoice := func(t *testing.T) *billing.Invoice {
		t.Helper()
		issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		inv, err := billing.NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)
		inv.ClearDomainEvents()
		return inv
	}

	t.Run("leaving draft assigns a sequential number", func(t *testing.T) {
		inv := newStoredInvoice(t)
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, inv, 1).Return(nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		resp, err := svc.TransitionStatus(context.Background(), inv.ID, TransitionInvoiceRequest{Status: "sent", ExpectedVersion: 1})

		require.NoError(t, err)
		assert.Equal(t, "sent", resp.Status)
		require.NotNil(t, resp.InvoiceNumber)
		assert.Regexp(t, `^INV-\d{8}-0001$`, *resp.InvoiceNumber)
	})

	t.Run("contention without fallback fails fast", func(t *testing.T) {
		inv := newStoredInvoice(t)
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), lockedSequence{}, false)
		_, err := svc.TransitionStatus(context.Background(), inv.ID, TransitionInvoiceRequest{Status: "sent", ExpectedVersion: 1})

		require.Error(t, err)
		assert.True(t, shared.IsContention(err))
		assert.Nil(t, inv.InvoiceNumber)
		invoiceRepo.AssertNotCalled(t, "SaveWithLock")
	})

	t.Run("contention with fallback issues a random number", func(t *testing.T) {
		inv := newStoredInvoice(t)
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, inv, 1).Return(nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), lockedSequence{}, true)
		resp, err := svc.TransitionStatus(context.Background(), inv.ID, TransitionInvoiceRequest{Status: "sent", ExpectedVersion: 1})

		require.NoError(t, err)
		require.NotNil(t, resp.InvoiceNumber)
		assert.Regexp(t, `^INV-\d{8}-[0-9A-F]{8}$`, *resp.InvoiceNumber)
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		inv := newStoredInvoice(t)
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		_, err := svc.TransitionStatus(context.Background(), inv.ID, TransitionInvoiceRequest{Status: "paid", ExpectedVersion: 1})

		require.Error(t, err)
		invoiceRepo.AssertNotCalled(t, "SaveWithLock")
	})

	t.Run("version conflict surfaces from repository", func(t *testing.T) {
		inv := newStoredInvoice(t)
		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, inv, 7).Return(shared.ErrConcurrencyConflict)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		_, err := svc.TransitionStatus(context.Background(), inv.ID, TransitionInvoiceRequest{Status: "sent", ExpectedVersion: 7})

		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
		// No retry and no unguarded write path after a conflict
		invoiceRepo.AssertNumberOfCalls(t, "SaveWithLock", 1)
		invoiceRepo.AssertNotCalled(t, "Save")
	})
}

func TestInvoiceServiceSoftDeleteItem(t *testing.T) {
	issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	inv, err := billing.NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
	require.NoError(t, err)
	item, err := inv.AddItem("Only line", decimal.NewFromInt(1), decimal.RequireFromString("100.00"), valueobject.MustVATRate("20"))
	require.NoError(t, err)
	itemID := item.ID

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, inv, 1).Return(nil)

	svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
	resp, err := svc.SoftDeleteItem(context.Background(), inv.ID, itemID, DeleteInvoiceItemRequest{ExpectedVersion: 1})

	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.TotalAmount.IsZero())
}

func TestInvoiceServiceDelete(t *testing.T) {
	issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("draft can be deleted", func(t *testing.T) {
		inv, err := billing.NewInvoice(uuid.New(), issue, issue, valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)

		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		invoiceRepo.On("Delete", mock.Anything, inv.ID).Return(nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		assert.NoError(t, svc.Delete(context.Background(), inv.ID))
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("sent invoice cannot be deleted", func(t *testing.T) {
		inv, err := billing.NewInvoice(uuid.New(), issue, issue, valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)
		require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
		require.NoError(t, inv.TransitionTo(billing.InvoiceStatusSent))

		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		assert.Error(t, svc.Delete(context.Background(), inv.ID))
		invoiceRepo.AssertNotCalled(t, "Delete")
	})
}

func TestInvoiceServiceMarkOverdue(t *testing.T) {
	issue := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 0, 14)

	makeSent := func(t *testing.T, n int) *billing.Invoice {
		t.Helper()
		inv, err := billing.NewInvoice(uuid.New(), issue, due, valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)
		require.NoError(t, inv.AssignNumber(billing.FormatNumber("INV-20260801", n), false))
		require.NoError(t, inv.TransitionTo(billing.InvoiceStatusSent))
		inv.ClearDomainEvents()
		return inv
	}

	first := makeSent(t, 1)
	second := makeSent(t, 2)

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("FindPastDue", mock.Anything).Return([]*billing.Invoice{first, second}, nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, first, 1).Return(nil)
	invoiceRepo.On("SaveWithLock", mock.Anything, second, 1).Return(shared.ErrConcurrencyConflict)

	svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
	marked, err := svc.MarkOverdue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Equal(t, billing.InvoiceStatusOverdue, first.Status)
}

func TestInvoiceServicePaymentReference(t *testing.T) {
	issue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	newSentInvoice := func(t *testing.T) *billing.Invoice {
		t.Helper()
		inv, err := billing.NewInvoice(uuid.New(), issue, issue.AddDate(0, 0, 14), valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)
		_, err = inv.AddItem("Work", decimal.NewFromInt(1), decimal.RequireFromString("120.00"), valueobject.MustVATRate("20"))
		require.NoError(t, err)
		require.NoError(t, inv.AssignNumber("INV-20260901-0001", false))
		require.NoError(t, inv.TransitionTo(billing.InvoiceStatusSent))
		return inv
	}

	t.Run("returns beneficiary details from the profile", func(t *testing.T) {
		inv := newSentInvoice(t)
		profile, err := billing.NewCompanyProfile(userID)
		require.NoError(t, err)
		profile.CompanyName = "Acme s.r.o."
		profile.BankAccount = "SK3112000000198742637541"

		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		profileRepo := new(MockCompanyProfileRepository)
		profileRepo.On("FindByUserID", mock.Anything, userID).Return(profile, nil)

		svc := newServiceUnderTest(invoiceRepo, profileRepo, nil, false)
		resp, err := svc.PaymentReference(context.Background(), inv.ID, userID)

		require.NoError(t, err)
		assert.Equal(t, "INV-20260901-0001", resp.InvoiceNumber)
		assert.Equal(t, "144.00", resp.Amount.StringFixed(2))
		assert.Equal(t, "EUR", resp.Currency)
		assert.True(t, resp.DueDate.Equal(issue.AddDate(0, 0, 14)))
		assert.Equal(t, "Acme s.r.o.", resp.Beneficiary)
	})

	t.Run("payment string carries the invoice due date", func(t *testing.T) {
		inv := newSentInvoice(t)
		profile, err := billing.NewCompanyProfile(userID)
		require.NoError(t, err)
		profile.CompanyName = "Acme s.r.o."
		profile.BankAccount = "SK3112000000198742637541"

		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
		profileRepo := new(MockCompanyProfileRepository)
		profileRepo.On("FindByUserID", mock.Anything, userID).Return(profile, nil)

		svc := newServiceUnderTest(invoiceRepo, profileRepo, nil, false)
		svc.SetPaymentStringGenerator(payment.NewPayBySquareGenerator())
		resp, err := svc.PaymentReference(context.Background(), inv.ID, userID)

		require.NoError(t, err)
		require.NotEmpty(t, resp.PaymentString)
		assert.Contains(t, resp.PaymentString, "|20260915|")
	})

	t.Run("draft invoice has no payment reference", func(t *testing.T) {
		inv, err := billing.NewInvoice(uuid.New(), issue, issue, valueobject.CurrencyEUR, billing.PaymentMethodBankTransfer, nil)
		require.NoError(t, err)

		invoiceRepo := new(MockInvoiceRepository)
		invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)

		svc := newServiceUnderTest(invoiceRepo, new(MockCompanyProfileRepository), nil, false)
		_, err = svc.PaymentReference(context.Background(), inv.ID, userID)
		assert.Error(t, err)
	})
}
