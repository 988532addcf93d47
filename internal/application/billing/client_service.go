package billing

import (
	"context"
	"fmt"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService handles client business operations
type ClientService struct {
	clientRepo billing.ClientRepository
	logger     *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo billing.ClientRepository, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// Create creates a new client
func (s *ClientService) Create(ctx context.Context, req CreateClientRequest, createdBy *uuid.UUID) (*ClientResponse, error) {
	client, err := billing.NewClient(billing.ClientType(req.Type), req.Name, createdBy)
	if err != nil {
		return nil, err
	}

	client.Email = req.Email
	client.Phone = req.Phone
	client.Mobile = req.Mobile
	client.TaxNumber = req.TaxNumber
	client.VATNumber = req.VATNumber
	client.Address = req.Address
	client.City = req.City
	client.State = req.State
	client.PostalCode = req.PostalCode
	if req.Country != "" {
		client.Country = req.Country
	}
	client.Website = req.Website
	client.Notes = req.Notes
	client.AccountNumber = req.AccountNumber
	client.IBAN = req.IBAN
	client.BICSwift = req.BICSwift
	client.BankName = req.BankName

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("type", string(client.Type)))

	response := ToClientResponse(client)
	return &response, nil
}

// GetByID retrieves a client by ID
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToClientResponse(client)
	return &response, nil
}

// List retrieves clients with filtering and pagination
func (s *ClientService) List(ctx context.Context, filter ClientListFilter) ([]ClientResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := billing.ClientFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
	}
	if filter.Type != nil {
		clientType := billing.ClientType(*filter.Type)
		if !clientType.IsValid() {
			return nil, 0, shared.NewValidationError("type", fmt.Sprintf("unknown client type %q", *filter.Type))
		}
		domainFilter.Type = &clientType
	}

	clients, err := s.clientRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.clientRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToClientResponses(clients), total, nil
}

// Update updates a client under optimistic locking
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest, updatedBy *uuid.UUID) (*ClientResponse, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		clientType := billing.ClientType(*req.Type)
		if !clientType.IsValid() {
			return nil, shared.NewValidationError("type", fmt.Sprintf("unknown client type %q", *req.Type))
		}
		client.Type = clientType
	}
	if req.Name != nil {
		if err := client.Rename(*req.Name, updatedBy); err != nil {
			return nil, err
		}
	}
	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&client.Email, req.Email)
	applyString(&client.Phone, req.Phone)
	applyString(&client.Mobile, req.Mobile)
	applyString(&client.TaxNumber, req.TaxNumber)
	applyString(&client.VATNumber, req.VATNumber)
	applyString(&client.Address, req.Address)
	applyString(&client.City, req.City)
	applyString(&client.State, req.State)
	applyString(&client.PostalCode, req.PostalCode)
	applyString(&client.Country, req.Country)
	applyString(&client.Website, req.Website)
	applyString(&client.Notes, req.Notes)
	applyString(&client.AccountNumber, req.AccountNumber)
	applyString(&client.IBAN, req.IBAN)
	applyString(&client.BICSwift, req.BICSwift)
	applyString(&client.BankName, req.BankName)
	client.UpdatedBy = updatedBy
	client.Touch()

	if err := s.clientRepo.SaveWithLock(ctx, client, req.ExpectedVersion); err != nil {
		return nil, err
	}

	response := ToClientResponse(client)
	return &response, nil
}

// Delete removes a client
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.clientRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("client deleted", zap.String("client_id", id.String()))
	return nil
}

// AddNote attaches a dated note to a client
func (s *ClientService) AddNote(ctx context.Context, clientID uuid.UUID, req AddClientNoteRequest, createdBy *uuid.UUID) (*ClientNoteResponse, error) {
	if _, err := s.clientRepo.FindByID(ctx, clientID); err != nil {
		return nil, err
	}
	note, err := billing.NewClientNote(clientID, req.Note, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.clientRepo.AddNote(ctx, note); err != nil {
		return nil, err
	}
	return &ClientNoteResponse{ID: note.ID, Note: note.Note, CreatedAt: note.CreatedAt}, nil
}

// ListNotes returns the notes of a client, newest first
func (s *ClientService) ListNotes(ctx context.Context, clientID uuid.UUID) ([]ClientNoteResponse, error) {
	if _, err := s.clientRepo.FindByID(ctx, clientID); err != nil {
		return nil, err
	}
	notes, err := s.clientRepo.FindNotes(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ToClientNoteResponses(notes), nil
}
