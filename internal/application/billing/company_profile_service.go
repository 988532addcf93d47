package billing

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyProfileService handles the issuing company's own profile
type CompanyProfileService struct {
	profileRepo billing.CompanyProfileRepository
	logger      *zap.Logger
}

// NewCompanyProfileService creates a new CompanyProfileService
func NewCompanyProfileService(profileRepo billing.CompanyProfileRepository, logger *zap.Logger) *CompanyProfileService {
	return &CompanyProfileService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// GetOrCreate returns the user's profile, creating an empty one on first use
func (s *CompanyProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*CompanyProfileResponse, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		profile, err = billing.NewCompanyProfile(userID)
		if err != nil {
			return nil, err
		}
		if err := s.profileRepo.Save(ctx, profile); err != nil {
			return nil, err
		}
		s.logger.Info("company profile created", zap.String("user_id", userID.String()))
	}
	response := ToCompanyProfileResponse(profile)
	return &response, nil
}

// Update updates the profile under optimistic locking
func (s *CompanyProfileService) Update(ctx context.Context, userID uuid.UUID, req UpdateCompanyProfileRequest) (*CompanyProfileResponse, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&profile.CompanyName, req.CompanyName)
	applyString(&profile.AddressLine1, req.AddressLine1)
	applyString(&profile.AddressLine2, req.AddressLine2)
	applyString(&profile.City, req.City)
	applyString(&profile.State, req.State)
	applyString(&profile.PostalCode, req.PostalCode)
	applyString(&profile.Country, req.Country)
	applyString(&profile.Email, req.Email)
	applyString(&profile.Phone, req.Phone)
	applyString(&profile.TaxID, req.TaxID)
	applyString(&profile.BankAccount, req.BankAccount)
	profile.Touch()

	if err := s.profileRepo.SaveWithLock(ctx, profile, req.ExpectedVersion); err != nil {
		return nil, err
	}

	response := ToCompanyProfileResponse(profile)
	return &response, nil
}
