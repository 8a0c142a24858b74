package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/internal/repository"
	"github.com/ivyhms/clinic-api/internal/service/scope"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

type Service struct {
	repo   repository.PatientRepository
	scopes *scope.Resolver
}

func NewService(repo repository.PatientRepository, scopes *scope.Resolver) *Service {
	return &Service{repo: repo, scopes: scopes}
}

// Create registers a patient, reusing an existing person record when the
// national number is already known.
func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientSummary, error) {
	if err := ValidateNationalNumber(req.NationalNumber); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	return s.repo.Get(ctx, id)
}

// List returns the page of patients the caller's role lets them see: their
// own record for a patient, their treated patients for a doctor, their
// clinics' patients for staff, everyone for an admin.
func (s *Service) List(ctx context.Context, userID uuid.UUID, p model.Pagination) (*model.PagedResult[*model.PatientSummary], error) {
	p.Normalize()
	listScope, err := s.scopes.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.List(ctx, listScope, p)
	if err != nil {
		return nil, err
	}
	return model.NewPagedResult(items, total, p), nil
}

// ValidateNationalNumber enforces the 11 digit format shared by every
// registration path.
func ValidateNationalNumber(n string) error {
	if len(n) != 11 {
		return apperror.Validation("national number must be exactly 11 digits", "national_number")
	}
	for _, c := range n {
		if c < '0' || c > '9' {
			return apperror.Validation("national number must contain digits only", "national_number")
		}
	}
	return nil
}
