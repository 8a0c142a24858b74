package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/internal/repository"
)

// PermissionCache invalidates cached permission sets after a role grant.
type PermissionCache interface {
	InvalidateUser(userID uuid.UUID)
}

type Service struct {
	repo     repository.ClinicRepository
	identity repository.IdentityStore
	perms    PermissionCache
}

func NewService(repo repository.ClinicRepository, identity repository.IdentityStore, perms PermissionCache) *Service {
	return &Service{repo: repo, identity: identity, perms: perms}
}

func (s *Service) Create(ctx context.Context, req *model.CreateClinicRequest) (*model.ClinicSummary, error) {
	return s.repo.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateClinicRequest) (*model.ClinicSummary, error) {
	return s.repo.Update(ctx, id, req)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ClinicSummary, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, p model.Pagination) (*model.PagedResult[*model.ClinicSummary], error) {
	p.Normalize()
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return model.NewPagedResult(items, total, p), nil
}

// CreateEmployee onboards a staff member the same way doctors are onboarded:
// account, domain records, role grant, with the account deleted again when a
// later step fails.
func (s *Service) CreateEmployee(ctx context.Context, req *model.CreateEmployeeRequest) (*model.ClinicEmployee, error) {
	if _, err := s.repo.Get(ctx, req.ClinicID); err != nil {
		return nil, err
	}

	account := &model.Account{
		Email:    req.Email,
		Username: req.Email,
		IsActive: true,
	}
	if err := s.identity.CreateAccount(ctx, account, req.Password); err != nil {
		return nil, err
	}

	employee, err := s.repo.CreateEmployee(ctx, req)
	if err != nil {
		s.compensate(ctx, account.ID)
		return nil, err
	}

	if err := s.identity.LinkParty(ctx, account.ID, employee.PersonID); err != nil {
		s.compensate(ctx, account.ID)
		return nil, fmt.Errorf("failed to link employee account: %w", err)
	}
	if err := s.identity.AddToRole(ctx, account.ID, model.RoleClinicStaff); err != nil {
		s.compensate(ctx, account.ID)
		return nil, fmt.Errorf("failed to grant clinic-staff role: %w", err)
	}
	s.perms.InvalidateUser(account.ID)

	return employee, nil
}

func (s *Service) compensate(ctx context.Context, accountID uuid.UUID) {
	if err := s.identity.DeleteAccount(ctx, accountID); err != nil {
		log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to roll back employee account")
	}
}
