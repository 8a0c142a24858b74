package doctor

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
	repo     repository.DoctorRepository
	identity repository.IdentityStore
	perms    PermissionCache
}

func NewService(repo repository.DoctorRepository, identity repository.IdentityStore, perms PermissionCache) *Service {
	return &Service{repo: repo, identity: identity, perms: perms}
}

// Create onboards a doctor: login account first, then the domain records in
// one transaction, then the role grant. A failure after the account exists
// deletes it again so a retry starts clean.
func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.DoctorSummary, error) {
	account := &model.Account{
		Email:    req.Email,
		Username: req.Email,
		IsActive: true,
	}
	if err := s.identity.CreateAccount(ctx, account, req.Password); err != nil {
		return nil, err
	}

	summary, err := s.repo.Create(ctx, req)
	if err != nil {
		s.compensate(ctx, account.ID)
		return nil, err
	}

	if err := s.identity.LinkParty(ctx, account.ID, summary.ID); err != nil {
		s.compensate(ctx, account.ID)
		return nil, fmt.Errorf("failed to link doctor account: %w", err)
	}
	if err := s.identity.AddToRole(ctx, account.ID, model.RoleDoctor); err != nil {
		s.compensate(ctx, account.ID)
		return nil, fmt.Errorf("failed to grant doctor role: %w", err)
	}
	s.perms.InvalidateUser(account.ID)

	return summary, nil
}

func (s *Service) compensate(ctx context.Context, accountID uuid.UUID) {
	if err := s.identity.DeleteAccount(ctx, accountID); err != nil {
		log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to roll back doctor account")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.DoctorSummary, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, p model.Pagination) (*model.PagedResult[*model.DoctorSummary], error) {
	p.Normalize()
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return model.NewPagedResult(items, total, p), nil
}

func (s *Service) ListClinics(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorClinic, error) {
	if _, err := s.repo.Get(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListClinics(ctx, doctorID)
}
