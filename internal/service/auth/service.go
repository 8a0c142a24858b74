package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/internal/repository"
	"github.com/ivyhms/clinic-api/internal/service/patient"
	"github.com/ivyhms/clinic-api/pkg/apperror"
	"github.com/ivyhms/clinic-api/pkg/auth"
)

// PermissionCache invalidates cached permission sets after a role grant.
type PermissionCache interface {
	InvalidateUser(userID uuid.UUID)
}

type Service struct {
	identity repository.IdentityStore
	patients repository.PatientRepository
	jwt      auth.JWTService
	perms    PermissionCache
}

func NewService(identity repository.IdentityStore, patients repository.PatientRepository, jwt auth.JWTService, perms PermissionCache) *Service {
	return &Service{identity: identity, patients: patients, jwt: jwt, perms: perms}
}

// Login exchanges credentials for a signed token. Wrong email and wrong
// password produce the same answer.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	account, err := s.identity.FindByEmail(ctx, req.Email)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, apperror.Unauthenticated("account is disabled")
	}

	ok, err := s.identity.CheckPassword(ctx, account.ID, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthenticated("invalid email or password")
	}

	roles, err := s.identity.GetRolesOf(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account roles: %w", err)
	}

	token, expiresAt, err := s.jwt.Generate(account.ID, account.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	resp := &model.LoginResponse{
		Email:     account.Email,
		Username:  account.Username,
		Roles:     roles,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if account.PartyID != nil {
		if person, err := s.patients.GetPerson(ctx, *account.PartyID); err == nil {
			resp.FirstName = person.FirstName
			resp.LastName = person.LastName
		}
	}
	return resp, nil
}

// Register is patient self-registration: account, then the patient record
// chain, then the patient role. The account is removed again when a later
// step fails.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.PatientSummary, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperror.Validation("passwords do not match", "confirm_password")
	}
	if err := patient.ValidateNationalNumber(req.NationalNumber); err != nil {
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

	summary, err := s.patients.Create(ctx, &model.CreatePatientRequest{
		FirstName:      req.FirstName,
		FatherName:     req.FatherName,
		LastName:       req.LastName,
		Address:        req.Address,
		NationalNumber: req.NationalNumber,
	})
	if err != nil {
		s.compensate(ctx, account)
		return nil, err
	}

	if err := s.identity.LinkParty(ctx, account.ID, summary.ID); err != nil {
		s.compensate(ctx, account)
		return nil, fmt.Errorf("failed to link patient account: %w", err)
	}
	if err := s.identity.AddToRole(ctx, account.ID, model.RolePatient); err != nil {
		s.compensate(ctx, account)
		return nil, fmt.Errorf("failed to grant patient role: %w", err)
	}
	s.perms.InvalidateUser(account.ID)

	return summary, nil
}

// ResetPassword is the administrative reset, no old password needed.
func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	account, err := s.identity.FindByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	return s.identity.UpdatePassword(ctx, account.ID, req.NewPassword)
}

func (s *Service) compensate(ctx context.Context, account *model.Account) {
	if err := s.identity.DeleteAccount(ctx, account.ID); err != nil {
		log.Error().Err(err).Str("account_id", account.ID.String()).Msg("failed to roll back registration account")
	}
}
