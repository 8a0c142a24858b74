package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

const bcryptCost = 12

// The identity store owns accounts and raw role membership. Domain code
// only talks to it through the repository.IdentityStore interface so the
// two stores keep a real boundary even though they share a database here.

func (s *identityStore) CreateAccount(ctx context.Context, account *model.Account, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO accounts (id, email, username, password_hash, party_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	account.ID = uuid.New()
	account.PasswordHash = string(hash)
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.PartyID,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account with this email already exists", "email")
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *identityStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("account")
	}
	return nil
}

func (s *identityStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `
		SELECT id, email, username, password_hash, party_id, is_active, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	var account model.Account
	err := s.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &account, nil
}

func (s *identityStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
		SELECT id, email, username, password_hash, party_id, is_active, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`
	var account model.Account
	err := s.db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return &account, nil
}

func (s *identityStore) FindByParty(ctx context.Context, partyID uuid.UUID) (*model.Account, error) {
	query := `
		SELECT id, email, username, password_hash, party_id, is_active, created_at, updated_at
		FROM accounts
		WHERE party_id = $1
	`
	var account model.Account
	err := s.db.GetContext(ctx, &account, query, partyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by party: %w", err)
	}
	return &account, nil
}

func (s *identityStore) LinkParty(ctx context.Context, id, partyID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET party_id = $1, updated_at = $2 WHERE id = $3`,
		partyID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to link account to party: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("account")
	}
	return nil
}

func (s *identityStore) CheckPassword(ctx context.Context, id uuid.UUID, password string) (bool, error) {
	var hash string
	err := s.db.GetContext(ctx, &hash, `SELECT password_hash FROM accounts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperror.NotFound("account")
	}
	if err != nil {
		return false, fmt.Errorf("failed to load password hash: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *identityStore) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		string(hash), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("account")
	}
	return nil
}

func (s *identityStore) GetRolesOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	query := `
		SELECT role_name
		FROM account_roles
		WHERE account_id = $1
		ORDER BY role_name ASC
	`
	var roles []string
	if err := s.db.SelectContext(ctx, &roles, query, id); err != nil {
		return nil, fmt.Errorf("failed to get account roles: %w", err)
	}
	return roles, nil
}

func (s *identityStore) AddToRole(ctx context.Context, id uuid.UUID, roleName string) error {
	query := `
		INSERT INTO account_roles (account_id, role_name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, role_name) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, id, roleName, time.Now()); err != nil {
		return fmt.Errorf("failed to add account to role: %w", err)
	}
	return nil
}

func (s *identityStore) CountUsersInRole(ctx context.Context, roleName string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM account_roles WHERE role_name = $1`, roleName)
	if err != nil {
		return 0, fmt.Errorf("failed to count role members: %w", err)
	}
	return count, nil
}
