package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
	"github.com/ivyhms/clinic-api/pkg/auth"
)

type fakeIdentity struct {
	accounts  map[uuid.UUID]*model.Account
	passwords map[uuid.UUID]string
	roles     map[uuid.UUID][]string
	deleted   []uuid.UUID
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts:  make(map[uuid.UUID]*model.Account),
		passwords: make(map[uuid.UUID]string),
		roles:     make(map[uuid.UUID][]string),
	}
}

func (f *fakeIdentity) CreateAccount(ctx context.Context, account *model.Account, password string) error {
	for _, a := range f.accounts {
		if a.Email == account.Email {
			return apperror.Conflict("account with this email already exists", "email")
		}
	}
	account.ID = uuid.New()
	f.accounts[account.ID] = account
	f.passwords[account.ID] = password
	return nil
}

func (f *fakeIdentity) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	delete(f.accounts, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIdentity) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account")
	}
	return a, nil
}

func (f *fakeIdentity) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, apperror.NotFound("account")
}

func (f *fakeIdentity) FindByParty(ctx context.Context, partyID uuid.UUID) (*model.Account, error) {
	return nil, apperror.NotFound("account")
}

func (f *fakeIdentity) LinkParty(ctx context.Context, id, partyID uuid.UUID) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperror.NotFound("account")
	}
	a.PartyID = &partyID
	return nil
}

func (f *fakeIdentity) CheckPassword(ctx context.Context, id uuid.UUID, password string) (bool, error) {
	return f.passwords[id] == password, nil
}

func (f *fakeIdentity) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	f.passwords[id] = password
	return nil
}

func (f *fakeIdentity) GetRolesOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	return f.roles[id], nil
}

func (f *fakeIdentity) AddToRole(ctx context.Context, id uuid.UUID, roleName string) error {
	f.roles[id] = append(f.roles[id], roleName)
	return nil
}

func (f *fakeIdentity) CountUsersInRole(ctx context.Context, roleName string) (int64, error) {
	return 0, nil
}

type fakePatients struct {
	failCreate bool
	created    int
}

func (f *fakePatients) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientSummary, error) {
	if f.failCreate {
		return nil, apperror.Conflict("patient with national number 12345678901 already exists", "national_number")
	}
	f.created++
	return &model.PatientSummary{ID: uuid.New()}, nil
}

func (f *fakePatients) Get(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	return nil, apperror.NotFound("patient")
}

func (f *fakePatients) GetPerson(ctx context.Context, partyID uuid.UUID) (*model.Person, error) {
	return &model.Person{PartyID: partyID, FirstName: "Sara", LastName: "Haddad"}, nil
}

func (f *fakePatients) List(ctx context.Context, s model.ListScope, p model.Pagination) ([]*model.PatientSummary, int64, error) {
	return nil, 0, nil
}

type fakePermCache struct {
	invalidated []uuid.UUID
}

func (f *fakePermCache) InvalidateUser(userID uuid.UUID) {
	f.invalidated = append(f.invalidated, userID)
}

func newTestService(identity *fakeIdentity, patients *fakePatients) (*Service, *fakePermCache) {
	jwt := auth.NewJWTService("test-secret-0123456789", "clinic-api", time.Hour)
	perms := &fakePermCache{}
	return NewService(identity, patients, jwt, perms), perms
}

func registerRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Email:           "sara@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Sara",
		LastName:        "Haddad",
		NationalNumber:  "12345678901",
	}
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	patients := &fakePatients{}
	svc, perms := newTestService(identity, patients)

	summary, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, patients.created)
	// The role grant must drop any cached permission set for the account.
	assert.Len(t, perms.invalidated, 1)

	resp, err := svc.Login(ctx, &model.LoginRequest{Email: "sara@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Contains(t, resp.Roles, model.RolePatient)
	assert.Equal(t, "Sara", resp.FirstName)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	svc, _ := newTestService(identity, &fakePatients{})

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &model.LoginRequest{Email: "sara@example.com", Password: "wrong"})
	assert.Nil(t, resp)
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthenticated))
	wrongPassMsg := err.Error()

	resp, err = svc.Login(ctx, &model.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.Nil(t, resp)
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthenticated))
	assert.Equal(t, wrongPassMsg, err.Error())
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc, _ := newTestService(newFakeIdentity(), &fakePatients{})

	req := registerRequest()
	req.ConfirmPassword = "different123"
	_, err := svc.Register(context.Background(), req)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestRegisterCompensatesOnPatientFailure(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	patients := &fakePatients{failCreate: true}
	svc, _ := newTestService(identity, patients)

	_, err := svc.Register(ctx, registerRequest())
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	// The half-created account must not survive.
	assert.Empty(t, identity.accounts)
	assert.Len(t, identity.deleted, 1)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	svc, _ := newTestService(identity, &fakePatients{})

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, &model.ResetPasswordRequest{
		Email:       "sara@example.com",
		NewPassword: "newpassword1",
	}))

	_, err = svc.Login(ctx, &model.LoginRequest{Email: "sara@example.com", Password: "password123"})
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthenticated))

	resp, err := svc.Login(ctx, &model.LoginRequest{Email: "sara@example.com", Password: "newpassword1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}
