package doctor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

type fakeIdentity struct {
	accounts map[uuid.UUID]*model.Account
	roles    map[uuid.UUID][]string
	deleted  []uuid.UUID
	failRole bool
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: make(map[uuid.UUID]*model.Account),
		roles:    make(map[uuid.UUID][]string),
	}
}

func (f *fakeIdentity) CreateAccount(ctx context.Context, account *model.Account, password string) error {
	account.ID = uuid.New()
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeIdentity) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	delete(f.accounts, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIdentity) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return nil, apperror.NotFound("account")
}

func (f *fakeIdentity) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
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
	return false, nil
}

func (f *fakeIdentity) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	return nil
}

func (f *fakeIdentity) GetRolesOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	return f.roles[id], nil
}

func (f *fakeIdentity) AddToRole(ctx context.Context, id uuid.UUID, roleName string) error {
	if f.failRole {
		return apperror.NotFound("role")
	}
	f.roles[id] = append(f.roles[id], roleName)
	return nil
}

func (f *fakeIdentity) CountUsersInRole(ctx context.Context, roleName string) (int64, error) {
	return 0, nil
}

type fakeDoctorRepo struct {
	doctors    map[uuid.UUID]*model.DoctorSummary
	failCreate bool
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{doctors: make(map[uuid.UUID]*model.DoctorSummary)}
}

func (f *fakeDoctorRepo) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.DoctorSummary, error) {
	if f.failCreate {
		return nil, apperror.NotFound("specialty")
	}
	summary := &model.DoctorSummary{
		ID:             uuid.New(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		NationalNumber: req.NationalNumber,
	}
	f.doctors[summary.ID] = summary
	return summary, nil
}

func (f *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.DoctorSummary, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, apperror.NotFound("doctor")
	}
	return d, nil
}

func (f *fakeDoctorRepo) List(ctx context.Context, p model.Pagination) ([]*model.DoctorSummary, int64, error) {
	return nil, 0, nil
}

func (f *fakeDoctorRepo) ListClinics(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorClinic, error) {
	return nil, nil
}

func (f *fakeDoctorRepo) GetDoctorClinic(ctx context.Context, id uuid.UUID) (*model.DoctorClinic, error) {
	return nil, apperror.NotFound("doctor clinic")
}

type fakePermCache struct {
	invalidated []uuid.UUID
}

func (f *fakePermCache) InvalidateUser(userID uuid.UUID) {
	f.invalidated = append(f.invalidated, userID)
}

func createRequest() *model.CreateDoctorRequest {
	return &model.CreateDoctorRequest{
		FirstName:      "Lina",
		LastName:       "Aswad",
		NationalNumber: "98765432109",
		SpecialtyID:    uuid.New(),
		Email:          "lina@example.com",
		Password:       "password123",
	}
}

func TestCreateGrantsRoleAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	identity := newFakeIdentity()
	repo := newFakeDoctorRepo()
	perms := &fakePermCache{}
	svc := NewService(repo, identity, perms)

	summary, err := svc.Create(ctx, createRequest())
	require.NoError(t, err)
	require.NotNil(t, summary)

	var accountID uuid.UUID
	for id, a := range identity.accounts {
		accountID = id
		assert.Equal(t, &summary.ID, a.PartyID)
	}
	assert.Equal(t, []string{model.RoleDoctor}, identity.roles[accountID])

	// A fresh grant must not be served from a stale cached permission set.
	assert.Equal(t, []uuid.UUID{accountID}, perms.invalidated)
}

func TestCreateRollsBackAccountOnFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("doctor record fails", func(t *testing.T) {
		identity := newFakeIdentity()
		perms := &fakePermCache{}
		svc := NewService(&fakeDoctorRepo{failCreate: true}, identity, perms)

		_, err := svc.Create(ctx, createRequest())
		require.Error(t, err)
		assert.Len(t, identity.deleted, 1)
		assert.Empty(t, identity.accounts)
		assert.Empty(t, perms.invalidated)
	})

	t.Run("role grant fails", func(t *testing.T) {
		identity := newFakeIdentity()
		identity.failRole = true
		perms := &fakePermCache{}
		svc := NewService(newFakeDoctorRepo(), identity, perms)

		_, err := svc.Create(ctx, createRequest())
		require.Error(t, err)
		assert.Len(t, identity.deleted, 1)
		assert.Empty(t, perms.invalidated)
	})
}
