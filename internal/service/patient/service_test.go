package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

type fakePatientRepo struct {
	created []*model.CreatePatientRequest
}

func (f *fakePatientRepo) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientSummary, error) {
	f.created = append(f.created, req)
	return &model.PatientSummary{ID: uuid.New(), NationalNumber: req.NationalNumber}, nil
}

func (f *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	return nil, apperror.NotFound("patient")
}

func (f *fakePatientRepo) GetPerson(ctx context.Context, partyID uuid.UUID) (*model.Person, error) {
	return nil, apperror.NotFound("person")
}

func (f *fakePatientRepo) List(ctx context.Context, s model.ListScope, p model.Pagination) ([]*model.PatientSummary, int64, error) {
	return nil, 0, nil
}

func TestValidateNationalNumber(t *testing.T) {
	assert.NoError(t, ValidateNationalNumber("12345678901"))
	assert.Error(t, ValidateNationalNumber("1234567890"))
	assert.Error(t, ValidateNationalNumber("123456789012"))
	assert.Error(t, ValidateNationalNumber("1234567890a"))
	assert.Error(t, ValidateNationalNumber(""))
}

func TestCreateRejectsBadNationalNumber(t *testing.T) {
	repo := &fakePatientRepo{}
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), &model.CreatePatientRequest{
		FirstName:      "Sara",
		LastName:       "Haddad",
		NationalNumber: "not-a-number",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Empty(t, repo.created)
}

func TestCreatePassesValidRequest(t *testing.T) {
	repo := &fakePatientRepo{}
	svc := NewService(repo, nil)

	summary, err := svc.Create(context.Background(), &model.CreatePatientRequest{
		FirstName:      "Sara",
		LastName:       "Haddad",
		NationalNumber: "12345678901",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678901", summary.NationalNumber)
	assert.Len(t, repo.created, 1)
}
