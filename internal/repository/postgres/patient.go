package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

// Create runs the Party -> Person -> Patient chain in one transaction.
// If a person with the national number already exists only the patient row
// is added; if that person is already a patient the call is a Conflict.
func (r *patientRepository) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientSummary, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var person model.Person
	err = tx.GetContext(ctx, &person, `
		SELECT party_id, first_name, father_name, last_name, birth_date, address, national_number
		FROM persons
		WHERE national_number = $1
	`, req.NationalNumber)
	switch {
	case err == nil:
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM patients WHERE person_id = $1)`, person.PartyID); err != nil {
			return nil, fmt.Errorf("failed to check patient existence: %w", err)
		}
		if exists {
			return nil, apperror.Conflict(
				fmt.Sprintf("patient with national number %s already exists", req.NationalNumber),
				"national_number")
		}
	case errors.Is(err, sql.ErrNoRows):
		partyID := uuid.New()
		displayName := fmt.Sprintf("%s %s %s", req.FirstName, req.FatherName, req.LastName)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO parties (id, display_name, is_active, created_at, updated_at)
			VALUES ($1, $2, true, $3, $4)
		`, partyID, displayName, now, now); err != nil {
			return nil, fmt.Errorf("failed to create party: %w", err)
		}

		person = model.Person{
			PartyID:        partyID,
			FirstName:      req.FirstName,
			FatherName:     req.FatherName,
			LastName:       req.LastName,
			BirthDate:      req.BirthDate,
			Address:        req.Address,
			NationalNumber: req.NationalNumber,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO persons (party_id, first_name, father_name, last_name, birth_date, address, national_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, person.PartyID, person.FirstName, person.FatherName, person.LastName,
			person.BirthDate, person.Address, person.NationalNumber); err != nil {
			if isUniqueViolation(err) {
				return nil, apperror.Conflict(
					fmt.Sprintf("person with national number %s already exists", req.NationalNumber),
					"national_number")
			}
			return nil, fmt.Errorf("failed to create person: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up person: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO patients (person_id, patient_code, created_at)
		VALUES ($1, $2, $3)
	`, person.PartyID, req.PatientCode, now); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit patient: %w", err)
	}

	return &model.PatientSummary{
		ID:             person.PartyID,
		FirstName:      person.FirstName,
		FatherName:     person.FatherName,
		LastName:       person.LastName,
		BirthDate:      person.BirthDate,
		Address:        person.Address,
		NationalNumber: person.NationalNumber,
		PatientCode:    req.PatientCode,
	}, nil
}

const patientSummarySelect = `
	SELECT p.party_id AS id, p.first_name, p.father_name, p.last_name,
		   p.birth_date, p.address, p.national_number, pt.patient_code
	FROM patients pt
	JOIN persons p ON pt.person_id = p.party_id
`

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	query := patientSummarySelect + ` WHERE pt.person_id = $1`

	var summary model.PatientSummary
	err := r.db.GetContext(ctx, &summary, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("patient")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &summary, nil
}

func (r *patientRepository) GetPerson(ctx context.Context, partyID uuid.UUID) (*model.Person, error) {
	query := `
		SELECT party_id, first_name, father_name, last_name, birth_date, address, national_number
		FROM persons
		WHERE party_id = $1
	`
	var person model.Person
	err := r.db.GetContext(ctx, &person, query, partyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("person")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &person, nil
}

func (r *patientRepository) List(ctx context.Context, scope model.ListScope, p model.Pagination) ([]*model.PatientSummary, int64, error) {
	if scope.Kind == model.ScopeNone {
		return nil, 0, nil
	}

	where := ""
	var args []interface{}
	switch scope.Kind {
	case model.ScopePatient:
		where = " WHERE pt.person_id = $1"
		args = append(args, scope.PartyID)
	case model.ScopeDoctor:
		where = ` WHERE EXISTS (
			SELECT 1 FROM appointments a
			JOIN doctor_clinics dc ON a.doctor_clinic_id = dc.id
			WHERE a.patient_id = pt.person_id AND dc.doctor_id = $1
		)`
		args = append(args, scope.PartyID)
	case model.ScopeClinics:
		if len(scope.ClinicIDs) == 0 {
			return nil, 0, nil
		}
		where = ` WHERE EXISTS (
			SELECT 1 FROM appointments a
			JOIN doctor_clinics dc ON a.doctor_clinic_id = dc.id
			WHERE a.patient_id = pt.person_id AND dc.clinic_id = ANY($1)
		)`
		args = append(args, pq.Array(scope.ClinicIDs))
	}

	countQuery := `
		SELECT COUNT(*)
		FROM patients pt
		JOIN persons p ON pt.person_id = p.party_id
	` + where
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY pt.created_at ASC LIMIT $%d OFFSET $%d",
		patientSummarySelect, where, len(args)+1, len(args)+2)
	args = append(args, p.Size, p.Offset())

	var patients []*model.PatientSummary
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}
