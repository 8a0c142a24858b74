package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

// Create runs the Party -> Person -> Doctor chain plus the initial
// doctor-clinic associations in one transaction.
func (r *doctorRepository) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.DoctorSummary, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	partyID := uuid.New()
	displayName := fmt.Sprintf("%s %s %s", req.FirstName, req.FatherName, req.LastName)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO parties (id, display_name, is_active, created_at, updated_at)
		VALUES ($1, $2, true, $3, $4)
	`, partyID, displayName, now, now); err != nil {
		return nil, fmt.Errorf("failed to create party: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO persons (party_id, first_name, father_name, last_name, address, national_number)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, partyID, req.FirstName, req.FatherName, req.LastName, req.Address, req.NationalNumber); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict(
				fmt.Sprintf("person with national number %s already exists", req.NationalNumber),
				"national_number")
		}
		return nil, fmt.Errorf("failed to create person: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO doctors (person_id, specialty_id, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, partyID, req.SpecialtyID, req.Description, now); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}

	for _, clinicID := range req.ClinicIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO doctor_clinics (id, doctor_id, clinic_id, from_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), partyID, clinicID, now, now, now); err != nil {
			return nil, fmt.Errorf("failed to link doctor to clinic: %w", err)
		}
	}

	var specialty string
	if err := tx.GetContext(ctx, &specialty,
		`SELECT name FROM specialties WHERE id = $1`, req.SpecialtyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("specialty")
		}
		return nil, fmt.Errorf("failed to get specialty: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit doctor: %w", err)
	}

	return &model.DoctorSummary{
		ID:             partyID,
		FirstName:      req.FirstName,
		FatherName:     req.FatherName,
		LastName:       req.LastName,
		NationalNumber: req.NationalNumber,
		Specialty:      specialty,
		Description:    req.Description,
	}, nil
}

const doctorSummarySelect = `
	SELECT d.person_id AS id, p.first_name, p.father_name, p.last_name,
		   p.national_number, s.name AS specialty, d.description
	FROM doctors d
	JOIN persons p ON d.person_id = p.party_id
	JOIN specialties s ON d.specialty_id = s.id
`

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.DoctorSummary, error) {
	query := doctorSummarySelect + ` WHERE d.person_id = $1`

	var summary model.DoctorSummary
	err := r.db.GetContext(ctx, &summary, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("doctor")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &summary, nil
}

func (r *doctorRepository) List(ctx context.Context, p model.Pagination) ([]*model.DoctorSummary, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM doctors`); err != nil {
		return nil, 0, fmt.Errorf("failed to count doctors: %w", err)
	}

	query := doctorSummarySelect + ` ORDER BY d.created_at ASC LIMIT $1 OFFSET $2`
	var doctors []*model.DoctorSummary
	if err := r.db.SelectContext(ctx, &doctors, query, p.Size, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, total, nil
}

func (r *doctorRepository) ListClinics(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorClinic, error) {
	query := `
		SELECT id, doctor_id, clinic_id, from_date, to_date, created_at, updated_at
		FROM doctor_clinics
		WHERE doctor_id = $1
		ORDER BY from_date ASC
	`
	var links []*model.DoctorClinic
	if err := r.db.SelectContext(ctx, &links, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor clinics: %w", err)
	}
	return links, nil
}

func (r *doctorRepository) GetDoctorClinic(ctx context.Context, id uuid.UUID) (*model.DoctorClinic, error) {
	query := `
		SELECT id, doctor_id, clinic_id, from_date, to_date, created_at, updated_at
		FROM doctor_clinics
		WHERE id = $1
	`
	var link model.DoctorClinic
	err := r.db.GetContext(ctx, &link, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("doctor-clinic association")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor-clinic association: %w", err)
	}
	return &link, nil
}
