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

// Create runs clinic + address + initial doctor links in one transaction.
func (r *clinicRepository) Create(ctx context.Context, req *model.CreateClinicRequest) (*model.ClinicSummary, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	addressID := uuid.New()
	clinicID := uuid.New()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO addresses (id, city_id, street, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, addressID, req.CityID, req.Street, req.Details, now, now); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO clinics (id, name, phone, address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, clinicID, req.Name, req.Phone, addressID, now, now); err != nil {
		return nil, fmt.Errorf("failed to create clinic: %w", err)
	}

	for _, doctorID := range req.DoctorIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO doctor_clinics (id, doctor_id, clinic_id, from_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), doctorID, clinicID, now, now, now); err != nil {
			return nil, fmt.Errorf("failed to link doctor to clinic: %w", err)
		}
	}

	var city string
	if err := tx.GetContext(ctx, &city, `SELECT name FROM cities WHERE id = $1`, req.CityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("city")
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit clinic: %w", err)
	}

	return &model.ClinicSummary{
		ID:     clinicID,
		Name:   req.Name,
		Phone:  req.Phone,
		City:   city,
		Street: req.Street,
	}, nil
}

func (r *clinicRepository) Update(ctx context.Context, id uuid.UUID, req *model.UpdateClinicRequest) (*model.ClinicSummary, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE clinics SET name = $1, phone = $2, updated_at = $3 WHERE id = $4
	`, req.Name, req.Phone, time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update clinic: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("clinic")
	}

	return r.Get(ctx, id)
}

const clinicSummarySelect = `
	SELECT c.id, c.name, c.phone, ci.name AS city, a.street
	FROM clinics c
	JOIN addresses a ON c.address_id = a.id
	JOIN cities ci ON a.city_id = ci.id
`

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicSummary, error) {
	query := clinicSummarySelect + ` WHERE c.id = $1`

	var summary model.ClinicSummary
	err := r.db.GetContext(ctx, &summary, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("clinic")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &summary, nil
}

func (r *clinicRepository) List(ctx context.Context, p model.Pagination) ([]*model.ClinicSummary, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM clinics`); err != nil {
		return nil, 0, fmt.Errorf("failed to count clinics: %w", err)
	}

	query := clinicSummarySelect + ` ORDER BY c.created_at ASC LIMIT $1 OFFSET $2`
	var clinics []*model.ClinicSummary
	if err := r.db.SelectContext(ctx, &clinics, query, p.Size, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, total, nil
}

// CreateEmployee runs the Party -> Person -> ClinicEmployee chain in one
// transaction.
func (r *clinicRepository) CreateEmployee(ctx context.Context, req *model.CreateEmployeeRequest) (*model.ClinicEmployee, error) {
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

	employee := &model.ClinicEmployee{
		PersonID: partyID,
		ClinicID: req.ClinicID,
		Title:    req.Title,
		HiredAt:  now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO clinic_employees (person_id, clinic_id, title, hired_at)
		VALUES ($1, $2, $3, $4)
	`, employee.PersonID, employee.ClinicID, employee.Title, employee.HiredAt); err != nil {
		return nil, fmt.Errorf("failed to create clinic employee: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit clinic employee: %w", err)
	}
	return employee, nil
}

func (r *clinicRepository) ClinicIDsForEmployee(ctx context.Context, personID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT clinic_id
		FROM clinic_employees
		WHERE person_id = $1
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, personID); err != nil {
		return nil, fmt.Errorf("failed to list employee clinics: %w", err)
	}
	return ids, nil
}
