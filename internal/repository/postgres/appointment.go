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

// Appointment writes carry their transition event in the same transaction:
// either both rows commit or neither does.

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_clinic_id, date, reason,
			status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	appointment.Version = 1
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorClinicID,
		appointment.Date,
		appointment.Reason,
		appointment.Status,
		appointment.Version,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := insertOutboxEvent(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_clinic_id, date, reason,
			   status, cancel_reason, version, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

// UpdateVersioned writes the row only if the version the caller read is still
// current. The row is known to exist (the transition always reads it first),
// so zero affected rows means a concurrent writer won the race.
func (r *appointmentRepository) UpdateVersioned(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET date = $1, reason = $2, status = $3, cancel_reason = $4,
			version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7
	`
	appointment.UpdatedAt = time.Now()

	result, err := tx.ExecContext(ctx, query,
		appointment.Date,
		appointment.Reason,
		appointment.Status,
		appointment.CancelReason,
		appointment.UpdatedAt,
		appointment.ID,
		appointment.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.Conflict("appointment was modified concurrently", "version")
	}

	if err := insertOutboxEvent(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	appointment.Version++
	return nil
}

type appointmentDetailRow struct {
	ID          uuid.UUID               `db:"id"`
	PatientName string                  `db:"patient_name"`
	DoctorName  string                  `db:"doctor_name"`
	ClinicName  string                  `db:"clinic_name"`
	Date        *time.Time              `db:"date"`
	Reason      string                  `db:"reason"`
	StatusID    model.AppointmentStatus `db:"status_id"`
}

func (row *appointmentDetailRow) toDetail() *model.AppointmentDetail {
	return &model.AppointmentDetail{
		ID:          row.ID,
		PatientName: row.PatientName,
		DoctorName:  row.DoctorName,
		ClinicName:  row.ClinicName,
		Date:        row.Date,
		Reason:      row.Reason,
		Status:      row.StatusID.Label(),
	}
}

const appointmentDetailSelect = `
	SELECT a.id,
		   pp.first_name || ' ' || pp.last_name AS patient_name,
		   dp.first_name || ' ' || dp.last_name AS doctor_name,
		   c.name AS clinic_name,
		   a.date, a.reason, a.status AS status_id
	FROM appointments a
	JOIN patients pt ON a.patient_id = pt.person_id
	JOIN persons pp ON pt.person_id = pp.party_id
	JOIN doctor_clinics dc ON a.doctor_clinic_id = dc.id
	JOIN clinics c ON dc.clinic_id = c.id
	JOIN persons dp ON dc.doctor_id = dp.party_id
`

func (r *appointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := appointmentDetailSelect + ` WHERE a.id = $1`

	var row appointmentDetailRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment detail: %w", err)
	}
	return row.toDetail(), nil
}

func (r *appointmentRepository) List(ctx context.Context, scope model.ListScope, p model.Pagination) ([]*model.AppointmentDetail, int64, error) {
	if scope.Kind == model.ScopeNone {
		return nil, 0, nil
	}

	where := ""
	var args []interface{}
	switch scope.Kind {
	case model.ScopePatient:
		where = " WHERE a.patient_id = $1"
		args = append(args, scope.PartyID)
	case model.ScopeDoctor:
		where = " WHERE dc.doctor_id = $1"
		args = append(args, scope.PartyID)
	case model.ScopeClinics:
		if len(scope.ClinicIDs) == 0 {
			return nil, 0, nil
		}
		where = " WHERE dc.clinic_id = ANY($1)"
		args = append(args, pq.Array(scope.ClinicIDs))
	}

	countQuery := `
		SELECT COUNT(*)
		FROM appointments a
		JOIN doctor_clinics dc ON a.doctor_clinic_id = dc.id
	` + where
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY a.created_at ASC LIMIT $%d OFFSET $%d",
		appointmentDetailSelect, where, len(args)+1, len(args)+2)
	args = append(args, p.Size, p.Offset())

	var rows []*appointmentDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}

	details := make([]*model.AppointmentDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDetail())
	}
	return details, total, nil
}
