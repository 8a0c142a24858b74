package postgres

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ivyhms/clinic-api/internal/repository"
)

type rbacRepository struct {
	db *sqlx.DB
}

type identityStore struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type patientRepository struct {
	db *sqlx.DB
}

type doctorRepository struct {
	db *sqlx.DB
}

type clinicRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewRBACRepository(db *sqlx.DB) repository.RBACRepository {
	return &rbacRepository{db: db}
}

func NewIdentityStore(db *sqlx.DB) repository.IdentityStore {
	return &identityStore{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
