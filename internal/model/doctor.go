package model

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	PersonID    uuid.UUID `db:"person_id" json:"person_id"`
	SpecialtyID uuid.UUID `db:"specialty_id" json:"specialty_id"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DoctorClinic records that a doctor practices at a clinic from one date to
// another; a nil ToDate means the association is ongoing.
type DoctorClinic struct {
	Base
	DoctorID uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ClinicID uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	FromDate time.Time  `db:"from_date" json:"from_date"`
	ToDate   *time.Time `db:"to_date" json:"to_date,omitempty"`
}

type Specialty struct {
	Base
	Name string `db:"name" json:"name"`
}

type DoctorSummary struct {
	ID             uuid.UUID `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	FatherName     string    `db:"father_name" json:"father_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	NationalNumber string    `db:"national_number" json:"national_number"`
	Specialty      string    `db:"specialty" json:"specialty"`
	Description    string    `db:"description" json:"description"`
}

type CreateDoctorRequest struct {
	FirstName      string      `json:"first_name" binding:"required"`
	FatherName     string      `json:"father_name"`
	LastName       string      `json:"last_name" binding:"required"`
	NationalNumber string      `json:"national_number" binding:"required,national_number"`
	Address        string      `json:"address"`
	SpecialtyID    uuid.UUID   `json:"specialty_id" binding:"required"`
	Description    string      `json:"description"`
	ClinicIDs      []uuid.UUID `json:"clinic_ids"`
	Email          string      `json:"email" binding:"required,email"`
	Password       string      `json:"password" binding:"required,min=8"`
}
