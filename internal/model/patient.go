package model

import (
	"time"

	"github.com/google/uuid"
)

// Party is the root identity record shared by patients, doctors and staff.
type Party struct {
	Base
	DisplayName string `db:"display_name" json:"display_name"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

// Person attaches personal attributes to a party. NationalNumber is unique
// and exactly 11 digits.
type Person struct {
	PartyID        uuid.UUID  `db:"party_id" json:"party_id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	FatherName     string     `db:"father_name" json:"father_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address        string     `db:"address" json:"address"`
	NationalNumber string     `db:"national_number" json:"national_number"`
}

type Patient struct {
	PersonID    uuid.UUID `db:"person_id" json:"person_id"`
	PatientCode string    `db:"patient_code" json:"patient_code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PatientSummary is the paged list projection.
type PatientSummary struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	FatherName     string     `db:"father_name" json:"father_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address        string     `db:"address" json:"address"`
	NationalNumber string     `db:"national_number" json:"national_number"`
	PatientCode    string     `db:"patient_code" json:"patient_code"`
}

type CreatePatientRequest struct {
	FirstName      string     `json:"first_name" binding:"required"`
	FatherName     string     `json:"father_name"`
	LastName       string     `json:"last_name" binding:"required"`
	BirthDate      *time.Time `json:"birth_date"`
	Address        string     `json:"address"`
	NationalNumber string     `json:"national_number" binding:"required,national_number"`
	PatientCode    string     `json:"patient_code"`
}
