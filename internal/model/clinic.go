package model

import (
	"time"

	"github.com/google/uuid"
)

type Clinic struct {
	Base
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	AddressID uuid.UUID `db:"address_id" json:"address_id"`
}

type Address struct {
	Base
	CityID  uuid.UUID `db:"city_id" json:"city_id"`
	Street  string    `db:"street" json:"street"`
	Details string    `db:"details" json:"details"`
}

// ClinicEmployee links a person to the clinic they staff.
type ClinicEmployee struct {
	PersonID uuid.UUID `db:"person_id" json:"person_id"`
	ClinicID uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Title    string    `db:"title" json:"title"`
	HiredAt  time.Time `db:"hired_at" json:"hired_at"`
}

type ClinicSummary struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Name   string    `db:"name" json:"name"`
	Phone  string    `db:"phone" json:"phone"`
	City   string    `db:"city" json:"city"`
	Street string    `db:"street" json:"street"`
}

type CreateClinicRequest struct {
	Name      string      `json:"name" binding:"required"`
	Phone     string      `json:"phone"`
	CityID    uuid.UUID   `json:"city_id" binding:"required"`
	Street    string      `json:"street"`
	Details   string      `json:"details"`
	DoctorIDs []uuid.UUID `json:"doctor_ids"`
}

type UpdateClinicRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type CreateEmployeeRequest struct {
	FirstName      string    `json:"first_name" binding:"required"`
	FatherName     string    `json:"father_name"`
	LastName       string    `json:"last_name" binding:"required"`
	NationalNumber string    `json:"national_number" binding:"required,national_number"`
	Address        string    `json:"address"`
	ClinicID       uuid.UUID `json:"clinic_id"`
	Title          string    `json:"title"`
	Email          string    `json:"email" binding:"required,email"`
	Password       string    `json:"password" binding:"required,min=8"`
}
