package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the canonical status numbering. The staged booking
// flow moves Pending -> WaitingForPatientConfirmation -> Scheduled.
type AppointmentStatus int

const (
	AppointmentStatusPending                       AppointmentStatus = 1
	AppointmentStatusScheduled                     AppointmentStatus = 2
	AppointmentStatusCompleted                     AppointmentStatus = 3
	AppointmentStatusCancelled                     AppointmentStatus = 4
	AppointmentStatusWaitingForPatientConfirmation AppointmentStatus = 5
)

func (s AppointmentStatus) Valid() bool {
	return s >= AppointmentStatusPending && s <= AppointmentStatusWaitingForPatientConfirmation
}

// RequiresDate reports whether the status implies a confirmed or proposed time.
func (s AppointmentStatus) RequiresDate() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusWaitingForPatientConfirmation, AppointmentStatusCompleted:
		return true
	}
	return false
}

func (s AppointmentStatus) Label() string {
	switch s {
	case AppointmentStatusPending:
		return "Pending"
	case AppointmentStatusScheduled:
		return "Scheduled"
	case AppointmentStatusCompleted:
		return "Completed"
	case AppointmentStatusCancelled:
		return "Cancelled"
	case AppointmentStatusWaitingForPatientConfirmation:
		return "WaitingForPatientConfirmation"
	default:
		return "Unknown"
	}
}

// Appointment is the workflow entity. Date is nil exactly while Pending.
// Version backs the optimistic concurrency check on every transition.
type Appointment struct {
	Base
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorClinicID uuid.UUID         `db:"doctor_clinic_id" json:"doctor_clinic_id"`
	Date           *time.Time        `db:"date" json:"date,omitempty"`
	Reason         string            `db:"reason" json:"reason"`
	Status         AppointmentStatus `db:"status" json:"status"`
	CancelReason   *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version        int64             `db:"version" json:"-"`
}

// AppointmentDetail is the joined read projection returned after every
// mutating operation and in list pages.
type AppointmentDetail struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	DoctorName  string     `db:"doctor_name" json:"doctor_name"`
	ClinicName  string     `db:"clinic_name" json:"clinic_name"`
	Date        *time.Time `db:"date" json:"date,omitempty"`
	Reason      string     `db:"reason" json:"reason"`
	Status      string     `db:"status" json:"status"`
}

type RequestAppointmentRequest struct {
	DoctorClinicID uuid.UUID `json:"doctor_clinic_id" binding:"required"`
	Reason         string    `json:"reason" binding:"required,max=1000"`
}

type BookAppointmentRequest struct {
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	DoctorClinicID uuid.UUID `json:"doctor_clinic_id" binding:"required"`
	Date           time.Time `json:"date" binding:"required"`
	Reason         string    `json:"reason" binding:"required,max=1000"`
}

type AcceptAppointmentRequest struct {
	ProposedDate time.Time `json:"proposed_date" binding:"required"`
}

type ConfirmAppointmentRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

// UpdateAppointmentRequest overwrites fields directly; status changes only
// when StatusID is supplied.
type UpdateAppointmentRequest struct {
	Date     *time.Time         `json:"date"`
	Reason   *string            `json:"reason"`
	StatusID *AppointmentStatus `json:"status_id"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}
