package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/internal/repository"
	"github.com/ivyhms/clinic-api/internal/service/scope"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

// Notifier delivers best-effort notifications about appointment transitions.
// Delivery failures are logged, never surfaced to the caller.
type Notifier interface {
	AppointmentProposed(ctx context.Context, patientID uuid.UUID, date time.Time) error
	AppointmentConfirmed(ctx context.Context, patientID uuid.UUID, date time.Time) error
	AppointmentCancelled(ctx context.Context, patientID uuid.UUID, reason string) error
}

type Service struct {
	repo     repository.AppointmentRepository
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	scopes   *scope.Resolver
	notifier Notifier
}

func NewService(
	repo repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	scopes *scope.Resolver,
	notifier Notifier,
) *Service {
	return &Service{
		repo:     repo,
		doctors:  doctors,
		patients: patients,
		scopes:   scopes,
		notifier: notifier,
	}
}

// RequestByPatient opens the staged flow: the patient asks for a slot with a
// doctor at a clinic but no date is fixed yet.
func (s *Service) RequestByPatient(ctx context.Context, patientID uuid.UUID, req *model.RequestAppointmentRequest) (*model.AppointmentDetail, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := s.doctors.GetDoctorClinic(ctx, req.DoctorClinicID); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		Base:           model.Base{ID: uuid.New()},
		PatientID:      patientID,
		DoctorClinicID: req.DoctorClinicID,
		Reason:         req.Reason,
		Status:         model.AppointmentStatusPending,
	}
	event, err := transitionEvent(model.EventAppointmentRequested, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, appointment, event); err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// BookByStaff creates an appointment directly in Scheduled, skipping the
// proposal round trip. Used when staff and patient already agreed on a time.
func (s *Service) BookByStaff(ctx context.Context, req *model.BookAppointmentRequest) (*model.AppointmentDetail, error) {
	if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.doctors.GetDoctorClinic(ctx, req.DoctorClinicID); err != nil {
		return nil, err
	}

	date := req.Date
	appointment := &model.Appointment{
		Base:           model.Base{ID: uuid.New()},
		PatientID:      req.PatientID,
		DoctorClinicID: req.DoctorClinicID,
		Date:           &date,
		Reason:         req.Reason,
		Status:         model.AppointmentStatusScheduled,
	}
	event, err := transitionEvent(model.EventAppointmentBooked, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, appointment, event); err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// AcceptByStaff answers a pending request with a proposed date. The
// appointment waits for the patient to confirm.
func (s *Service) AcceptByStaff(ctx context.Context, id uuid.UUID, req *model.AcceptAppointmentRequest) (*model.AppointmentDetail, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.AppointmentStatusPending {
		return nil, apperror.Conflict(
			fmt.Sprintf("appointment is %s, only a pending appointment can be accepted", appointment.Status.Label()), "status")
	}

	date := req.ProposedDate
	appointment.Date = &date
	appointment.Status = model.AppointmentStatusWaitingForPatientConfirmation
	event, err := transitionEvent(model.EventAppointmentProposed, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, appointment, event); err != nil {
		return nil, err
	}

	if err := s.notifier.AppointmentProposed(ctx, appointment.PatientID, date); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to send proposal notification")
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// ConfirmByPatient settles a proposed date. Accepting moves the appointment
// to Scheduled; declining returns it to Pending with the date cleared so
// staff can propose another slot.
func (s *Service) ConfirmByPatient(ctx context.Context, id uuid.UUID, patientID uuid.UUID, req *model.ConfirmAppointmentRequest) (*model.AppointmentDetail, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.PatientID != patientID {
		return nil, apperror.Forbidden()
	}
	if appointment.Status != model.AppointmentStatusWaitingForPatientConfirmation {
		return nil, apperror.Conflict(
			fmt.Sprintf("appointment is %s, only a proposed appointment can be confirmed", appointment.Status.Label()), "status")
	}

	eventType := model.EventAppointmentDeclined
	if *req.Accepted {
		appointment.Status = model.AppointmentStatusScheduled
		eventType = model.EventAppointmentConfirmed
	} else {
		appointment.Status = model.AppointmentStatusPending
		appointment.Date = nil
	}
	event, err := transitionEvent(eventType, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, appointment, event); err != nil {
		return nil, err
	}

	if *req.Accepted {
		if err := s.notifier.AppointmentConfirmed(ctx, appointment.PatientID, *appointment.Date); err != nil {
			log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to send confirmation notification")
		}
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// UpdateDetails is the staff-side direct edit. Fields overwrite in place;
// the date invariant for the resulting status still holds.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.AppointmentDetail, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status == model.AppointmentStatusCancelled || appointment.Status == model.AppointmentStatusCompleted {
		return nil, apperror.Conflict(
			fmt.Sprintf("appointment is %s and can no longer be edited", appointment.Status.Label()), "status")
	}

	if req.Date != nil {
		appointment.Date = req.Date
	}
	if req.Reason != nil {
		appointment.Reason = *req.Reason
	}
	if req.StatusID != nil {
		if !req.StatusID.Valid() {
			return nil, apperror.Validation("unknown appointment status", "status_id")
		}
		appointment.Status = *req.StatusID
	}
	if appointment.Status.RequiresDate() && appointment.Date == nil {
		return nil, apperror.Validation(
			fmt.Sprintf("a %s appointment must have a date", appointment.Status.Label()), "date")
	}
	// A pending appointment has no date yet. Setting one without scheduling
	// is rejected; moving back to Pending drops the old proposal.
	if appointment.Status == model.AppointmentStatusPending {
		if req.Date != nil {
			return nil, apperror.Validation("a pending appointment cannot have a date", "date")
		}
		appointment.Date = nil
	}

	event, err := transitionEvent(model.EventAppointmentUpdated, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, appointment, event); err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// Cancel terminates the appointment from any live state.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.AppointmentDetail, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status == model.AppointmentStatusCancelled || appointment.Status == model.AppointmentStatusCompleted {
		return nil, apperror.Conflict(
			fmt.Sprintf("appointment is already %s", appointment.Status.Label()), "status")
	}

	appointment.Status = model.AppointmentStatusCancelled
	appointment.CancelReason = &req.Reason
	event, err := transitionEvent(model.EventAppointmentCancelled, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, appointment, event); err != nil {
		return nil, err
	}

	if err := s.notifier.AppointmentCancelled(ctx, appointment.PatientID, req.Reason); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to send cancellation notification")
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// Complete closes out a scheduled appointment after the visit happened.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.AppointmentStatusScheduled {
		return nil, apperror.Conflict(
			fmt.Sprintf("appointment is %s, only a scheduled appointment can be completed", appointment.Status.Label()), "status")
	}

	appointment.Status = model.AppointmentStatusCompleted
	event, err := transitionEvent(model.EventAppointmentCompleted, appointment)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, appointment, event); err != nil {
		return nil, err
	}
	return s.repo.GetDetail(ctx, appointment.ID)
}

// PatientIDFor maps an authenticated user to their patient record. Callers
// without the patient role cannot act as a patient.
func (s *Service) PatientIDFor(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	listScope, err := s.scopes.Resolve(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if listScope.Kind != model.ScopePatient {
		return uuid.Nil, apperror.Forbidden()
	}
	return listScope.PartyID, nil
}

func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns the page of appointments the caller's role lets them see.
func (s *Service) List(ctx context.Context, userID uuid.UUID, p model.Pagination) (*model.PagedResult[*model.AppointmentDetail], error) {
	p.Normalize()
	listScope, err := s.scopes.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.List(ctx, listScope, p)
	if err != nil {
		return nil, err
	}
	return model.NewPagedResult(items, total, p), nil
}

type transitionPayload struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	Status        string     `json:"status"`
	Date          *time.Time `json:"date,omitempty"`
}

// transitionEvent builds the outbox event the repository commits together
// with the appointment row.
func transitionEvent(eventType string, appointment *model.Appointment) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(transitionPayload{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		Status:        appointment.Status.Label(),
		Date:          appointment.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transition payload: %w", err)
	}
	return &model.OutboxEvent{EventType: eventType, Payload: payload}, nil
}
