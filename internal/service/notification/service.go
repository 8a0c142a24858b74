package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/email"
	"github.com/ivyhms/clinic-api/internal/repository"
)

// Service emails patients about appointment transitions. Recipients are
// resolved through the identity store by party link; a patient without a
// linked account is silently skipped.
type Service struct {
	emailSvc email.Service
	identity repository.IdentityStore
}

func NewService(emailSvc email.Service, identity repository.IdentityStore) *Service {
	return &Service{emailSvc: emailSvc, identity: identity}
}

func (s *Service) AppointmentProposed(ctx context.Context, patientID uuid.UUID, date time.Time) error {
	return s.send(ctx, patientID,
		"Appointment date proposed",
		fmt.Sprintf("The clinic proposed %s for your appointment. Please confirm or decline.", date.Format(time.RFC1123)))
}

func (s *Service) AppointmentConfirmed(ctx context.Context, patientID uuid.UUID, date time.Time) error {
	return s.send(ctx, patientID,
		"Appointment confirmed",
		fmt.Sprintf("Your appointment is scheduled for %s.", date.Format(time.RFC1123)))
}

func (s *Service) AppointmentCancelled(ctx context.Context, patientID uuid.UUID, reason string) error {
	return s.send(ctx, patientID,
		"Appointment cancelled",
		fmt.Sprintf("Your appointment was cancelled: %s", reason))
}

func (s *Service) send(ctx context.Context, patientID uuid.UUID, subject, body string) error {
	account, err := s.identity.FindByParty(ctx, patientID)
	if err != nil {
		return nil
	}
	return s.emailSvc.Send(ctx, account.Email, subject, body)
}
