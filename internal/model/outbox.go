package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxEvent records a domain event to be published by the worker.
type OutboxEvent struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      OutboxStatus    `db:"status" json:"status"`
	Error       *string         `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// Appointment transition event types.
const (
	EventAppointmentRequested = "appointment.requested"
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentProposed  = "appointment.proposed"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentDeclined  = "appointment.declined"
	EventAppointmentUpdated   = "appointment.updated"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentCompleted = "appointment.completed"
)
