package model

import "github.com/google/uuid"

// ScopeKind narrows list queries according to the caller's role.
type ScopeKind int

const (
	// ScopeNone matches nothing: unrecognized role, empty page, not an error.
	ScopeNone ScopeKind = iota
	// ScopeAll applies no restriction (admin).
	ScopeAll
	// ScopePatient restricts to the caller's own patient records.
	ScopePatient
	// ScopeDoctor restricts to the caller's doctor-clinic associations.
	ScopeDoctor
	// ScopeClinics restricts to a set of clinics the caller staffs.
	ScopeClinics
)

// ListScope is the resolved filter passed down to repositories.
type ListScope struct {
	Kind      ScopeKind
	PartyID   uuid.UUID
	ClinicIDs []uuid.UUID
}
