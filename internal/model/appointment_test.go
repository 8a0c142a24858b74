package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusValid(t *testing.T) {
	for _, s := range []AppointmentStatus{
		AppointmentStatusPending,
		AppointmentStatusScheduled,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
		AppointmentStatusWaitingForPatientConfirmation,
	} {
		assert.True(t, s.Valid(), s.Label())
	}
	assert.False(t, AppointmentStatus(0).Valid())
	assert.False(t, AppointmentStatus(6).Valid())
}

func TestAppointmentStatusRequiresDate(t *testing.T) {
	assert.False(t, AppointmentStatusPending.RequiresDate())
	assert.False(t, AppointmentStatusCancelled.RequiresDate())
	assert.True(t, AppointmentStatusScheduled.RequiresDate())
	assert.True(t, AppointmentStatusWaitingForPatientConfirmation.RequiresDate())
	assert.True(t, AppointmentStatusCompleted.RequiresDate())
}

func TestPermissionCatalogDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range PermissionCatalog() {
		assert.False(t, seen[name], "duplicate permission %s", name)
		seen[name] = true
	}
}

func TestDefaultRoleGrantsWithinCatalog(t *testing.T) {
	catalog := make(map[string]bool)
	for _, name := range PermissionCatalog() {
		catalog[name] = true
	}
	for role, grants := range DefaultRoleGrants() {
		for _, name := range grants {
			assert.True(t, catalog[name], "role %s grants unknown permission %s", role, name)
		}
	}
}
