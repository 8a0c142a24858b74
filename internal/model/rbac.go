package model

import (
	"github.com/google/uuid"
)

// Role is a named group of permissions assignable to users. Membership is
// owned by the identity store; this side only models the permission graph.
type Role struct {
	Base
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
	IsSystemRole bool   `db:"is_system_role" json:"is_system_role"`
}

// Bootstrap roles created at startup. System roles cannot be deleted.
const (
	RoleAdmin       = "admin"
	RoleDoctor      = "doctor"
	RoleClinicStaff = "clinic-staff"
	RolePatient     = "patient"
)

// BootstrapRoles returns the predefined roles in filter-precedence order:
// a caller holding several roles is scoped by the first one matched here.
func BootstrapRoles() []string {
	return []string{RolePatient, RoleDoctor, RoleClinicStaff, RoleAdmin}
}

type Permission struct {
	Base
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

type RolePermission struct {
	Base
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
}

// Permission catalog. Names are snake_case, namespaced by resource.
const (
	PermViewPatients   = "view_patients"
	PermCreatePatients = "create_patients"
	PermUpdatePatients = "update_patients"
	PermDeletePatients = "delete_patients"

	PermViewDoctors   = "view_doctors"
	PermCreateDoctors = "create_doctors"
	PermUpdateDoctors = "update_doctors"
	PermDeleteDoctors = "delete_doctors"

	PermViewClinics   = "view_clinics"
	PermCreateClinics = "create_clinics"
	PermUpdateClinics = "update_clinics"
	PermDeleteClinics = "delete_clinics"

	PermViewAppointments    = "view_appointments"
	PermCreateAppointments  = "create_appointments"
	PermUpdateAppointments  = "update_appointments"
	PermDeleteAppointments  = "delete_appointments"
	PermBookAppointments    = "book_appointments"
	PermConfirmAppointments = "confirm_appointments"

	PermViewRoles             = "view_roles"
	PermCreateRoles           = "create_roles"
	PermUpdateRoles           = "update_roles"
	PermDeleteRoles           = "delete_roles"
	PermViewPermissions       = "view_permissions"
	PermCreatePermissions     = "create_permissions"
	PermUpdatePermissions     = "update_permissions"
	PermDeletePermissions     = "delete_permissions"
	PermManageRolePermissions = "manage_role_permissions"

	PermViewSystemSettings   = "view_system_settings"
	PermUpdateSystemSettings = "update_system_settings"
	PermViewAuditLogs        = "view_audit_logs"
	PermManageUsers          = "manage_users"
)

// PermissionCatalog is the full static catalog seeded at startup.
// Declared explicitly; no reflection over constants.
func PermissionCatalog() []string {
	return []string{
		PermViewPatients, PermCreatePatients, PermUpdatePatients, PermDeletePatients,
		PermViewDoctors, PermCreateDoctors, PermUpdateDoctors, PermDeleteDoctors,
		PermViewClinics, PermCreateClinics, PermUpdateClinics, PermDeleteClinics,
		PermViewAppointments, PermCreateAppointments, PermUpdateAppointments,
		PermDeleteAppointments, PermBookAppointments, PermConfirmAppointments,
		PermViewRoles, PermCreateRoles, PermUpdateRoles, PermDeleteRoles,
		PermViewPermissions, PermCreatePermissions, PermUpdatePermissions,
		PermDeletePermissions, PermManageRolePermissions,
		PermViewSystemSettings, PermUpdateSystemSettings,
		PermViewAuditLogs, PermManageUsers,
	}
}

// DefaultRoleGrants maps each bootstrap role to its seeded permission set.
func DefaultRoleGrants() map[string][]string {
	return map[string][]string{
		RoleAdmin: PermissionCatalog(),
		RoleDoctor: {
			PermViewPatients,
			PermViewAppointments, PermUpdateAppointments,
			PermViewClinics,
		},
		RoleClinicStaff: {
			PermViewPatients, PermCreatePatients, PermUpdatePatients,
			PermViewDoctors, PermViewClinics,
			PermViewAppointments, PermCreateAppointments, PermUpdateAppointments,
			PermBookAppointments,
		},
		RolePatient: {
			PermViewAppointments, PermCreateAppointments, PermConfirmAppointments,
		},
	}
}

type CreateRoleRequest struct {
	Name          string      `json:"name" binding:"required"`
	Description   string      `json:"description"`
	PermissionIDs []uuid.UUID `json:"permission_ids"`
}

type UpdateRoleRequest struct {
	Name          string      `json:"name" binding:"required"`
	Description   string      `json:"description"`
	PermissionIDs []uuid.UUID `json:"permission_ids"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type AssignPermissionsRequest struct {
	PermissionIDs []uuid.UUID `json:"permission_ids" binding:"required"`
}

// RoleDetail is the read projection carrying the role's permission set.
type RoleDetail struct {
	Role
	Permissions []*Permission `json:"permissions"`
}

// UserRoleInfo aggregates a principal's roles and effective permissions.
type UserRoleInfo struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
}
