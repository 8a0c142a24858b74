package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// RBACRepository owns the role/permission graph. Role membership lives
	// in the IdentityStore; this side only joins from role names down.
	RBACRepository interface {
		CreateRole(ctx context.Context, role *model.Role) error
		GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
		GetRoleByName(ctx context.Context, name string) (*model.Role, error)
		UpdateRole(ctx context.Context, role *model.Role) error
		DeleteRole(ctx context.Context, id uuid.UUID) error
		ListRoles(ctx context.Context, p model.Pagination) ([]*model.Role, int64, error)

		CreatePermission(ctx context.Context, permission *model.Permission) error
		GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error)
		GetPermissionByName(ctx context.Context, name string) (*model.Permission, error)
		UpdatePermission(ctx context.Context, permission *model.Permission) error
		DeletePermission(ctx context.Context, id uuid.UUID) error
		ListPermissions(ctx context.Context, p model.Pagination) ([]*model.Permission, int64, error)

		// ReplaceRolePermissions deletes every existing row for the role and
		// inserts the new set in one transaction.
		ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
		RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error
		ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error)
		CountRolesWithPermission(ctx context.Context, permissionID uuid.UUID) (int64, error)

		// PermissionNamesForRoles is the role->permission hop of the
		// two-hop effective permission resolution, deduplicated.
		PermissionNamesForRoles(ctx context.Context, roleNames []string) ([]string, error)
	}

	// IdentityStore holds credentials and raw role memberships.
	IdentityStore interface {
		CreateAccount(ctx context.Context, account *model.Account, password string) error
		DeleteAccount(ctx context.Context, id uuid.UUID) error
		FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
		FindByEmail(ctx context.Context, email string) (*model.Account, error)
		LinkParty(ctx context.Context, id, partyID uuid.UUID) error
		FindByParty(ctx context.Context, partyID uuid.UUID) (*model.Account, error)
		CheckPassword(ctx context.Context, id uuid.UUID, password string) (bool, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, password string) error
		GetRolesOf(ctx context.Context, id uuid.UUID) ([]string, error)
		AddToRole(ctx context.Context, id uuid.UUID, roleName string) error
		CountUsersInRole(ctx context.Context, roleName string) (int64, error)
	}

	AppointmentRepository interface {
		// Create and UpdateVersioned write the appointment row and its
		// transition event in one transaction, so a committed transition can
		// never lose its event.
		Create(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateVersioned writes WHERE id AND version; a vanished row after a
		// successful Get means a racing writer won and the caller gets Conflict.
		UpdateVersioned(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error
		GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
		List(ctx context.Context, scope model.ListScope, p model.Pagination) ([]*model.AppointmentDetail, int64, error)
	}

	PatientRepository interface {
		// Create runs the Party -> Person -> Patient chain in one transaction.
		// An existing person (same national number) only gains the patient row;
		// an existing patient row is a Conflict.
		Create(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientSummary, error)
		Get(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error)
		GetPerson(ctx context.Context, partyID uuid.UUID) (*model.Person, error)
		List(ctx context.Context, scope model.ListScope, p model.Pagination) ([]*model.PatientSummary, int64, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.DoctorSummary, error)
		Get(ctx context.Context, id uuid.UUID) (*model.DoctorSummary, error)
		List(ctx context.Context, p model.Pagination) ([]*model.DoctorSummary, int64, error)
		ListClinics(ctx context.Context, doctorID uuid.UUID) ([]*model.DoctorClinic, error)
		GetDoctorClinic(ctx context.Context, id uuid.UUID) (*model.DoctorClinic, error)
	}

	ClinicRepository interface {
		// Create runs clinic + address + doctor links in one transaction.
		Create(ctx context.Context, req *model.CreateClinicRequest) (*model.ClinicSummary, error)
		Update(ctx context.Context, id uuid.UUID, req *model.UpdateClinicRequest) (*model.ClinicSummary, error)
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicSummary, error)
		List(ctx context.Context, p model.Pagination) ([]*model.ClinicSummary, int64, error)
		CreateEmployee(ctx context.Context, req *model.CreateEmployeeRequest) (*model.ClinicEmployee, error)
		ClinicIDsForEmployee(ctx context.Context, personID uuid.UUID) ([]uuid.UUID, error)
	}

	OutboxRepository interface {
		// ClaimPendingEvents atomically moves a batch from pending to
		// processing, so two workers never publish the same event.
		ClaimPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
