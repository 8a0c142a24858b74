package scope

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/internal/repository"
)

// Resolver maps an authenticated user to the list filter their role implies.
type Resolver struct {
	identity repository.IdentityStore
	clinics  repository.ClinicRepository
}

func NewResolver(identity repository.IdentityStore, clinics repository.ClinicRepository) *Resolver {
	return &Resolver{identity: identity, clinics: clinics}
}

// Resolve picks the narrowest applicable scope when the user holds several
// roles: patient wins over doctor, doctor over clinic staff, clinic staff
// over admin. Users without a recognized role see nothing.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (model.ListScope, error) {
	account, err := r.identity.FindByID(ctx, userID)
	if err != nil {
		return model.ListScope{}, err
	}
	roles, err := r.identity.GetRolesOf(ctx, userID)
	if err != nil {
		return model.ListScope{}, fmt.Errorf("failed to get user roles: %w", err)
	}

	has := make(map[string]bool, len(roles))
	for _, role := range roles {
		has[role] = true
	}

	switch {
	case has[model.RolePatient]:
		if account.PartyID == nil {
			return model.ListScope{Kind: model.ScopeNone}, nil
		}
		return model.ListScope{Kind: model.ScopePatient, PartyID: *account.PartyID}, nil
	case has[model.RoleDoctor]:
		if account.PartyID == nil {
			return model.ListScope{Kind: model.ScopeNone}, nil
		}
		return model.ListScope{Kind: model.ScopeDoctor, PartyID: *account.PartyID}, nil
	case has[model.RoleClinicStaff]:
		if account.PartyID == nil {
			return model.ListScope{Kind: model.ScopeNone}, nil
		}
		clinicIDs, err := r.clinics.ClinicIDsForEmployee(ctx, *account.PartyID)
		if err != nil {
			return model.ListScope{}, fmt.Errorf("failed to resolve staffed clinics: %w", err)
		}
		if len(clinicIDs) == 0 {
			return model.ListScope{Kind: model.ScopeNone}, nil
		}
		return model.ListScope{Kind: model.ScopeClinics, ClinicIDs: clinicIDs}, nil
	case has[model.RoleAdmin]:
		return model.ListScope{Kind: model.ScopeAll}, nil
	}
	return model.ListScope{Kind: model.ScopeNone}, nil
}
