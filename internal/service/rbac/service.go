package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/internal/repository"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

const (
	permCacheTTL     = 30 * time.Second
	permCacheCleanup = time.Minute
)

type Service struct {
	repo     repository.RBACRepository
	identity repository.IdentityStore
	// perms memoizes per-user effective permission sets. Any mutation of
	// the role-permission graph or role membership flushes it.
	perms *gocache.Cache
}

func NewService(repo repository.RBACRepository, identity repository.IdentityStore) *Service {
	return &Service{
		repo:     repo,
		identity: identity,
		perms:    gocache.New(permCacheTTL, permCacheCleanup),
	}
}

// GetEffectivePermissions computes the distinct union of permissions across
// all roles the user holds. Unknown users resolve to the empty set: the
// check fails closed instead of erroring.
func (s *Service) GetEffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	cacheKey := userID.String()
	if cached, ok := s.perms.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	roles, err := s.identity.GetRolesOf(ctx, userID)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	names, err := s.repo.PermissionNamesForRoles(ctx, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}

	s.perms.Set(cacheKey, names, gocache.DefaultExpiration)
	return names, nil
}

// InvalidateUser drops one user's cached permission set. Services that grant
// roles through the identity store call this so the next check sees the
// new membership.
func (s *Service) InvalidateUser(userID uuid.UUID) {
	s.perms.Delete(userID.String())
}

func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	effective, err := s.GetEffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, name := range effective {
		if name == permission {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) GetUserRoleInfo(ctx context.Context, userID uuid.UUID) (*model.UserRoleInfo, error) {
	account, err := s.identity.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := s.identity.GetRolesOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	permissions, err := s.GetEffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}
	return &model.UserRoleInfo{
		UserID:      userID,
		Email:       account.Email,
		Roles:       roles,
		Permissions: permissions,
	}, nil
}

func (s *Service) CreateRole(ctx context.Context, req *model.CreateRoleRequest) (*model.RoleDetail, error) {
	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
	}
	if role.Name == "" {
		return nil, apperror.Validation("role name is required", "name")
	}

	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	if len(req.PermissionIDs) > 0 {
		if err := s.repo.ReplaceRolePermissions(ctx, role.ID, req.PermissionIDs); err != nil {
			return nil, err
		}
	}
	s.perms.Flush()

	return s.GetRole(ctx, role.ID)
}

func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*model.RoleDetail, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	permissions, err := s.repo.ListRolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	if permissions == nil {
		permissions = []*model.Permission{}
	}
	return &model.RoleDetail{Role: *role, Permissions: permissions}, nil
}

func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, req *model.UpdateRoleRequest) (*model.RoleDetail, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystemRole && role.Name != req.Name {
		return nil, apperror.Conflict("cannot rename a system role", "name")
	}

	role.Name = req.Name
	role.Description = req.Description
	if err := s.repo.UpdateRole(ctx, role); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceRolePermissions(ctx, id, req.PermissionIDs); err != nil {
		return nil, err
	}
	s.perms.Flush()

	return s.GetRole(ctx, id)
}

// DeleteRole refuses to delete a role any user still holds.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return apperror.Conflict("cannot delete a system role", "name")
	}

	held, err := s.identity.CountUsersInRole(ctx, role.Name)
	if err != nil {
		return fmt.Errorf("failed to count role members: %w", err)
	}
	if held > 0 {
		return apperror.Conflict("cannot delete a role that is assigned to users", "name")
	}

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.perms.Flush()
	return nil
}

func (s *Service) ListRoles(ctx context.Context, p model.Pagination) (*model.PagedResult[*model.RoleDetail], error) {
	p.Normalize()
	roles, total, err := s.repo.ListRoles(ctx, p)
	if err != nil {
		return nil, err
	}

	details := make([]*model.RoleDetail, 0, len(roles))
	for _, role := range roles {
		permissions, err := s.repo.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		if permissions == nil {
			permissions = []*model.Permission{}
		}
		details = append(details, &model.RoleDetail{Role: *role, Permissions: permissions})
	}
	return model.NewPagedResult(details, total, p), nil
}

// AssignPermissions is a full replace: the role ends up holding exactly the
// supplied set, regardless of what it held before. Idempotent and order
// independent.
func (s *Service) AssignPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	for _, permID := range permissionIDs {
		if _, err := s.repo.GetPermission(ctx, permID); err != nil {
			return err
		}
	}

	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.perms.Flush()
	return nil
}

func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if err := s.repo.RemovePermissionFromRole(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.perms.Flush()
	return nil
}

func (s *Service) CreatePermission(ctx context.Context, req *model.CreatePermissionRequest) (*model.Permission, error) {
	permission := &model.Permission{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.CreatePermission(ctx, permission); err != nil {
		return nil, err
	}
	return permission, nil
}

func (s *Service) GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

func (s *Service) UpdatePermission(ctx context.Context, id uuid.UUID, req *model.CreatePermissionRequest) (*model.Permission, error) {
	permission, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return nil, err
	}
	permission.Name = req.Name
	permission.Description = req.Description
	if err := s.repo.UpdatePermission(ctx, permission); err != nil {
		return nil, err
	}
	s.perms.Flush()
	return permission, nil
}

// DeletePermission refuses to delete a permission any role still references.
func (s *Service) DeletePermission(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetPermission(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.CountRolesWithPermission(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperror.Conflict("cannot delete a permission that is assigned to roles", "id")
	}

	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.perms.Flush()
	return nil
}

func (s *Service) ListPermissions(ctx context.Context, p model.Pagination) (*model.PagedResult[*model.Permission], error) {
	p.Normalize()
	permissions, total, err := s.repo.ListPermissions(ctx, p)
	if err != nil {
		return nil, err
	}
	return model.NewPagedResult(permissions, total, p), nil
}

// Seed creates the permission catalog, bootstrap roles and their default
// grants. Safe to run on every startup: existing rows are left alone.
func (s *Service) Seed(ctx context.Context) error {
	for _, name := range model.PermissionCatalog() {
		_, err := s.repo.GetPermissionByName(ctx, name)
		if err == nil {
			continue
		}
		if !apperror.IsKind(err, apperror.KindNotFound) {
			return err
		}
		if err := s.repo.CreatePermission(ctx, &model.Permission{Name: name}); err != nil {
			return err
		}
		log.Info().Str("permission", name).Msg("seeded permission")
	}

	grants := model.DefaultRoleGrants()
	for _, roleName := range model.BootstrapRoles() {
		role, err := s.repo.GetRoleByName(ctx, roleName)
		if apperror.IsKind(err, apperror.KindNotFound) {
			role = &model.Role{Name: roleName, IsSystemRole: true}
			if err := s.repo.CreateRole(ctx, role); err != nil {
				return err
			}

			var permIDs []uuid.UUID
			for _, permName := range grants[roleName] {
				perm, err := s.repo.GetPermissionByName(ctx, permName)
				if err != nil {
					return err
				}
				permIDs = append(permIDs, perm.ID)
			}
			if err := s.repo.ReplaceRolePermissions(ctx, role.ID, permIDs); err != nil {
				return err
			}
			log.Info().Str("role", roleName).Int("permissions", len(permIDs)).Msg("seeded role")
		} else if err != nil {
			return err
		}
	}

	s.perms.Flush()
	return nil
}
