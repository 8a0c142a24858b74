package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

type fakeRBACRepo struct {
	roles       map[uuid.UUID]*model.Role
	permissions map[uuid.UUID]*model.Permission
	grants      map[uuid.UUID][]uuid.UUID

	permissionNamesCalls int
}

func newFakeRBACRepo() *fakeRBACRepo {
	return &fakeRBACRepo{
		roles:       make(map[uuid.UUID]*model.Role),
		permissions: make(map[uuid.UUID]*model.Permission),
		grants:      make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeRBACRepo) CreateRole(ctx context.Context, role *model.Role) error {
	for _, r := range f.roles {
		if r.Name == role.Name {
			return apperror.Conflict("role already exists", "name")
		}
	}
	role.ID = uuid.New()
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRBACRepo) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, apperror.NotFound("role")
	}
	copy := *role
	return &copy, nil
}

func (f *fakeRBACRepo) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Name == name {
			copy := *r
			return &copy, nil
		}
	}
	return nil, apperror.NotFound("role")
}

func (f *fakeRBACRepo) UpdateRole(ctx context.Context, role *model.Role) error {
	if _, ok := f.roles[role.ID]; !ok {
		return apperror.NotFound("role")
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRBACRepo) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.roles[id]; !ok {
		return apperror.NotFound("role")
	}
	delete(f.roles, id)
	delete(f.grants, id)
	return nil
}

func (f *fakeRBACRepo) ListRoles(ctx context.Context, p model.Pagination) ([]*model.Role, int64, error) {
	var out []*model.Role
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRBACRepo) CreatePermission(ctx context.Context, permission *model.Permission) error {
	for _, p := range f.permissions {
		if p.Name == permission.Name {
			return apperror.Conflict("permission already exists", "name")
		}
	}
	permission.ID = uuid.New()
	f.permissions[permission.ID] = permission
	return nil
}

func (f *fakeRBACRepo) GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	p, ok := f.permissions[id]
	if !ok {
		return nil, apperror.NotFound("permission")
	}
	copy := *p
	return &copy, nil
}

func (f *fakeRBACRepo) GetPermissionByName(ctx context.Context, name string) (*model.Permission, error) {
	for _, p := range f.permissions {
		if p.Name == name {
			copy := *p
			return &copy, nil
		}
	}
	return nil, apperror.NotFound("permission")
}

func (f *fakeRBACRepo) UpdatePermission(ctx context.Context, permission *model.Permission) error {
	if _, ok := f.permissions[permission.ID]; !ok {
		return apperror.NotFound("permission")
	}
	f.permissions[permission.ID] = permission
	return nil
}

func (f *fakeRBACRepo) DeletePermission(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.permissions[id]; !ok {
		return apperror.NotFound("permission")
	}
	delete(f.permissions, id)
	return nil
}

func (f *fakeRBACRepo) ListPermissions(ctx context.Context, p model.Pagination) ([]*model.Permission, int64, error) {
	var out []*model.Permission
	for _, perm := range f.permissions {
		out = append(out, perm)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRBACRepo) ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	f.grants[roleID] = append([]uuid.UUID(nil), permissionIDs...)
	return nil
}

func (f *fakeRBACRepo) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	kept := f.grants[roleID][:0]
	for _, id := range f.grants[roleID] {
		if id != permissionID {
			kept = append(kept, id)
		}
	}
	f.grants[roleID] = kept
	return nil
}

func (f *fakeRBACRepo) ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	var out []*model.Permission
	for _, id := range f.grants[roleID] {
		if p, ok := f.permissions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRBACRepo) CountRolesWithPermission(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	var count int64
	for _, ids := range f.grants {
		for _, id := range ids {
			if id == permissionID {
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeRBACRepo) PermissionNamesForRoles(ctx context.Context, roleNames []string) ([]string, error) {
	f.permissionNamesCalls++
	seen := make(map[string]bool)
	var out []string
	for _, name := range roleNames {
		role, err := f.GetRoleByName(ctx, name)
		if err != nil {
			continue
		}
		for _, id := range f.grants[role.ID] {
			p := f.permissions[id]
			if p != nil && !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p.Name)
			}
		}
	}
	return out, nil
}

type fakeIdentityStore struct {
	accounts map[uuid.UUID]*model.Account
	roles    map[uuid.UUID][]string
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{
		accounts: make(map[uuid.UUID]*model.Account),
		roles:    make(map[uuid.UUID][]string),
	}
}

func (f *fakeIdentityStore) CreateAccount(ctx context.Context, account *model.Account, password string) error {
	account.ID = uuid.New()
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeIdentityStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	delete(f.accounts, id)
	delete(f.roles, id)
	return nil
}

func (f *fakeIdentityStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account")
	}
	return a, nil
}

func (f *fakeIdentityStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, apperror.NotFound("account")
}

func (f *fakeIdentityStore) FindByParty(ctx context.Context, partyID uuid.UUID) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.PartyID != nil && *a.PartyID == partyID {
			return a, nil
		}
	}
	return nil, apperror.NotFound("account")
}

func (f *fakeIdentityStore) LinkParty(ctx context.Context, id, partyID uuid.UUID) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperror.NotFound("account")
	}
	a.PartyID = &partyID
	return nil
}

func (f *fakeIdentityStore) CheckPassword(ctx context.Context, id uuid.UUID, password string) (bool, error) {
	return false, nil
}

func (f *fakeIdentityStore) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	return nil
}

func (f *fakeIdentityStore) GetRolesOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, ok := f.accounts[id]; !ok {
		return nil, apperror.NotFound("account")
	}
	return f.roles[id], nil
}

func (f *fakeIdentityStore) AddToRole(ctx context.Context, id uuid.UUID, roleName string) error {
	f.roles[id] = append(f.roles[id], roleName)
	return nil
}

func (f *fakeIdentityStore) CountUsersInRole(ctx context.Context, roleName string) (int64, error) {
	var count int64
	for _, names := range f.roles {
		for _, n := range names {
			if n == roleName {
				count++
			}
		}
	}
	return count, nil
}

func setupUser(t *testing.T, identity *fakeIdentityStore, roles ...string) uuid.UUID {
	t.Helper()
	account := &model.Account{Email: "user@example.com"}
	require.NoError(t, identity.CreateAccount(context.Background(), account, "secret123"))
	for _, r := range roles {
		require.NoError(t, identity.AddToRole(context.Background(), account.ID, r))
	}
	return account.ID
}

func TestEffectivePermissionsUnion(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	identity := newFakeIdentityStore()
	svc := NewService(repo, identity)

	view := &model.Permission{Name: "view_patients"}
	edit := &model.Permission{Name: "update_patients"}
	require.NoError(t, repo.CreatePermission(ctx, view))
	require.NoError(t, repo.CreatePermission(ctx, edit))

	viewer := &model.Role{Name: "viewer"}
	editor := &model.Role{Name: "editor"}
	require.NoError(t, repo.CreateRole(ctx, viewer))
	require.NoError(t, repo.CreateRole(ctx, editor))
	require.NoError(t, repo.ReplaceRolePermissions(ctx, viewer.ID, []uuid.UUID{view.ID}))
	require.NoError(t, repo.ReplaceRolePermissions(ctx, editor.ID, []uuid.UUID{view.ID, edit.ID}))

	userID := setupUser(t, identity, "viewer", "editor")

	names, err := svc.GetEffectivePermissions(ctx, userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"view_patients", "update_patients"}, names)

	ok, err := svc.HasPermission(ctx, userID, "view_patients")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, userID, "delete_patients")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEffectivePermissionsUnknownUserFailsClosed(t *testing.T) {
	svc := NewService(newFakeRBACRepo(), newFakeIdentityStore())

	names, err := svc.GetEffectivePermissions(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEffectivePermissionsCached(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	identity := newFakeIdentityStore()
	svc := NewService(repo, identity)

	userID := setupUser(t, identity, "viewer")

	_, err := svc.GetEffectivePermissions(ctx, userID)
	require.NoError(t, err)
	_, err = svc.GetEffectivePermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.permissionNamesCalls)
}

func TestMutationFlushesCache(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	identity := newFakeIdentityStore()
	svc := NewService(repo, identity)

	perm := &model.Permission{Name: "view_patients"}
	require.NoError(t, repo.CreatePermission(ctx, perm))
	role := &model.Role{Name: "viewer"}
	require.NoError(t, repo.CreateRole(ctx, role))

	userID := setupUser(t, identity, "viewer")

	names, err := svc.GetEffectivePermissions(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, svc.AssignPermissions(ctx, role.ID, []uuid.UUID{perm.ID}))

	names, err = svc.GetEffectivePermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"view_patients"}, names)
}

func TestInvalidateUserDropsCachedSet(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	identity := newFakeIdentityStore()
	svc := NewService(repo, identity)

	perm := &model.Permission{Name: "view_patients"}
	require.NoError(t, repo.CreatePermission(ctx, perm))
	role := &model.Role{Name: "viewer"}
	require.NoError(t, repo.CreateRole(ctx, role))
	require.NoError(t, repo.ReplaceRolePermissions(ctx, role.ID, []uuid.UUID{perm.ID}))

	userID := setupUser(t, identity)

	// No roles yet: the empty set gets cached.
	ok, err := svc.HasPermission(ctx, userID, "view_patients")
	require.NoError(t, err)
	assert.False(t, ok)

	// A role grant through the identity store, the way onboarding does it.
	require.NoError(t, identity.AddToRole(ctx, userID, "viewer"))

	// Still the stale cached answer until the grantor invalidates.
	ok, err = svc.HasPermission(ctx, userID, "view_patients")
	require.NoError(t, err)
	assert.False(t, ok)

	svc.InvalidateUser(userID)

	ok, err = svc.HasPermission(ctx, userID, "view_patients")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAssignPermissionsFullReplace(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	svc := NewService(repo, newFakeIdentityStore())

	a := &model.Permission{Name: "a"}
	b := &model.Permission{Name: "b"}
	c := &model.Permission{Name: "c"}
	for _, p := range []*model.Permission{a, b, c} {
		require.NoError(t, repo.CreatePermission(ctx, p))
	}
	role := &model.Role{Name: "staff"}
	require.NoError(t, repo.CreateRole(ctx, role))

	require.NoError(t, svc.AssignPermissions(ctx, role.ID, []uuid.UUID{a.ID, b.ID}))
	require.NoError(t, svc.AssignPermissions(ctx, role.ID, []uuid.UUID{c.ID}))

	detail, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, detail.Permissions, 1)
	assert.Equal(t, "c", detail.Permissions[0].Name)

	// Idempotent
	require.NoError(t, svc.AssignPermissions(ctx, role.ID, []uuid.UUID{c.ID}))
	detail, err = svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Permissions, 1)
}

func TestAssignPermissionsUnknownPermission(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	svc := NewService(repo, newFakeIdentityStore())

	role := &model.Role{Name: "staff"}
	require.NoError(t, repo.CreateRole(ctx, role))

	err := svc.AssignPermissions(ctx, role.ID, []uuid.UUID{uuid.New()})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestDeleteRoleHeldByUsers(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	identity := newFakeIdentityStore()
	svc := NewService(repo, identity)

	role := &model.Role{Name: "staff"}
	require.NoError(t, repo.CreateRole(ctx, role))
	setupUser(t, identity, "staff")

	err := svc.DeleteRole(ctx, role.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	_, err = svc.GetRole(ctx, role.ID)
	assert.NoError(t, err)
}

func TestDeleteSystemRole(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	svc := NewService(repo, newFakeIdentityStore())

	role := &model.Role{Name: model.RoleAdmin, IsSystemRole: true}
	require.NoError(t, repo.CreateRole(ctx, role))

	err := svc.DeleteRole(ctx, role.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
}

func TestDeletePermissionReferencedByRole(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	svc := NewService(repo, newFakeIdentityStore())

	perm := &model.Permission{Name: "view_patients"}
	require.NoError(t, repo.CreatePermission(ctx, perm))
	role := &model.Role{Name: "viewer"}
	require.NoError(t, repo.CreateRole(ctx, role))
	require.NoError(t, repo.ReplaceRolePermissions(ctx, role.ID, []uuid.UUID{perm.ID}))

	err := svc.DeletePermission(ctx, perm.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	require.NoError(t, svc.RemovePermissionFromRole(ctx, role.ID, perm.ID))
	assert.NoError(t, svc.DeletePermission(ctx, perm.ID))
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRBACRepo()
	identity := newFakeIdentityStore()
	svc := NewService(repo, identity)

	require.NoError(t, svc.Seed(ctx))
	require.NoError(t, svc.Seed(ctx))

	assert.Len(t, repo.permissions, len(model.PermissionCatalog()))
	assert.Len(t, repo.roles, len(model.BootstrapRoles()))

	admin, err := repo.GetRoleByName(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsSystemRole)
	granted, err := repo.ListRolePermissions(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, granted, len(model.PermissionCatalog()))
}
