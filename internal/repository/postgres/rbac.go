package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/apperror"
)

// All RBAC repository methods here

func (r *rbacRepository) CreateRole(ctx context.Context, role *model.Role) error {
	query := `
		INSERT INTO roles (id, name, description, is_system_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	role.ID = uuid.New()
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		role.IsSystemRole,
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("role with this name already exists", "name")
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	query := `
		SELECT id, name, description, is_system_role, created_at, updated_at
		FROM roles
		WHERE id = $1
	`
	var role model.Role
	err := r.db.GetContext(ctx, &role, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

func (r *rbacRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	query := `
		SELECT id, name, description, is_system_role, created_at, updated_at
		FROM roles
		WHERE name = $1
	`
	var role model.Role
	err := r.db.GetContext(ctx, &role, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return &role, nil
}

func (r *rbacRepository) UpdateRole(ctx context.Context, role *model.Role) error {
	query := `
		UPDATE roles
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`
	role.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		role.Name,
		role.Description,
		role.UpdatedAt,
		role.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("role with this name already exists", "name")
		}
		return fmt.Errorf("failed to update role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("role")
	}

	return nil
}

func (r *rbacRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM roles
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("role")
	}

	return nil
}

func (r *rbacRepository) ListRoles(ctx context.Context, p model.Pagination) ([]*model.Role, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM roles`); err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	query := `
		SELECT id, name, description, is_system_role, created_at, updated_at
		FROM roles
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	var roles []*model.Role
	if err := r.db.SelectContext(ctx, &roles, query, p.Size, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, total, nil
}

func (r *rbacRepository) CreatePermission(ctx context.Context, permission *model.Permission) error {
	query := `
		INSERT INTO permissions (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	permission.ID = uuid.New()
	permission.CreatedAt = time.Now()
	permission.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		permission.ID,
		permission.Name,
		permission.Description,
		permission.CreatedAt,
		permission.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("permission with this name already exists", "name")
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM permissions
		WHERE id = $1
	`
	var permission model.Permission
	err := r.db.GetContext(ctx, &permission, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("permission")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &permission, nil
}

func (r *rbacRepository) GetPermissionByName(ctx context.Context, name string) (*model.Permission, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM permissions
		WHERE name = $1
	`
	var permission model.Permission
	err := r.db.GetContext(ctx, &permission, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("permission")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission by name: %w", err)
	}
	return &permission, nil
}

func (r *rbacRepository) UpdatePermission(ctx context.Context, permission *model.Permission) error {
	query := `
		UPDATE permissions
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`
	permission.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		permission.Name,
		permission.Description,
		permission.UpdatedAt,
		permission.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("permission with this name already exists", "name")
		}
		return fmt.Errorf("failed to update permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("permission")
	}

	return nil
}

func (r *rbacRepository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM permissions
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("permission")
	}

	return nil
}

func (r *rbacRepository) ListPermissions(ctx context.Context, p model.Pagination) ([]*model.Permission, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM permissions`); err != nil {
		return nil, 0, fmt.Errorf("failed to count permissions: %w", err)
	}

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM permissions
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	var permissions []*model.Permission
	if err := r.db.SelectContext(ctx, &permissions, query, p.Size, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list permissions: %w", err)
	}
	return permissions, total, nil
}

// ReplaceRolePermissions is a full replace: delete everything the role holds,
// then insert the new set. Both steps share one transaction so a failure
// leaves the previous assignment intact.
func (r *rbacRepository) ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	insert := `
		INSERT INTO role_permissions (id, role_id, permission_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	now := time.Now()
	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx, insert, uuid.New(), roleID, permID, now, now); err != nil {
			return fmt.Errorf("failed to assign permission to role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role permissions: %w", err)
	}
	return nil
}

func (r *rbacRepository) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to remove permission from role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("role permission")
	}

	return nil
}

func (r *rbacRepository) ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	query := `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name ASC
	`
	var permissions []*model.Permission
	err := r.db.SelectContext(ctx, &permissions, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	return permissions, nil
}

func (r *rbacRepository) CountRolesWithPermission(ctx context.Context, permissionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1`, permissionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count permission references: %w", err)
	}
	return count, nil
}

func (r *rbacRepository) PermissionNamesForRoles(ctx context.Context, roleNames []string) ([]string, error) {
	if len(roleNames) == 0 {
		return nil, nil
	}
	query := `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON p.id = rp.permission_id
		JOIN roles r ON rp.role_id = r.id
		WHERE r.name = ANY($1)
	`
	var names []string
	err := r.db.SelectContext(ctx, &names, query, pq.Array(roleNames))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role permissions: %w", err)
	}
	return names, nil
}
