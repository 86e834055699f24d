package roles

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maderia/maderia/internal/rbac"
	"github.com/maderia/maderia/internal/shared"
)

// Repository persists roles and their permission grants.
type Repository interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	ListPermissions(ctx context.Context) ([]rbac.Permission, error)
	RolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error)
	Grant(ctx context.Context, roleID, permissionID int64) error
	Revoke(ctx context.Context, roleID, permissionID int64) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *PGRepository) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	return r.scanPermissions(ctx,
		`SELECT id, module, action FROM permissions ORDER BY module, action`)
}

func (r *PGRepository) RolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	return r.scanPermissions(ctx, `
		SELECT p.id, p.module, p.action FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.module, p.action`, roleID)
}

func (r *PGRepository) scanPermissions(ctx context.Context, query string, args ...any) ([]rbac.Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Module, &p.Action); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) Grant(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	return err
}

func (r *PGRepository) Revoke(ctx context.Context, roleID, permissionID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
