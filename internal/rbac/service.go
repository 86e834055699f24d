package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service resolves effective permissions for users.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs the rbac service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// EffectivePermissions returns the module:action keys granted to a user
// through their role.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	const query = `
		SELECT p.module, p.action
		FROM users u
		JOIN role_permissions rp ON rp.role_id = u.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Module, &p.Action); err != nil {
			return nil, err
		}
		keys = append(keys, p.Key())
	}
	return keys, rows.Err()
}

// Has reports whether the user holds the given module:action grant.
func (s *Service) Has(ctx context.Context, userID int64, module, action string) (bool, error) {
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	want := module + ":" + action
	for _, p := range perms {
		if p == want {
			return true, nil
		}
	}
	return false, nil
}
