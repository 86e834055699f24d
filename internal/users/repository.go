package users

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maderia/maderia/internal/shared"
)

// Repository provides admin level access to user accounts.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	SetRole(ctx context.Context, userID, roleID int64) error
	SetActive(ctx context.Context, userID int64, active bool) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns every account joined to its role name, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, u.phone, u.role_id, r.name, u.is_active, u.registered_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.registered_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.RoleID, &a.RoleName, &a.IsActive, &a.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetRole reassigns the account's role.
func (r *PGRepository) SetRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role_id = $2, updated_at = NOW() WHERE id = $1`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles whether the account can sign in.
func (r *PGRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, userID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
