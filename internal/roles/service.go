package roles

import (
	"context"

	"github.com/maderia/maderia/internal/rbac"
)

// RoleView is a role with its granted permissions.
type RoleView struct {
	rbac.Role
	Permissions []rbac.Permission `json:"permissions"`
}

// Service handles role administration.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every role with its grants.
func (s *Service) List(ctx context.Context) ([]RoleView, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		perms, err := s.repo.RolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleView{Role: role, Permissions: perms})
	}
	return out, nil
}

// Permissions returns the full permission catalog.
func (s *Service) Permissions(ctx context.Context) ([]rbac.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// Grant adds a permission to a role.
func (s *Service) Grant(ctx context.Context, roleID, permissionID int64) error {
	return s.repo.Grant(ctx, roleID, permissionID)
}

// Revoke removes a permission from a role.
func (s *Service) Revoke(ctx context.Context, roleID, permissionID int64) error {
	return s.repo.Revoke(ctx, roleID, permissionID)
}
