package users

import (
	"context"
	"fmt"

	"github.com/maderia/maderia/internal/platform/httpx"
)

// Service handles account administration.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// SetRole reassigns a user's role.
func (s *Service) SetRole(ctx context.Context, userID, roleID int64) error {
	if roleID <= 0 {
		return fmt.Errorf("%w: valid roleId is required", httpx.ErrValidation)
	}
	return s.repo.SetRole(ctx, userID, roleID)
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool) error {
	return s.repo.SetActive(ctx, userID, active)
}
