package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/maderia/maderia/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo          Repository
	defaultRoleID int64
}

// NewService constructs a new Service. defaultRoleID is assigned to
// self-registered customers.
func NewService(repo Repository, defaultRoleID int64) *Service {
	return &Service{repo: repo, defaultRoleID: defaultRoleID}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a customer account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password, phone string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Phone:        phone,
		RoleID:       s.defaultRoleID,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// ChangePassword verifies the current password before replacing it.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// Profile loads the account for the authenticated user.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// Contact resolves the display name and email for a user. Visit and
// quotation notifications use it to address mail.
func (s *Service) Contact(ctx context.Context, userID int64) (string, string, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.Name, user.Email, nil
}
