package auth

import "time"

// User represents an account able to sign in. Role links into the rbac module.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	RoleID       int64
	IsActive     bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}
