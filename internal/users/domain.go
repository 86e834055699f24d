package users

import "time"

// Account is the admin view of a user, including its role name.
type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	RoleID       int64     `json:"roleId"`
	RoleName     string    `json:"roleName"`
	IsActive     bool      `json:"isActive"`
	RegisteredAt time.Time `json:"registeredAt"`
}
