package rbac

import "time"

// Role groups permissions. Every user carries exactly one role.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission grants one action on one module, e.g. orders:update.
type Permission struct {
	ID     int64
	Module string
	Action string
}

// Key renders the canonical module:action form.
func (p Permission) Key() string {
	return p.Module + ":" + p.Action
}
