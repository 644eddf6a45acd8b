package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
	RoleService    Role = "service"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTechnician, RoleService, RoleAdmin:
		return true
	}
	return false
}

// Actor is the resolved identity behind a request. A nil *Actor means the
// caller is anonymous.
type Actor struct {
	ID     uint
	Role   Role
	Active bool
}

// IsPrivileged reports whether the actor sees every order (admin and
// customer service).
func (a *Actor) IsPrivileged() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleService)
}

type User struct {
	ID           uint
	Phone        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Actor() *Actor {
	return &Actor{ID: u.ID, Role: u.Role, Active: u.Active}
}

func (u *User) IsActiveTechnician() bool {
	return u.Active && u.Role == RoleTechnician
}
