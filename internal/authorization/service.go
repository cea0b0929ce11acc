package authorization

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Role is the platform role asserted by the upstream gateway.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleUser     Role = "user"
	RoleSystem   Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee, RoleUser, RoleSystem:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a role header value. Unknown values are rejected.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if role == "" {
		return RoleUser, nil
	}
	if !role.Valid() || role == RoleSystem {
		return "", ErrInvalidActor
	}
	return role, nil
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   snowflake.ID
	Role Role
}

// System is the actor used by background jobs.
var System = Actor{Role: RoleSystem}

// IsStaff reports whether the actor moderates listings.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleEmployee
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Type is the audit actor type.
func (a Actor) Type() string {
	if a.Role == RoleSystem {
		return "system"
	}
	return "user"
}

// IDString returns the actor id, or "" for the system actor.
func (a Actor) IDString() string {
	if a.ID == 0 {
		return ""
	}
	return a.ID.String()
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}
