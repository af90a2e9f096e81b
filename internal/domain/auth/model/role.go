package model

import (
	"fmt"

	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
)

// Role ids match the roles table; the strings go into signed tokens.
type Role int

const (
	RoleAdmin     Role = 1
	RoleUser      Role = 2
	RoleSuperUser Role = 3
)

const DefaultRole = RoleUser

// RoleFromID never fails: unknown ids fall back to the least privileged role.
func RoleFromID(id int) Role {
	switch r := Role(id); r {
	case RoleAdmin, RoleUser, RoleSuperUser:
		return r
	default:
		return DefaultRole
	}
}

// ParseRole accepts only the canonical names.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	case "superuser":
		return RoleSuperUser, nil
	default:
		return 0, fmt.Errorf("%w: %q", customErrors.ErrInvalidRole, s)
	}
}

func (r Role) ID() int { return int(r) }

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleSuperUser
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	case RoleSuperUser:
		return "superuser"
	default:
		return "unknown"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: id %d", customErrors.ErrInvalidRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
