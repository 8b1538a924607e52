package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/storage/mongodb"
)

// Role is the privilege level of an identity. The zero value grants nothing.
type Role int

const (
	RoleNone Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// ParseRole accepts "admin" and "none" (or empty) case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "none", "":
		return RoleNone, nil
	}
	return RoleNone, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, s)
}

// roleFromStore never fails: anything stored that is not "admin" is RoleNone.
func roleFromStore(s string) Role {
	r, err := ParseRole(s)
	if err != nil {
		return RoleNone
	}
	return r
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Profile holds the free-form fields supplied by the identity provider or the
// user. Keys are stored as document paths, so they are validated by Clean.
type Profile map[string]any

var reservedProfileKeys = map[string]struct{}{
	"uid": {}, "role": {}, "_id": {}, "createdAt": {}, "updatedAt": {},
}

// Clean drops reserved top-level keys and rejects keys, at any depth, that
// cannot be stored as a field name.
func (p Profile) Clean() (Profile, error) {
	out := make(Profile, len(p))
	for k, v := range p {
		if _, reserved := reservedProfileKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	if path, bad := mongodb.InvalidKey(out); bad {
		return nil, fmt.Errorf("%w: invalid profile field %q", apperr.ErrInvalidInput, path)
	}
	return out, nil
}

// User is a stored identity keyed by its external id.
type User struct {
	UID       string    `json:"uid"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether u holds admin privileges.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RoleRequest payload for granting or revoking admin.
// swagger:model RoleRequest
type RoleRequest struct {
	UID  string `json:"uid"  example:"Xy12abc"`
	Role string `json:"role" example:"admin"`
}
