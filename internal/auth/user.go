package auth

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSuperAdmin  Role = "super admin"
	RoleAdmin       Role = "admin"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

var allRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleContributor, RoleViewer}

// ParseRole accepts the stored role names plus the snake_case spelling
// ("super_admin") used by older clients.
func ParseRole(s string) (Role, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", " ")
	for _, r := range allRoles {
		if string(r) == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// User is the authenticated principal. Roles and EventIDs are loaded with the
// user so policy checks never touch the database.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []Role    `json:"roles"`
	EventIDs  []int64   `json:"event_ids"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

func (u *User) InEvent(eventID int64) bool {
	if u == nil {
		return false
	}
	for _, id := range u.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

func (u *User) IsSuperAdmin() bool { return u.HasRole(RoleSuperAdmin) }

func (u *User) CanManageSubject() bool { return u.HasAnyRole(RoleAdmin, RoleSuperAdmin) }

func (u *User) CanManageQuestion() bool { return u.HasAnyRole(RoleAdmin, RoleSuperAdmin) }

func (u *User) CanAddQuestion() bool {
	return u.HasAnyRole(RoleAdmin, RoleSuperAdmin, RoleContributor)
}

// FirstEventID returns the lowest event id the user belongs to.
func (u *User) FirstEventID() (int64, bool) {
	if u == nil || len(u.EventIDs) == 0 {
		return 0, false
	}
	first := u.EventIDs[0]
	for _, id := range u.EventIDs[1:] {
		if id < first {
			first = id
		}
	}
	return first, true
}
