// Package policy holds the authorization rules for event-scoped resources.
// Every rule is a pure function of the principal and the resource; nothing
// here reads the database.
package policy

import (
	"errors"

	"qbank/internal/auth"
)

// ErrDenied is returned by services when a rule rejects the caller. The HTTP
// layer reports it as not found so that resource existence is not revealed.
var ErrDenied = errors.New("not found")

type Action string

const (
	ActionViewAny     Action = "viewAny"
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionRestore     Action = "restore"
	ActionForceDelete Action = "forceDelete"
)

const (
	statusPending  = "pending"
	statusApproved = "approved"
)

// Question is the slice of a question the rules look at. For ActionCreate,
// EventID is the caller's current event.
type Question struct {
	EventID  int64
	AuthorID int64
	Status   string
}

func CanQuestion(u *auth.User, action Action, q Question) bool {
	if u == nil {
		return false
	}
	if u.HasAnyRole(auth.RoleAdmin, auth.RoleSuperAdmin) {
		return true
	}

	member := u.InEvent(q.EventID)
	author := q.AuthorID == u.ID
	switch action {
	case ActionViewAny:
		return true
	case ActionView:
		return member
	case ActionCreate:
		return member && u.CanAddQuestion()
	case ActionUpdate:
		return member && author && q.Status == statusPending
	case ActionDelete:
		return member && author && q.Status != statusApproved
	case ActionRestore, ActionForceDelete:
		return member && u.CanManageQuestion()
	default:
		return false
	}
}

// CanSubject covers subjects and their topics.
func CanSubject(u *auth.User, action Action, eventID int64) bool {
	if u == nil {
		return false
	}
	if u.IsSuperAdmin() {
		return true
	}

	member := u.InEvent(eventID)
	switch action {
	case ActionViewAny, ActionView:
		return member
	case ActionCreate, ActionUpdate, ActionDelete, ActionRestore, ActionForceDelete:
		return member && u.HasRole(auth.RoleAdmin)
	default:
		return false
	}
}

func CanManageUsers(u *auth.User, eventID int64) bool {
	return u.InEvent(eventID) && u.CanManageSubject()
}

// CanSession gates session assembly and lifecycle. Any member may view.
func CanSession(u *auth.User, action Action, eventID int64) bool {
	if !u.InEvent(eventID) {
		return false
	}
	switch action {
	case ActionViewAny, ActionView:
		return true
	default:
		return u.CanManageQuestion()
	}
}

func CanEvent(u *auth.User, action Action, eventID int64) bool {
	switch action {
	case ActionCreate:
		return u != nil
	case ActionViewAny, ActionView:
		return u.InEvent(eventID)
	case ActionUpdate, ActionDelete:
		return u.InEvent(eventID) && u.CanManageSubject()
	default:
		return false
	}
}

// Check converts a decision into ErrDenied.
func Check(allowed bool) error {
	if !allowed {
		return ErrDenied
	}
	return nil
}
