package user

import (
	"qbank/internal/auth"
	"qbank/internal/resource"
)

type View struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Roles          []auth.Role `json:"roles"`
	CreatedAt      string      `json:"createdAt"`
	CreatedAtHuman string      `json:"createdAtHuman"`
}

func NewView(u *auth.User) View {
	roles := u.Roles
	if roles == nil {
		roles = []auth.Role{}
	}
	return View{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Roles:          roles,
		CreatedAt:      resource.Date(u.CreatedAt),
		CreatedAtHuman: resource.Human(u.CreatedAt),
	}
}

func NewViews(items []auth.User) []View {
	out := make([]View, 0, len(items))
	for i := range items {
		out = append(out, NewView(&items[i]))
	}
	return out
}
