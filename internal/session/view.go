package session

import (
	"qbank/internal/question"
	"qbank/internal/resource"
)

type View struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Difficulty        string          `json:"difficulty"`
	Round             int             `json:"round"`
	Type              string          `json:"type"`
	NumberOfQuestions int             `json:"numberOfQuestions"`
	Questions         []question.View `json:"questions,omitempty"`
	StartsAt          *string         `json:"startsAt"`
	EndsAt            *string         `json:"endsAt"`
	Status            Status          `json:"status"`
	CreatedAt         string          `json:"createdAt"`
}

func NewView(s *Session) View {
	v := View{
		ID:                s.ID,
		Title:             s.Title,
		Difficulty:        string(s.Difficulty),
		Round:             s.Round,
		Type:              string(s.Type),
		NumberOfQuestions: s.NumberOfQuestions,
		StartsAt:          resource.OptionalDate(s.StartsAt),
		EndsAt:            resource.OptionalDate(s.EndsAt),
		Status:            s.Status,
		CreatedAt:         resource.Date(s.CreatedAt),
	}
	if s.Questions != nil {
		v.Questions = question.NewViews(s.Questions)
	}
	return v
}

func NewViews(items []Session) []View {
	out := make([]View, 0, len(items))
	for i := range items {
		out = append(out, NewView(&items[i]))
	}
	return out
}
