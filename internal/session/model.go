package session

import (
	"time"

	"qbank/internal/question"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusOngoing Status = "ongoing"
	StatusEnded   Status = "ended"
)

// Session is a drawn quiz round. Questions is populated only by GetSession
// and ListSessions.
type Session struct {
	ID                int64               `json:"id"`
	EventID           int64               `json:"event_id"`
	Title             string              `json:"title"`
	Difficulty        question.Difficulty `json:"difficulty"`
	Type              question.Type       `json:"type"`
	Round             int                 `json:"round"`
	NumberOfQuestions int                 `json:"number_of_questions"`
	StartsAt          *time.Time          `json:"starts_at,omitempty"`
	EndsAt            *time.Time          `json:"ends_at,omitempty"`
	Status            Status              `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	Questions []question.Question `json:"questions,omitempty"`
}

type CreateInput struct {
	Title             string
	Difficulty        string
	Type              string
	Round             int
	NumberOfQuestions int
	StartsAt          *time.Time
	EndsAt            *time.Time
}

// Created is the outcome of CreateSession. Assigned may be lower than the
// requested number when fewer questions match the filter.
type Created struct {
	Session  *Session
	Assigned int
}
