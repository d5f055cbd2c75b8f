package question

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeMCQ         Type = "mcq"
	TypeTrueFalse   Type = "true_false"
	TypeShortAnswer Type = "short_answer"
	TypeLongAnswer  Type = "long_answer"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeMCQ, TypeTrueFalse, TypeShortAnswer, TypeLongAnswer:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, s)
}

// TypeFromLabel maps the human labels used in spreadsheets
// ("Multiple Choice", "True/False", ...) to a Type.
func TypeFromLabel(label string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "multiple choice":
		return TypeMCQ, nil
	case "short answer":
		return TypeShortAnswer, nil
	case "long answer":
		return TypeLongAnswer, nil
	case "true/false":
		return TypeTrueFalse, nil
	}
	return "", fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, label)
}

// Label is the inverse of TypeFromLabel.
func (t Type) Label() string {
	switch t {
	case TypeMCQ:
		return "Multiple Choice"
	case TypeShortAnswer:
		return "Short Answer"
	case TypeLongAnswer:
		return "Long Answer"
	case TypeTrueFalse:
		return "True/False"
	}
	return string(t)
}

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, s)
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

type Option struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"answer_text"`
}

// Ref is a named reference to a related row (subject, topic, user).
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Question struct {
	ID             int64      `json:"id"`
	EventID        int64      `json:"event_id"`
	SubjectID      int64      `json:"subject_id"`
	TopicID        int64      `json:"topic_id"`
	AuthorID       int64      `json:"user_id"`
	LastModifiedBy *int64     `json:"last_modified_by,omitempty"`
	SessionID      *int64     `json:"session_id,omitempty"`
	Round          int        `json:"round"`
	Type           Type       `json:"type"`
	Difficulty     Difficulty `json:"difficulty"`
	Text           string     `json:"question_text"`
	Status         Status     `json:"status"`
	BoolAnswer     *bool      `json:"bool_answer,omitempty"`
	HasBeenAsked   bool       `json:"has_been_asked"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations, populated only by the loaders that join them.
	Options      []Option `json:"options,omitempty"`
	Answer       *Answer  `json:"answer,omitempty"`
	Subject      *Ref     `json:"subject,omitempty"`
	Topic        *Ref     `json:"topic,omitempty"`
	Author       *Ref     `json:"author,omitempty"`
	LastModifier *Ref     `json:"last_modifier,omitempty"`
}

// CorrectOption returns the option flagged correct, if any.
func (q *Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

type OptionInput struct {
	Text      string
	IsCorrect bool
}

type AddInput struct {
	SubjectID  int64
	TopicID    int64
	Round      int
	Type       string
	Difficulty string
	Text       string
	BoolAnswer *bool
	AnswerText string
	Options    []OptionInput
}

// UpdateInput carries a partial update. Nil fields are left unchanged; a nil
// Options slice keeps the current options.
type UpdateInput struct {
	SubjectID  *int64
	TopicID    *int64
	Round      *int
	Type       *string
	Difficulty *string
	Text       *string
	BoolAnswer *bool
	AnswerText *string
	Options    []OptionInput
}

type ListFilter struct {
	Search     string
	Subject    string
	Difficulty string
	Status     string
	Type       string
	Page       int
}

const PageSize = 50

type Page struct {
	Items   []Question `json:"items"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Total   int        `json:"total"`
}
