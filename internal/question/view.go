package question

import "qbank/internal/resource"

type OptionView struct {
	ID        int64  `json:"id"`
	Text      string `json:"optionText"`
	IsCorrect bool   `json:"isCorrect"`
}

type AnswerView struct {
	ID   int64  `json:"id"`
	Text string `json:"answerText"`
}

// View is the camelCase API shape of a question. Relations that were not
// loaded are omitted.
type View struct {
	ID             int64          `json:"id"`
	Round          int            `json:"round"`
	Type           Type           `json:"type"`
	Difficulty     Difficulty     `json:"difficulty"`
	QuestionText   string         `json:"questionText"`
	Status         Status         `json:"status"`
	BoolAnswer     *bool          `json:"boolAnswer"`
	HasBeenAsked   bool           `json:"hasBeenAsked"`
	Options        []OptionView   `json:"options,omitempty"`
	Answer         *AnswerView    `json:"answer,omitempty"`
	Subject        *resource.Ref  `json:"subject,omitempty"`
	Topic          *resource.Ref  `json:"topic,omitempty"`
	Author         *resource.Ref  `json:"author,omitempty"`
	LastModifier   *resource.Ref  `json:"lastModifier,omitempty"`
	CreatedAt      string         `json:"createdAt"`
	CreatedAtHuman string         `json:"createdAtHuman"`
	UpdatedAt      string         `json:"updatedAt"`
	UpdatedAtHuman string         `json:"updatedAtHuman"`
}

func NewView(q *Question) View {
	v := View{
		ID:             q.ID,
		Round:          q.Round,
		Type:           q.Type,
		Difficulty:     q.Difficulty,
		QuestionText:   q.Text,
		Status:         q.Status,
		BoolAnswer:     q.BoolAnswer,
		HasBeenAsked:   q.HasBeenAsked,
		Subject:        ref(q.Subject),
		Topic:          ref(q.Topic),
		Author:         ref(q.Author),
		LastModifier:   ref(q.LastModifier),
		CreatedAt:      resource.Date(q.CreatedAt),
		CreatedAtHuman: resource.Human(q.CreatedAt),
		UpdatedAt:      resource.Date(q.UpdatedAt),
		UpdatedAtHuman: resource.Human(q.UpdatedAt),
	}
	if q.Options != nil {
		v.Options = make([]OptionView, 0, len(q.Options))
		for _, o := range q.Options {
			v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect})
		}
	}
	if q.Answer != nil {
		v.Answer = &AnswerView{ID: q.Answer.ID, Text: q.Answer.Text}
	}
	return v
}

func NewViews(items []Question) []View {
	out := make([]View, 0, len(items))
	for i := range items {
		out = append(out, NewView(&items[i]))
	}
	return out
}

func ref(r *Ref) *resource.Ref {
	if r == nil {
		return nil
	}
	return &resource.Ref{ID: r.ID, Name: r.Name}
}
