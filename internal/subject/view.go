package subject

import "qbank/internal/resource"

type TopicView struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	QuestionCount int           `json:"questionCount"`
	Subject       *resource.Ref `json:"subject,omitempty"`
	CreatedAt     string        `json:"createdAt"`
}

type View struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	QuestionCount int         `json:"questionCount"`
	Topics        []TopicView `json:"topics,omitempty"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt"`
}

func NewTopicView(t *Topic) TopicView {
	v := TopicView{
		ID:            t.ID,
		Name:          t.Name,
		Description:   t.Description,
		QuestionCount: t.QuestionCount,
		CreatedAt:     resource.Date(t.CreatedAt),
	}
	if t.SubjectName != "" {
		v.Subject = &resource.Ref{ID: t.SubjectID, Name: t.SubjectName}
	}
	return v
}

func NewTopicViews(items []Topic) []TopicView {
	out := make([]TopicView, 0, len(items))
	for i := range items {
		out = append(out, NewTopicView(&items[i]))
	}
	return out
}

func NewView(s *Subject) View {
	v := View{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		QuestionCount: s.QuestionCount,
		CreatedAt:     resource.Date(s.CreatedAt),
		UpdatedAt:     resource.Date(s.UpdatedAt),
	}
	if s.Topics != nil {
		v.Topics = NewTopicViews(s.Topics)
	}
	return v
}

func NewViews(items []Subject) []View {
	out := make([]View, 0, len(items))
	for i := range items {
		out = append(out, NewView(&items[i]))
	}
	return out
}
