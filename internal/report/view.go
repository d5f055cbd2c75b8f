package report

import (
	"qbank/internal/activity"
	"qbank/internal/resource"
)

type SubjectCountView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount"`
}

type ActivityView struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	CreatedAt      string `json:"createdAt"`
	CreatedAtHuman string `json:"createdAtHuman"`
}

type DashboardView struct {
	QuestionCount         int                `json:"questionCount"`
	ApprovedQuestionCount int                `json:"approvedQuestionCount"`
	PendingQuestionCount  int                `json:"pendingQuestionCount"`
	RejectedQuestionCount int                `json:"rejectedQuestionCount"`
	QuestionsByType       map[string]int     `json:"questionsByType"`
	SessionsByStatus      map[string]int     `json:"sessionsByStatus"`
	MemberCount           int                `json:"memberCount"`
	Subjects              []SubjectCountView `json:"subjects"`
	Activities            []ActivityView     `json:"activities"`
}

func NewActivityView(a *activity.Activity) ActivityView {
	return ActivityView{
		ID:             a.ID,
		Title:          a.Title,
		Description:    a.Description,
		Type:           a.Type,
		CreatedAt:      resource.Date(a.CreatedAt),
		CreatedAtHuman: resource.Human(a.CreatedAt),
	}
}

func NewDashboardView(d *Dashboard) DashboardView {
	v := DashboardView{
		QuestionCount:         d.Questions,
		ApprovedQuestionCount: d.QuestionsByStatus["approved"],
		PendingQuestionCount:  d.QuestionsByStatus["pending"],
		RejectedQuestionCount: d.QuestionsByStatus["rejected"],
		QuestionsByType:       d.QuestionsByType,
		SessionsByStatus:      d.SessionsByStatus,
		MemberCount:           d.Members,
		Subjects:              make([]SubjectCountView, 0, len(d.Subjects)),
		Activities:            make([]ActivityView, 0, len(d.Activities)),
	}
	for _, s := range d.Subjects {
		v.Subjects = append(v.Subjects, SubjectCountView{ID: s.ID, Name: s.Name, QuestionCount: s.QuestionCount})
	}
	for i := range d.Activities {
		v.Activities = append(v.Activities, NewActivityView(&d.Activities[i]))
	}
	return v
}
