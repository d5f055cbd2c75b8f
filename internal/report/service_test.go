package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"qbank/internal/auth"
	"qbank/internal/event"
	"qbank/internal/policy"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID = int64(10)

func memberScope() event.Scope {
	return event.Scope{EventID: eventID, Actor: &auth.User{ID: 1, Roles: []auth.Role{auth.RoleViewer}, EventIDs: []int64{eventID}}}
}

func expectDashboard(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM questions")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 4).
			AddRow("pending", 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT type, COUNT(*) FROM questions")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).AddRow("mcq", 6))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM question_sessions")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("pending", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_events")).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT id, name, question_count FROM subjects").
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "question_count"}).AddRow(int64(5), "Math", 6))
	mock.ExpectQuery("FROM activities").
		WithArgs(eventID, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "title", "description", "type", "created_at"}).
			AddRow(int64(1), eventID, "New question added", "2+2?", "new_question", time.Now()))
}

func TestDashboard(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	expectDashboard(mock)

	d, err := NewService(conn).Dashboard(context.Background(), memberScope())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 6, d.Questions)
	assert.Equal(t, 6, d.QuestionsByType["mcq"])
	assert.Equal(t, 1, d.SessionsByStatus["pending"])
	assert.Equal(t, 3, d.Members)
	require.Len(t, d.Subjects, 1)
	require.Len(t, d.Activities, 1)

	v := NewDashboardView(d)
	assert.Equal(t, 4, v.ApprovedQuestionCount)
	assert.Equal(t, 2, v.PendingQuestionCount)
	assert.Equal(t, 0, v.RejectedQuestionCount)
}

func TestDashboardDeniedForOutsider(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	outsider := event.Scope{EventID: eventID, Actor: &auth.User{ID: 2, Roles: []auth.Role{auth.RoleAdmin}}}
	_, err = NewService(conn).Dashboard(context.Background(), outsider)
	assert.ErrorIs(t, err, policy.ErrDenied)
}

func TestDashboardHandler(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	expectDashboard(mock)

	h := NewHandler(NewService(conn))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/10/dashboard", nil)
	req = req.WithContext(event.ContextWithScope(req.Context(), memberScope()))
	w := httptest.NewRecorder()
	h.Dashboard(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		OK   bool          `json:"ok"`
		Data DashboardView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, 6, body.Data.QuestionCount)
	assert.Equal(t, "Math", body.Data.Subjects[0].Name)
	assert.Equal(t, "New question added", body.Data.Activities[0].Title)
}
