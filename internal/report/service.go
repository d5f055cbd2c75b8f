// Package report builds the event dashboard: question and session tallies,
// per-subject counts and the recent activity feed.
package report

import (
	"context"
	"database/sql"
	"fmt"

	"qbank/internal/activity"
	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/policy"
)

const recentActivities = 10

type SubjectCount struct {
	ID            int64
	Name          string
	QuestionCount int
}

type Dashboard struct {
	EventID           int64
	Questions         int
	QuestionsByStatus map[string]int
	QuestionsByType   map[string]int
	SessionsByStatus  map[string]int
	Members           int
	Subjects          []SubjectCount
	Activities        []activity.Activity
}

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn}
}

func (s *Service) Dashboard(ctx context.Context, scope event.Scope) (*Dashboard, error) {
	if err := policy.Check(policy.CanEvent(scope.Actor, policy.ActionView, scope.EventID)); err != nil {
		return nil, err
	}
	out := &Dashboard{EventID: scope.EventID}

	var err error
	if out.QuestionsByStatus, err = tally(ctx, s.db, `SELECT status, COUNT(*) FROM questions WHERE event_id = $1 GROUP BY status`, scope.EventID); err != nil {
		return nil, fmt.Errorf("count questions by status: %w", err)
	}
	for _, n := range out.QuestionsByStatus {
		out.Questions += n
	}
	if out.QuestionsByType, err = tally(ctx, s.db, `SELECT type, COUNT(*) FROM questions WHERE event_id = $1 GROUP BY type`, scope.EventID); err != nil {
		return nil, fmt.Errorf("count questions by type: %w", err)
	}
	if out.SessionsByStatus, err = tally(ctx, s.db, `SELECT status, COUNT(*) FROM question_sessions WHERE event_id = $1 GROUP BY status`, scope.EventID); err != nil {
		return nil, fmt.Errorf("count sessions by status: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_events WHERE event_id = $1`, scope.EventID).Scan(&out.Members); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if out.Subjects, err = subjectCounts(ctx, s.db, scope.EventID); err != nil {
		return nil, err
	}
	if out.Activities, err = activity.Recent(ctx, s.db, scope.EventID, recentActivities); err != nil {
		return nil, err
	}
	return out, nil
}

func tally(ctx context.Context, q db.DBTX, query string, eventID int64) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func subjectCounts(ctx context.Context, q db.DBTX, eventID int64) ([]SubjectCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, question_count
		FROM subjects
		WHERE event_id = $1
		ORDER BY name, id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query subject counts: %w", err)
	}
	defer rows.Close()

	out := make([]SubjectCount, 0)
	for rows.Next() {
		var it SubjectCount
		if err := rows.Scan(&it.ID, &it.Name, &it.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan subject count: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject counts: %w", err)
	}
	return out, nil
}
