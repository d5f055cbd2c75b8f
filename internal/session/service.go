package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/policy"
	"qbank/internal/question"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoQuestions       = errors.New("no questions found for this event")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session transition")
)

const sessionColumns = `id, event_id, title, difficulty, type, round, number_of_questions,
	starts_at, ends_at, status, created_at, updated_at`

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn}
}

type draw struct {
	title      string
	difficulty question.Difficulty
	typ        question.Type
	round      int
	n          int
}

func validateCreate(in CreateInput) (draw, error) {
	var d draw
	d.title = strings.TrimSpace(in.Title)
	if utf8.RuneCountInString(d.title) < 5 {
		return d, fmt.Errorf("%w: title must be at least 5 characters", ErrInvalidInput)
	}
	if in.NumberOfQuestions < 1 {
		return d, fmt.Errorf("%w: number_of_questions must be at least 1", ErrInvalidInput)
	}
	if in.Round < 1 {
		return d, fmt.Errorf("%w: round must be at least 1", ErrInvalidInput)
	}
	var err error
	if d.difficulty, err = question.ParseDifficulty(in.Difficulty); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if d.typ, err = question.ParseType(in.Type); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return d, fmt.Errorf("%w: ends_at must be after starts_at", ErrInvalidInput)
	}
	d.round = in.Round
	d.n = in.NumberOfQuestions
	return d, nil
}

// CreateSession draws up to NumberOfQuestions random questions matching the
// difficulty, type and round filter into a new pending session. A question
// already assigned elsewhere is moved to the new session.
func (s *Service) CreateSession(ctx context.Context, scope event.Scope, in CreateInput) (*Created, error) {
	if err := policy.Check(policy.CanSession(scope.Actor, policy.ActionCreate, scope.EventID)); err != nil {
		return nil, err
	}
	d, err := validateCreate(in)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE event_id = $1`, scope.EventID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count event questions: %w", err)
	}
	if total == 0 {
		return nil, ErrNoQuestions
	}

	out := &Created{Session: &Session{
		EventID:           scope.EventID,
		Title:             d.title,
		Difficulty:        d.difficulty,
		Type:              d.typ,
		Round:             d.round,
		NumberOfQuestions: d.n,
		StartsAt:          in.StartsAt,
		EndsAt:            in.EndsAt,
		Status:            StatusPending,
	}}
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sess := out.Session
		err := tx.QueryRowContext(ctx, `
			INSERT INTO question_sessions (
				event_id, title, difficulty, type, round, number_of_questions,
				starts_at, ends_at, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', now(), now())
			RETURNING id, created_at, updated_at
		`, sess.EventID, sess.Title, string(sess.Difficulty), string(sess.Type), sess.Round, sess.NumberOfQuestions,
			sess.StartsAt, sess.EndsAt).Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE questions SET session_id = $1, updated_at = now()
			WHERE id IN (
				SELECT id FROM questions
				WHERE event_id = $2 AND difficulty = $3 AND type = $4 AND round = $5
				ORDER BY random()
				LIMIT $6
			)
		`, sess.ID, scope.EventID, string(d.difficulty), string(d.typ), d.round, d.n)
		if err != nil {
			return fmt.Errorf("assign questions: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("assign questions: %w", err)
		}
		out.Assigned = int(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) StartSession(ctx context.Context, scope event.Scope, id int64) (*Session, error) {
	return s.transition(ctx, scope, id, StatusPending, StatusOngoing, "starts_at")
}

func (s *Service) EndSession(ctx context.Context, scope event.Scope, id int64) (*Session, error) {
	return s.transition(ctx, scope, id, StatusOngoing, StatusEnded, "ends_at")
}

// transition moves a session from one status to the next and stamps column
// with the current time. column is always one of the two timestamp columns.
func (s *Service) transition(ctx context.Context, scope event.Scope, id int64, from, to Status, column string) (*Session, error) {
	if err := policy.Check(policy.CanSession(scope.Actor, policy.ActionUpdate, scope.EventID)); err != nil {
		return nil, err
	}

	var out *Session
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := getSession(ctx, tx, scope.EventID, id, true)
		if err != nil {
			return err
		}
		if cur.Status != from {
			return fmt.Errorf("%w: session is %s", ErrInvalidTransition, cur.Status)
		}
		var startsAt, endsAt sql.NullTime
		err = tx.QueryRowContext(ctx, `
			UPDATE question_sessions SET status = $1, `+column+` = now(), updated_at = now()
			WHERE id = $2
			RETURNING starts_at, ends_at, updated_at
		`, string(to), id).Scan(&startsAt, &endsAt, &cur.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update session status: %w", err)
		}
		cur.Status = to
		cur.StartsAt = nullTime(startsAt)
		cur.EndsAt = nullTime(endsAt)
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSession removes the session. Its questions stay in the bank with
// session_id cleared by the foreign key.
func (s *Service) DeleteSession(ctx context.Context, scope event.Scope, id int64) error {
	if err := policy.Check(policy.CanSession(scope.Actor, policy.ActionDelete, scope.EventID)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM question_sessions WHERE id = $1 AND event_id = $2`, id, scope.EventID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Service) GetSession(ctx context.Context, scope event.Scope, id int64) (*Session, error) {
	if err := policy.Check(policy.CanSession(scope.Actor, policy.ActionView, scope.EventID)); err != nil {
		return nil, err
	}
	sess, err := getSession(ctx, s.db, scope.EventID, id, false)
	if err != nil {
		return nil, err
	}
	if sess.Questions, err = question.ListForSession(ctx, s.db, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns the event's sessions, newest first, each with its
// unasked questions.
func (s *Service) ListSessions(ctx context.Context, scope event.Scope) ([]Session, error) {
	if err := policy.Check(policy.CanSession(scope.Actor, policy.ActionViewAny, scope.EventID)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM question_sessions
		WHERE event_id = $1
		ORDER BY created_at DESC, id DESC
	`, scope.EventID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	items := make([]Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		items = append(items, *sess)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	for i := range items {
		if items[i].Questions, err = question.ListForSession(ctx, s.db, items[i].ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func getSession(ctx context.Context, q db.DBTX, eventID, id int64, forUpdate bool) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM question_sessions WHERE id = $1 AND event_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	sess, err := scanSession(q.QueryRowContext(ctx, query, id, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var difficulty, typ, status string
	var startsAt, endsAt sql.NullTime
	if err := row.Scan(
		&sess.ID, &sess.EventID, &sess.Title, &difficulty, &typ, &sess.Round, &sess.NumberOfQuestions,
		&startsAt, &endsAt, &status, &sess.CreatedAt, &sess.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sess.Difficulty = question.Difficulty(difficulty)
	sess.Type = question.Type(typ)
	sess.Status = Status(status)
	sess.StartsAt = nullTime(startsAt)
	sess.EndsAt = nullTime(endsAt)
	return &sess, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
