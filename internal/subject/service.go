package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"qbank/internal/activity"
	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/policy"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTopicNotFound   = errors.New("topic not found")
)

type Topic struct {
	ID            int64     `json:"id"`
	SubjectID     int64     `json:"subject_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	SubjectName string `json:"subject_name,omitempty"`
}

type Subject struct {
	ID            int64     `json:"id"`
	EventID       int64     `json:"event_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Topics []Topic `json:"topics,omitempty"`
}

type Input struct {
	Name        string
	Description string
	// Topics are created alongside the subject. Blank names are skipped.
	Topics []string
}

// TopicInput with ID zero creates a topic; otherwise the topic with that id
// is updated.
type TopicInput struct {
	ID          int64
	Name        string
	Description string
}

type UpdateInput struct {
	Name        *string
	Description *string
	Topics      []TopicInput
}

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn}
}

func (s *Service) AddSubject(ctx context.Context, scope event.Scope, in Input) (*Subject, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionCreate, scope.EventID)); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	out := &Subject{EventID: scope.EventID, Name: name, Description: strings.TrimSpace(in.Description)}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO subjects (event_id, name, description)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, out.EventID, out.Name, nullableString(out.Description)).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt); err != nil {
			return fmt.Errorf("insert subject: %w", err)
		}
		out.Topics = []Topic{}
		for _, topicName := range in.Topics {
			topicName = strings.TrimSpace(topicName)
			if topicName == "" {
				continue
			}
			t, err := insertTopic(ctx, tx, out.ID, TopicInput{Name: topicName})
			if err != nil {
				return err
			}
			out.Topics = append(out.Topics, *t)
		}
		return activity.Record(ctx, tx, scope.EventID, "New subject added", out.Name, activity.TypeNewSubject)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSubject applies scalar changes and upserts the given topics.
// Topics not mentioned are left alone.
func (s *Service) UpdateSubject(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Subject, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionUpdate, scope.EventID)); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be blank", ErrInvalidInput)
	}

	var out *Subject
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := getSubject(ctx, tx, scope.EventID, id, true)
		if err != nil {
			return err
		}
		if in.Name != nil {
			cur.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			cur.Description = strings.TrimSpace(*in.Description)
		}
		if err := tx.QueryRowContext(ctx, `
			UPDATE subjects SET name = $1, description = $2, updated_at = now()
			WHERE id = $3
			RETURNING updated_at
		`, cur.Name, nullableString(cur.Description), cur.ID).Scan(&cur.UpdatedAt); err != nil {
			return fmt.Errorf("update subject: %w", err)
		}

		for _, t := range in.Topics {
			if strings.TrimSpace(t.Name) == "" {
				continue
			}
			if t.ID == 0 {
				if _, err := insertTopic(ctx, tx, cur.ID, t); err != nil {
					return err
				}
				continue
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE topics SET name = $1, description = $2, updated_at = now()
				WHERE id = $3 AND subject_id = $4
			`, strings.TrimSpace(t.Name), nullableString(strings.TrimSpace(t.Description)), t.ID, cur.ID)
			if err != nil {
				return fmt.Errorf("update topic: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: topic %d", ErrTopicNotFound, t.ID)
			}
		}

		topics, err := listTopicsOf(ctx, tx, cur.ID)
		if err != nil {
			return err
		}
		cur.Topics = topics
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSubject removes the subject and its topics. Questions filed under it
// go with them.
func (s *Service) DeleteSubject(ctx context.Context, scope event.Scope, id int64) error {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionDelete, scope.EventID)); err != nil {
		return err
	}
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := getSubject(ctx, tx, scope.EventID, id, true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE subject_id = $1`, id); err != nil {
			return fmt.Errorf("delete topics: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		return nil
	})
}

func (s *Service) GetSubject(ctx context.Context, scope event.Scope, id int64) (*Subject, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionView, scope.EventID)); err != nil {
		return nil, err
	}
	out, err := getSubject(ctx, s.db, scope.EventID, id, false)
	if err != nil {
		return nil, err
	}
	if out.Topics, err = listTopicsOf(ctx, s.db, out.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListSubjects(ctx context.Context, scope event.Scope) ([]Subject, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionViewAny, scope.EventID)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, COALESCE(description, ''), question_count, created_at, updated_at
		FROM subjects
		WHERE event_id = $1
		ORDER BY name, id
	`, scope.EventID)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	out := make([]Subject, 0)
	index := map[int64]int{}
	for rows.Next() {
		var it Subject
		if err := rows.Scan(&it.ID, &it.EventID, &it.Name, &it.Description, &it.QuestionCount, &it.CreatedAt, &it.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		it.Topics = []Topic{}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	topics, err := s.queryTopics(ctx, `WHERE s.event_id = $1 ORDER BY t.name, t.id`, scope.EventID)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		if i, ok := index[t.SubjectID]; ok {
			out[i].Topics = append(out[i].Topics, t)
		}
	}
	return out, nil
}

func (s *Service) AddTopic(ctx context.Context, scope event.Scope, subjectID int64, in TopicInput) (*Topic, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionCreate, scope.EventID)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	var out *Topic
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := getSubject(ctx, tx, scope.EventID, subjectID, true); err != nil {
			return err
		}
		t, err := insertTopic(ctx, tx, subjectID, in)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateTopic(ctx context.Context, scope event.Scope, id int64, in TopicInput) (*Topic, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionUpdate, scope.EventID)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	out := &Topic{ID: id, Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	err := s.db.QueryRowContext(ctx, `
		UPDATE topics t SET name = $1, description = $2, updated_at = now()
		FROM subjects s
		WHERE t.id = $3 AND s.id = t.subject_id AND s.event_id = $4
		RETURNING t.subject_id, t.question_count, t.created_at, t.updated_at
	`, out.Name, nullableString(out.Description), id, scope.EventID).Scan(&out.SubjectID, &out.QuestionCount, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("update topic: %w", err)
	}
	return out, nil
}

func (s *Service) DeleteTopic(ctx context.Context, scope event.Scope, id int64) error {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionDelete, scope.EventID)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM topics t
		USING subjects s
		WHERE t.id = $1 AND s.id = t.subject_id AND s.event_id = $2
	`, id, scope.EventID)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// ListTopics returns every topic of the event ordered by name, each carrying
// its subject's name.
func (s *Service) ListTopics(ctx context.Context, scope event.Scope) ([]Topic, error) {
	if err := policy.Check(policy.CanSubject(scope.Actor, policy.ActionViewAny, scope.EventID)); err != nil {
		return nil, err
	}
	return s.queryTopics(ctx, `WHERE s.event_id = $1 ORDER BY t.name, t.id`, scope.EventID)
}

func (s *Service) queryTopics(ctx context.Context, where string, args ...any) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.subject_id, t.name, COALESCE(t.description, ''), t.question_count, t.created_at, t.updated_at, s.name
		FROM topics t
		JOIN subjects s ON s.id = t.subject_id
		`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	out := make([]Topic, 0)
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.QuestionCount, &t.CreatedAt, &t.UpdatedAt, &t.SubjectName); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return out, nil
}

func getSubject(ctx context.Context, q db.DBTX, eventID, id int64, forUpdate bool) (*Subject, error) {
	query := `
		SELECT id, event_id, name, COALESCE(description, ''), question_count, created_at, updated_at
		FROM subjects
		WHERE id = $1 AND event_id = $2
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var out Subject
	err := q.QueryRowContext(ctx, query, id, eventID).Scan(&out.ID, &out.EventID, &out.Name, &out.Description, &out.QuestionCount, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("load subject: %w", err)
	}
	return &out, nil
}

func listTopicsOf(ctx context.Context, q db.DBTX, subjectID int64) ([]Topic, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, subject_id, name, COALESCE(description, ''), question_count, created_at, updated_at
		FROM topics
		WHERE subject_id = $1
		ORDER BY name, id
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query subject topics: %w", err)
	}
	defer rows.Close()

	out := make([]Topic, 0)
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.QuestionCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject topic: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject topics: %w", err)
	}
	return out, nil
}

func insertTopic(ctx context.Context, q db.DBTX, subjectID int64, in TopicInput) (*Topic, error) {
	t := &Topic{SubjectID: subjectID, Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description)}
	if err := q.QueryRowContext(ctx, `
		INSERT INTO topics (subject_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, subjectID, t.Name, nullableString(t.Description)).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return t, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
