package question

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"qbank/internal/activity"
	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/policy"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOptions   = errors.New("invalid options")
	ErrQuestionNotFound = errors.New("question not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrTopicNotFound    = errors.New("topic not found")
)

const questionColumns = `
	q.id, q.event_id, q.subject_id, q.topic_id, q.user_id, q.round, q.type, q.difficulty,
	q.question_text, q.status, q.bool_answer, q.has_been_asked, q.session_id, q.last_modified_by,
	q.created_at, q.updated_at`

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn}
}

// NewQuestion is a validated AddInput, ready for InsertTx.
type NewQuestion struct {
	SubjectID  int64
	TopicID    int64
	Round      int
	Type       Type
	Difficulty Difficulty
	Text       string
	BoolAnswer *bool
	AnswerText string
	Options    []OptionInput
}

// Prepare validates and normalizes an AddInput without touching storage.
func Prepare(in AddInput) (NewQuestion, error) {
	var out NewQuestion
	if in.SubjectID <= 0 || in.TopicID <= 0 {
		return out, fmt.Errorf("%w: subject_id and topic_id are required", ErrInvalidInput)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return out, fmt.Errorf("%w: question_text is required", ErrInvalidInput)
	}
	typ, err := ParseType(in.Type)
	if err != nil {
		return out, err
	}
	difficulty, err := ParseDifficulty(in.Difficulty)
	if err != nil {
		return out, err
	}
	round := in.Round
	if round == 0 {
		round = 1
	}
	if round < 0 {
		return out, fmt.Errorf("%w: round must be positive", ErrInvalidInput)
	}

	out = NewQuestion{
		SubjectID:  in.SubjectID,
		TopicID:    in.TopicID,
		Round:      round,
		Type:       typ,
		Difficulty: difficulty,
		Text:       text,
		BoolAnswer: in.BoolAnswer,
		AnswerText: strings.TrimSpace(in.AnswerText),
	}
	if typ == TypeMCQ {
		opts, err := normalizeOptions(in.Options)
		if err != nil {
			return NewQuestion{}, err
		}
		out.Options = opts
	} else {
		for _, o := range in.Options {
			if t := strings.TrimSpace(o.Text); t != "" {
				out.Options = append(out.Options, OptionInput{Text: t, IsCorrect: o.IsCorrect})
			}
		}
	}
	if typ == TypeTrueFalse && out.BoolAnswer == nil {
		f := false
		out.BoolAnswer = &f
	}
	return out, nil
}

func (s *Service) AddQuestion(ctx context.Context, scope event.Scope, in AddInput) (*Question, error) {
	if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionCreate, policy.Question{EventID: scope.EventID})); err != nil {
		return nil, err
	}
	nq, err := Prepare(in)
	if err != nil {
		return nil, err
	}

	var out *Question
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := CheckRefsTx(ctx, tx, scope.EventID, nq.SubjectID, nq.TopicID); err != nil {
			return err
		}
		q, err := InsertTx(ctx, tx, scope, nq)
		out = q
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckRefsTx verifies that the subject belongs to the event and the topic to
// the subject.
func CheckRefsTx(ctx context.Context, q db.DBTX, eventID, subjectID, topicID int64) error {
	var ok bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM subjects WHERE id = $1 AND event_id = $2)`, subjectID, eventID).Scan(&ok); err != nil {
		return fmt.Errorf("check subject: %w", err)
	}
	if !ok {
		return ErrSubjectNotFound
	}
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM topics WHERE id = $1 AND subject_id = $2)`, topicID, subjectID).Scan(&ok); err != nil {
		return fmt.Errorf("check topic: %w", err)
	}
	if !ok {
		return ErrTopicNotFound
	}
	return nil
}

// InsertTx writes a prepared question with its options, answer, counter
// updates and activity entry. Super admins' questions start approved.
func InsertTx(ctx context.Context, tx *sql.Tx, scope event.Scope, nq NewQuestion) (*Question, error) {
	status := StatusPending
	if scope.Actor.IsSuperAdmin() {
		status = StatusApproved
	}

	q := &Question{
		EventID:    scope.EventID,
		SubjectID:  nq.SubjectID,
		TopicID:    nq.TopicID,
		AuthorID:   scope.Actor.ID,
		Round:      nq.Round,
		Type:       nq.Type,
		Difficulty: nq.Difficulty,
		Text:       nq.Text,
		Status:     status,
		BoolAnswer: nq.BoolAnswer,
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO questions (
			event_id, subject_id, topic_id, user_id, round, type, difficulty,
			question_text, status, bool_answer, has_been_asked, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, now(), now()
		)
		RETURNING id, created_at, updated_at
	`, q.EventID, q.SubjectID, q.TopicID, q.AuthorID, q.Round, string(q.Type), string(q.Difficulty),
		q.Text, string(q.Status), q.BoolAnswer).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	opts, err := insertOptions(ctx, tx, q.ID, nq.Options)
	if err != nil {
		return nil, err
	}
	q.Options = opts

	if nq.AnswerText != "" {
		a, err := upsertAnswer(ctx, tx, q.ID, nq.AnswerText)
		if err != nil {
			return nil, err
		}
		q.Answer = a
	}

	if err := incrementCounters(ctx, tx, q.SubjectID, q.TopicID); err != nil {
		return nil, err
	}
	if err := activity.Record(ctx, tx, q.EventID, "New question added", q.Text, activity.TypeNewQuestion); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Question, error) {
	var out *Question
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := loadForUpdate(ctx, tx, scope.EventID, id)
		if err != nil {
			return err
		}
		if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionUpdate, policyView(cur))); err != nil {
			return err
		}

		next, err := applyUpdate(*cur, in)
		if err != nil {
			return err
		}
		if next.Type == TypeMCQ && cur.Type != TypeMCQ && in.Options == nil {
			return fmt.Errorf("%w: changing to multiple choice requires options", ErrInvalidOptions)
		}
		var opts []OptionInput
		replaceOptions := in.Options != nil && next.Type == TypeMCQ
		if replaceOptions {
			if opts, err = normalizeOptions(in.Options); err != nil {
				return err
			}
		}

		if next.SubjectID != cur.SubjectID || next.TopicID != cur.TopicID {
			if err := CheckRefsTx(ctx, tx, scope.EventID, next.SubjectID, next.TopicID); err != nil {
				return err
			}
			if err := decrementCounters(ctx, tx, cur.SubjectID, cur.TopicID); err != nil {
				return err
			}
			if err := incrementCounters(ctx, tx, next.SubjectID, next.TopicID); err != nil {
				return err
			}
		}

		modifier := scope.Actor.ID
		next.LastModifiedBy = &modifier
		err = tx.QueryRowContext(ctx, `
			UPDATE questions
			SET subject_id = $1, topic_id = $2, round = $3, type = $4, difficulty = $5,
			    question_text = $6, bool_answer = $7, last_modified_by = $8, updated_at = now()
			WHERE id = $9
			RETURNING updated_at
		`, next.SubjectID, next.TopicID, next.Round, string(next.Type), string(next.Difficulty),
			next.Text, next.BoolAnswer, modifier, next.ID).Scan(&next.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}

		if in.AnswerText != nil {
			a, err := upsertAnswer(ctx, tx, next.ID, strings.TrimSpace(*in.AnswerText))
			if err != nil {
				return err
			}
			next.Answer = a
		}
		if replaceOptions {
			if _, err := tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id = $1`, next.ID); err != nil {
				return fmt.Errorf("delete options: %w", err)
			}
			if next.Options, err = insertOptions(ctx, tx, next.ID, opts); err != nil {
				return err
			}
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyUpdate(q Question, in UpdateInput) (Question, error) {
	if in.SubjectID != nil {
		q.SubjectID = *in.SubjectID
	}
	if in.TopicID != nil {
		q.TopicID = *in.TopicID
	}
	if in.Round != nil {
		if *in.Round <= 0 {
			return q, fmt.Errorf("%w: round must be positive", ErrInvalidInput)
		}
		q.Round = *in.Round
	}
	if in.Type != nil {
		t, err := ParseType(*in.Type)
		if err != nil {
			return q, err
		}
		q.Type = t
	}
	if in.Difficulty != nil {
		d, err := ParseDifficulty(*in.Difficulty)
		if err != nil {
			return q, err
		}
		q.Difficulty = d
	}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			return q, fmt.Errorf("%w: question_text is required", ErrInvalidInput)
		}
		q.Text = text
	}
	if in.BoolAnswer != nil {
		b := *in.BoolAnswer
		q.BoolAnswer = &b
	}
	return q, nil
}

// ChangeStatus overwrites the review status. Setting the current status
// again is a successful no-op. Callers need the same permission as for
// UpdateQuestion.
func (s *Service) ChangeStatus(ctx context.Context, scope event.Scope, id int64, status string) error {
	st, err := ParseStatus(status)
	if err != nil {
		return err
	}
	return s.setColumn(ctx, scope, id, "status", string(st))
}

func (s *Service) UpdateHasBeenAsked(ctx context.Context, scope event.Scope, id int64, asked bool) error {
	return s.setColumn(ctx, scope, id, "has_been_asked", asked)
}

// setColumn updates one scalar column after the update check on the locked
// row. column is always a literal from this package.
func (s *Service) setColumn(ctx context.Context, scope event.Scope, id int64, column string, value any) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := loadForUpdate(ctx, tx, scope.EventID, id)
		if err != nil {
			return err
		}
		if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionUpdate, policyView(cur))); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE questions SET `+column+` = $1, updated_at = now() WHERE id = $2`, value, cur.ID); err != nil {
			return fmt.Errorf("update question %s: %w", column, err)
		}
		return nil
	})
}

func (s *Service) DeleteQuestion(ctx context.Context, scope event.Scope, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := loadForUpdate(ctx, tx, scope.EventID, id)
		if err != nil {
			return err
		}
		if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionDelete, policyView(cur))); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id = $1`, id); err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE question_id = $1`, id); err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		if err := decrementCounters(ctx, tx, cur.SubjectID, cur.TopicID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		return nil
	})
}

// DeleteAll wipes every question and resets the counters.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_options`); err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers`); err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions`)
		if err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		deleted, _ = res.RowsAffected()
		if _, err := tx.ExecContext(ctx, `UPDATE subjects SET question_count = 0`); err != nil {
			return fmt.Errorf("reset subject counts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE topics SET question_count = 0`); err != nil {
			return fmt.Errorf("reset topic counts: %w", err)
		}
		return nil
	})
	return deleted, err
}

func (s *Service) GetQuestion(ctx context.Context, scope event.Scope, id int64) (*Question, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+questionColumns+`, s.name, t.name, u.name, lm.name
		FROM questions q
		JOIN subjects s ON s.id = q.subject_id
		JOIN topics t ON t.id = q.topic_id
		JOIN users u ON u.id = q.user_id
		LEFT JOIN users lm ON lm.id = q.last_modified_by
		WHERE q.id = $1 AND q.event_id = $2
	`, id, scope.EventID)
	q, err := scanQuestionWithRefs(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("query question: %w", err)
	}
	if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionView, policyView(q))); err != nil {
		return nil, err
	}

	if q.Options, err = loadOptions(ctx, s.db, q.ID); err != nil {
		return nil, err
	}
	if q.Answer, err = loadAnswer(ctx, s.db, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuestions returns a page of the event's questions, newest first.
func (s *Service) ListQuestions(ctx context.Context, scope event.Scope, f ListFilter) (*Page, error) {
	if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionViewAny, policy.Question{EventID: scope.EventID})); err != nil {
		return nil, err
	}

	where := []string{"q.event_id = $1"}
	args := []any{scope.EventID}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if v := strings.TrimSpace(f.Search); v != "" {
		add("LOWER(q.question_text) LIKE $%d", "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(f.Subject); v != "" {
		add("LOWER(s.name) = LOWER($%d)", v)
	}
	if v := strings.TrimSpace(f.Difficulty); v != "" {
		d, err := ParseDifficulty(v)
		if err != nil {
			return nil, err
		}
		add("q.difficulty = $%d", string(d))
	}
	if v := strings.TrimSpace(f.Status); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			return nil, err
		}
		add("q.status = $%d", string(st))
	}
	if v := strings.TrimSpace(f.Type); v != "" {
		t, err := ParseType(v)
		if err != nil {
			return nil, err
		}
		add("q.type = $%d", string(t))
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	from := `
		FROM questions q
		JOIN subjects s ON s.id = q.subject_id
		JOIN topics t ON t.id = q.topic_id
		JOIN users u ON u.id = q.user_id
		LEFT JOIN users lm ON lm.id = q.last_modified_by
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	listArgs := append(append([]any{}, args...), PageSize, (page-1)*PageSize)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+questionColumns+`, s.name, t.name, u.name, lm.name`+from+
		fmt.Sprintf(" ORDER BY q.created_at DESC, q.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2),
		listArgs...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	items := make([]Question, 0)
	for rows.Next() {
		q, err := scanQuestionWithRefs(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return &Page{Items: items, Page: page, PerPage: PageSize, Total: total}, nil
}

// ListForSession loads the session's questions that have not been asked yet,
// together with their options and answers.
func ListForSession(ctx context.Context, q db.DBTX, sessionID int64) ([]Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM questions q
		WHERE q.session_id = $1 AND q.has_been_asked = false
		ORDER BY q.id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session questions: %w", err)
	}
	items := make([]Question, 0)
	index := make(map[int64]int)
	for rows.Next() {
		item, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session question: %w", err)
		}
		index[item.ID] = len(items)
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate session questions: %w", err)
	}
	rows.Close()
	if len(items) == 0 {
		return items, nil
	}

	rows, err = q.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.option_text, o.is_correct
		FROM question_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.session_id = $1 AND q.has_been_asked = false
		ORDER BY o.id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session options: %w", err)
	}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session option: %w", err)
		}
		if i, ok := index[o.QuestionID]; ok {
			items[i].Options = append(items[i].Options, o)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate session options: %w", err)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `
		SELECT a.id, a.question_id, COALESCE(a.answer_text, '')
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE q.session_id = $1 AND q.has_been_asked = false
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text); err != nil {
			return nil, fmt.Errorf("scan session answer: %w", err)
		}
		if i, ok := index[a.QuestionID]; ok {
			ans := a
			items[i].Answer = &ans
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session answers: %w", err)
	}
	return items, nil
}

func policyView(q *Question) policy.Question {
	return policy.Question{EventID: q.EventID, AuthorID: q.AuthorID, Status: string(q.Status)}
}

func loadForUpdate(ctx context.Context, tx *sql.Tx, eventID, id int64) (*Question, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+questionColumns+`
		FROM questions q
		WHERE q.id = $1 AND q.event_id = $2
		FOR UPDATE
	`, id, eventID)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner, extra ...any) (*Question, error) {
	var q Question
	var typ, difficulty, status string
	var boolAnswer sql.NullBool
	var sessionID, lastModifiedBy sql.NullInt64
	dest := []any{
		&q.ID, &q.EventID, &q.SubjectID, &q.TopicID, &q.AuthorID, &q.Round, &typ, &difficulty,
		&q.Text, &status, &boolAnswer, &q.HasBeenAsked, &sessionID, &lastModifiedBy,
		&q.CreatedAt, &q.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	q.Type = Type(typ)
	q.Difficulty = Difficulty(difficulty)
	q.Status = Status(status)
	if boolAnswer.Valid {
		b := boolAnswer.Bool
		q.BoolAnswer = &b
	}
	if sessionID.Valid {
		v := sessionID.Int64
		q.SessionID = &v
	}
	if lastModifiedBy.Valid {
		v := lastModifiedBy.Int64
		q.LastModifiedBy = &v
	}
	return &q, nil
}

func scanQuestionWithRefs(row rowScanner) (*Question, error) {
	var subjectName, topicName, authorName string
	var modifierName sql.NullString
	q, err := scanQuestion(row, &subjectName, &topicName, &authorName, &modifierName)
	if err != nil {
		return nil, err
	}
	q.Subject = &Ref{ID: q.SubjectID, Name: subjectName}
	q.Topic = &Ref{ID: q.TopicID, Name: topicName}
	q.Author = &Ref{ID: q.AuthorID, Name: authorName}
	if q.LastModifiedBy != nil && modifierName.Valid {
		q.LastModifier = &Ref{ID: *q.LastModifiedBy, Name: modifierName.String}
	}
	return q, nil
}

func insertOptions(ctx context.Context, tx *sql.Tx, questionID int64, opts []OptionInput) ([]Option, error) {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		item := Option{QuestionID: questionID, Text: o.Text, IsCorrect: o.IsCorrect}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO question_options (question_id, option_text, is_correct, created_at)
			VALUES ($1, $2, $3, now())
			RETURNING id
		`, questionID, o.Text, o.IsCorrect).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("insert option: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}

func upsertAnswer(ctx context.Context, tx *sql.Tx, questionID int64, text string) (*Answer, error) {
	a := &Answer{QuestionID: questionID, Text: text}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO answers (question_id, answer_text, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (question_id) DO UPDATE SET answer_text = EXCLUDED.answer_text, updated_at = now()
		RETURNING id
	`, questionID, text).Scan(&a.ID)
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	return a, nil
}

func loadOptions(ctx context.Context, q db.DBTX, questionID int64) ([]Option, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question_id, option_text, is_correct
		FROM question_options
		WHERE question_id = $1
		ORDER BY id
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	out := make([]Option, 0)
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return out, nil
}

func loadAnswer(ctx context.Context, q db.DBTX, questionID int64) (*Answer, error) {
	var a Answer
	err := q.QueryRowContext(ctx, `
		SELECT id, question_id, COALESCE(answer_text, '')
		FROM answers
		WHERE question_id = $1
	`, questionID).Scan(&a.ID, &a.QuestionID, &a.Text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query answer: %w", err)
	}
	return &a, nil
}
