package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/policy"
	"qbank/internal/question"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OptionsPerRow is the number of comma separated values expected in
// option_text: four options followed by a copy of the correct one.
const OptionsPerRow = 5

var (
	ErrInvalidRow  = errors.New("invalid row")
	ErrOptionCount = errors.New("wrong number of options")
)

var importedRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "qbank",
	Subsystem: "import",
	Name:      "rows_total",
	Help:      "Imported spreadsheet rows by result.",
}, []string{"result"})

type RowError struct {
	Row      int    `json:"row"`
	Question string `json:"question,omitempty"`
	Error    string `json:"error"`
}

type Report struct {
	TotalRows   int        `json:"total_rows"`
	SuccessRows int        `json:"success_rows"`
	FailedRows  int        `json:"failed_rows"`
	Errors      []RowError `json:"errors"`
}

type Importer struct {
	db *sql.DB
}

func New(conn *sql.DB) *Importer {
	return &Importer{db: conn}
}

// Import writes each row in its own transaction. A failing row is rolled
// back and reported; the remaining rows still run. progress, when set, is
// called after every row with the completed fraction.
func (im *Importer) Import(ctx context.Context, scope event.Scope, rows []Row, progress func(float64)) *Report {
	report := &Report{Errors: make([]RowError, 0)}
	for i, row := range rows {
		report.TotalRows++
		if _, err := im.ImportRow(ctx, scope, row); err != nil {
			report.FailedRows++
			report.Errors = append(report.Errors, RowError{Row: row.Line, Question: row.QuestionText, Error: err.Error()})
			importedRows.WithLabelValues("failed").Inc()
		} else {
			report.SuccessRows++
			importedRows.WithLabelValues("ok").Inc()
		}
		if progress != nil {
			progress(float64(i+1) / float64(len(rows)))
		}
	}
	return report
}

// ImportRow creates one question from a spreadsheet row. Subject and topic
// are looked up by case-insensitive name within the scope's event.
func (im *Importer) ImportRow(ctx context.Context, scope event.Scope, row Row) (*question.Question, error) {
	if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionCreate, policy.Question{EventID: scope.EventID})); err != nil {
		return nil, err
	}
	in, err := rowInput(row)
	if err != nil {
		return nil, err
	}

	var out *question.Question
	err = db.WithTx(ctx, im.db, func(tx *sql.Tx) error {
		if in.SubjectID, err = lookupSubject(ctx, tx, scope.EventID, row.Subject); err != nil {
			return err
		}
		if in.TopicID, err = lookupTopic(ctx, tx, in.SubjectID, row.Topic); err != nil {
			return err
		}
		nq, err := question.Prepare(in)
		if err != nil {
			return err
		}
		q, err := question.InsertTx(ctx, tx, scope, nq)
		out = q
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rowInput converts the textual row into an AddInput without subject and
// topic ids.
func rowInput(row Row) (question.AddInput, error) {
	in := question.AddInput{
		Difficulty: strings.ToLower(row.Difficulty),
		Text:       row.QuestionText,
		AnswerText: row.AnswerText,
	}
	typ, err := question.TypeFromLabel(row.QuestionType)
	if err != nil {
		return in, err
	}
	in.Type = string(typ)

	if v := strings.TrimSpace(row.Round); v != "" {
		round, err := strconv.Atoi(v)
		if err != nil || round < 1 {
			return in, fmt.Errorf("%w: round %q is not a positive number", ErrInvalidRow, v)
		}
		in.Round = round
	}
	if v := strings.TrimSpace(row.BoolAnswer); v != "" {
		b, ok := parseBool(v)
		if !ok {
			return in, fmt.Errorf("%w: bool_answer %q", ErrInvalidRow, v)
		}
		in.BoolAnswer = &b
	}
	if strings.TrimSpace(row.OptionText) != "" {
		opts, err := parseOptions(row.OptionText)
		if err != nil {
			return in, err
		}
		in.Options = opts
	}
	return in, nil
}

// parseOptions splits "A,B,C,D,b" into four options. The last value names
// the correct option, compared case-insensitively after trimming.
func parseOptions(raw string) ([]question.OptionInput, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != OptionsPerRow {
		return nil, fmt.Errorf("%w: must have %d options but %d given", ErrOptionCount, OptionsPerRow, len(parts))
	}
	marker := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	out := make([]question.OptionInput, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		text := strings.TrimSpace(p)
		out = append(out, question.OptionInput{Text: text, IsCorrect: strings.ToLower(text) == marker})
	}
	return out, nil
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

func lookupSubject(ctx context.Context, q db.DBTX, eventID int64, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT id FROM subjects
		WHERE event_id = $1 AND LOWER(name) = LOWER($2)
		ORDER BY id
		LIMIT 1
	`, eventID, strings.TrimSpace(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", question.ErrSubjectNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup subject: %w", err)
	}
	return id, nil
}

func lookupTopic(ctx context.Context, q db.DBTX, subjectID int64, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT id FROM topics
		WHERE subject_id = $1 AND LOWER(name) = LOWER($2)
		ORDER BY id
		LIMIT 1
	`, subjectID, strings.TrimSpace(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", question.ErrTopicNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup topic: %w", err)
	}
	return id, nil
}
