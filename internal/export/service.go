package export

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/importer"
	"qbank/internal/policy"
	"qbank/internal/question"

	"github.com/xuri/excelize/v2"
)

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn}
}

type exportRow struct {
	id         int64
	subject    string
	topic      string
	difficulty string
	round      int
	typ        question.Type
	text       string
	boolAnswer sql.NullBool
	answer     string
	options    []question.Option
}

// ExportQuestions renders the event's questions as an xlsx workbook in the
// import layout plus a note column. An empty ids slice exports every question
// of the event.
func (s *Service) ExportQuestions(ctx context.Context, scope event.Scope, ids []int64) ([]byte, error) {
	if err := policy.Check(policy.CanQuestion(scope.Actor, policy.ActionViewAny, policy.Question{EventID: scope.EventID})); err != nil {
		return nil, err
	}
	rows, err := s.load(ctx, scope.EventID, ids)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	header := append(append([]string{}, importer.Columns...), noteColumn)
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range rows {
		values := []any{
			it.subject,
			it.topic,
			it.difficulty,
			it.round,
			it.typ.Label(),
			it.text,
			boolCell(it.boolAnswer),
			it.answer,
			OptionCell(it.options),
			importNote(it.typ, it.options),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 16)
	_ = f.SetColWidth(sheet, "F", "J", 40)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// OptionCell joins the options and appends the correct one as the marker,
// e.g. "3,4,5,6,4".
func OptionCell(opts []question.Option) string {
	if len(opts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(opts)+1)
	for _, o := range opts {
		parts = append(parts, o.Text)
	}
	q := question.Question{Options: opts}
	correct, _ := q.CorrectOption()
	return strings.Join(append(parts, correct.Text), ",")
}

// noteColumn is ignored by the importer. It flags rows whose option cell
// would be rejected on re-import.
const noteColumn = "note"

func importNote(typ question.Type, opts []question.Option) string {
	if typ != question.TypeMCQ || len(opts) == 0 {
		return ""
	}
	if want := importer.OptionsPerRow - 1; len(opts) != want {
		return fmt.Sprintf("options cannot be re-imported: need %d options, got %d", want, len(opts))
	}
	for _, o := range opts {
		if strings.Contains(o.Text, ",") {
			return "options cannot be re-imported: option text contains a comma"
		}
	}
	return ""
}

func boolCell(b sql.NullBool) string {
	if !b.Valid {
		return ""
	}
	return strconv.FormatBool(b.Bool)
}

func (s *Service) load(ctx context.Context, eventID int64, ids []int64) ([]exportRow, error) {
	args := []any{eventID}
	filter := ""
	if len(ids) > 0 {
		filter = " AND q.id IN (" + db.Placeholders(2, len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, s.name, t.name, q.difficulty, q.round, q.type, q.question_text, q.bool_answer,
		       COALESCE(a.answer_text, '')
		FROM questions q
		JOIN subjects s ON s.id = q.subject_id
		JOIN topics t ON t.id = q.topic_id
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE q.event_id = $1`+filter+`
		ORDER BY q.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query export questions: %w", err)
	}
	out := make([]exportRow, 0)
	index := map[int64]int{}
	for rows.Next() {
		var r exportRow
		var typ string
		if err := rows.Scan(&r.id, &r.subject, &r.topic, &r.difficulty, &r.round, &typ, &r.text, &r.boolAnswer, &r.answer); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan export question: %w", err)
		}
		r.typ = question.Type(typ)
		index[r.id] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate export questions: %w", err)
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.option_text, o.is_correct
		FROM question_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.event_id = $1
		ORDER BY o.id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query export options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o question.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan export option: %w", err)
		}
		if i, ok := index[o.QuestionID]; ok {
			out[i].options = append(out[i].options, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export options: %w", err)
	}
	return out, nil
}
