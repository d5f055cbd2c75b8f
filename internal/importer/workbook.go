package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyWorkbook = errors.New("workbook has no data rows")
	ErrMissingColumn = errors.New("missing required column")
)

// Columns is the header layout of a question workbook, shared with the
// exporter so that exported files can be imported again.
var Columns = []string{
	"subject", "topic", "difficulty", "round", "question_type",
	"question_text", "bool_answer", "answer_text", "option_text",
}

var requiredColumns = []string{"subject", "topic", "difficulty", "question_type", "question_text"}

// Row is one spreadsheet line. Line is the 1-based sheet row number.
type Row struct {
	Line         int
	Subject      string
	Topic        string
	Difficulty   string
	Round        string
	QuestionType string
	QuestionText string
	BoolAnswer   string
	AnswerText   string
	OptionText   string
}

// ParseWorkbook reads the first sheet of an xlsx file. Headers are matched
// after lower_snake normalization, so "Question Type" and "question_type"
// are the same column. Blank lines are skipped.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[normalizeHeader(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	out := make([]Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}
		row := Row{
			Line:         i + 1,
			Subject:      get("subject"),
			Topic:        get("topic"),
			Difficulty:   get("difficulty"),
			Round:        get("round"),
			QuestionType: get("question_type"),
			QuestionText: get("question_text"),
			BoolAnswer:   get("bool_answer"),
			AnswerText:   get("answer_text"),
			OptionText:   get("option_text"),
		}
		if row.blank() {
			continue
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return out, nil
}

func (r Row) blank() bool {
	return r.Subject == "" && r.Topic == "" && r.QuestionText == "" && r.OptionText == ""
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
