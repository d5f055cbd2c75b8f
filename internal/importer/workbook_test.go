package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseWorkbook(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Subject", "Topic", "Difficulty", "Round", "Question Type", "Question Text", "Bool Answer", "Answer Text", "Option Text"},
		[]interface{}{"Math", "Algebra", "Easy", 2, "Multiple Choice", "2+2?", "", "4", "3,4,5,6,4"},
		[]interface{}{"", "", "", "", "", "", "", "", ""},
		[]interface{}{"Science", "Physics", "hard", "", "True/False", "Light is fast", "true"},
	)

	rows, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Math", rows[0].Subject)
	assert.Equal(t, "2", rows[0].Round)
	assert.Equal(t, "Multiple Choice", rows[0].QuestionType)
	assert.Equal(t, "3,4,5,6,4", rows[0].OptionText)

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "true", rows[1].BoolAnswer)
	assert.Equal(t, "", rows[1].OptionText)
}

func TestParseWorkbookMissingColumn(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"subject", "topic", "difficulty", "question_text"},
		[]interface{}{"Math", "Algebra", "easy", "2+2?"},
	)

	_, err := ParseWorkbook(buf)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseWorkbookHeaderOnly(t *testing.T) {
	buf := workbook(t, []interface{}{"subject", "topic", "difficulty", "question_type", "question_text"})

	_, err := ParseWorkbook(buf)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "question_type", normalizeHeader(" Question Type "))
	assert.Equal(t, "option_text", normalizeHeader("option-text"))
	assert.Equal(t, "bool_answer", normalizeHeader("BOOL__ANSWER"))
}
