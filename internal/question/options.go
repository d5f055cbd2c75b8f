package question

import (
	"fmt"
	"strings"
)

// normalizeOptions drops options with blank text and enforces the mcq rule:
// at least one option and exactly one marked correct.
func normalizeOptions(opts []OptionInput) ([]OptionInput, error) {
	out := make([]OptionInput, 0, len(opts))
	correct := 0
	for _, o := range opts {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			continue
		}
		if o.IsCorrect {
			correct++
		}
		out = append(out, OptionInput{Text: text, IsCorrect: o.IsCorrect})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: multiple choice questions need at least one option", ErrInvalidOptions)
	}
	if correct != 1 {
		return nil, fmt.Errorf("%w: options must have exactly one correct value, got %d", ErrInvalidOptions, correct)
	}
	return out, nil
}
