package question

import (
	"context"
	"fmt"

	"qbank/internal/db"
)

// The question_count columns on subjects and topics must equal the number of
// questions referencing them. Every write path goes through these helpers.

func incrementCounters(ctx context.Context, q db.DBTX, subjectID, topicID int64) error {
	if _, err := q.ExecContext(ctx, `UPDATE subjects SET question_count = question_count + 1, updated_at = now() WHERE id = $1`, subjectID); err != nil {
		return fmt.Errorf("increment subject count: %w", err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE topics SET question_count = question_count + 1, updated_at = now() WHERE id = $1`, topicID); err != nil {
		return fmt.Errorf("increment topic count: %w", err)
	}
	return nil
}

// decrementCounters never takes a counter below zero; each counter is
// guarded independently.
func decrementCounters(ctx context.Context, q db.DBTX, subjectID, topicID int64) error {
	if _, err := q.ExecContext(ctx, `UPDATE subjects SET question_count = question_count - 1, updated_at = now() WHERE id = $1 AND question_count > 0`, subjectID); err != nil {
		return fmt.Errorf("decrement subject count: %w", err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE topics SET question_count = question_count - 1, updated_at = now() WHERE id = $1 AND question_count > 0`, topicID); err != nil {
		return fmt.Errorf("decrement topic count: %w", err)
	}
	return nil
}
