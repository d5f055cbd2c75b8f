package activity

import (
	"context"
	"fmt"
	"time"

	"qbank/internal/db"
)

const (
	TypeNewQuestion = "new_question"
	TypeNewSubject  = "new_subject"
)

type Activity struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"event_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record appends an entry to the event's activity feed using q, usually the
// transaction of the write being recorded.
func Record(ctx context.Context, q db.DBTX, eventID int64, title, description, typ string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO activities (event_id, title, description, type, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, eventID, title, description, typ)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func Recent(ctx context.Context, q db.DBTX, eventID int64, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, event_id, title, COALESCE(description, ''), type, created_at
		FROM activities
		WHERE event_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.EventID, &a.Title, &a.Description, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}
