package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"qbank/internal/auth"
	"qbank/internal/db"
	"qbank/internal/policy"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNoEvent       = errors.New("user does not belong to any event")
	ErrInvalidInput  = errors.New("invalid input")
)

type Event struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartsOn  *time.Time `json:"starts_on,omitempty"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Scope is the event context of a single operation: which event it acts on
// and who is acting. Services take it explicitly instead of reading any
// process-wide "current event".
type Scope struct {
	EventID int64
	Actor   *auth.User
}

type Input struct {
	Name     string
	StartsOn *time.Time
	EndsOn   *time.Time
}

type Service struct {
	db    *sql.DB
	store CurrentEventStore
}

func NewService(conn *sql.DB, store CurrentEventStore) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Service{db: conn, store: store}
}

func (s *Service) GetEvent(ctx context.Context, eventID int64) (*Event, error) {
	return getEvent(ctx, s.db, eventID)
}

// CurrentEvent returns the event selected for this login session, falling back
// to the user's first membership when nothing was selected yet.
func (s *Service) CurrentEvent(ctx context.Context, u *auth.User, sessionKey string) (*Event, error) {
	if id, ok, err := s.store.Get(ctx, sessionKey); err != nil {
		return nil, err
	} else if ok && u.InEvent(id) {
		ev, err := getEvent(ctx, s.db, id)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, ErrEventNotFound) {
			return nil, err
		}
	}

	first, ok := u.FirstEventID()
	if !ok {
		return nil, ErrNoEvent
	}
	return getEvent(ctx, s.db, first)
}

// SwitchEvent changes the session's current event. Unknown events and events
// the user is not a member of both yield ErrEventNotFound.
func (s *Service) SwitchEvent(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (*Event, error) {
	if !u.InEvent(eventID) {
		return nil, ErrEventNotFound
	}
	ev, err := getEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, sessionKey, ev.ID); err != nil {
		return nil, err
	}
	return ev, nil
}

// ResolveScope checks membership for an event addressed by a request path and
// records it as the session's current event.
func (s *Service) ResolveScope(ctx context.Context, u *auth.User, sessionKey string, eventID int64) (Scope, error) {
	if u == nil || !u.InEvent(eventID) {
		return Scope{}, ErrEventNotFound
	}
	if err := s.store.Set(ctx, sessionKey, eventID); err != nil {
		return Scope{}, err
	}
	return Scope{EventID: eventID, Actor: u}, nil
}

func (s *Service) CreateEvent(ctx context.Context, u *auth.User, sessionKey string, in Input) (*Event, error) {
	if err := policy.Check(policy.CanEvent(u, policy.ActionCreate, 0)); err != nil {
		return nil, err
	}
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	ev := &Event{Name: in.Name, StartsOn: in.StartsOn, EndsOn: in.EndsOn, UserID: u.ID}
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO events (name, starts_on, ends_on, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			RETURNING id, created_at, updated_at
		`, ev.Name, ev.StartsOn, ev.EndsOn, u.ID).Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := AddMemberTx(ctx, tx, ev.ID, u.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.EventIDs = append(u.EventIDs, ev.ID)
	if err := s.store.Set(ctx, sessionKey, ev.ID); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Service) UpdateEvent(ctx context.Context, scope Scope, in Input) (*Event, error) {
	if err := policy.Check(policy.CanEvent(scope.Actor, policy.ActionUpdate, scope.EventID)); err != nil {
		return nil, err
	}
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	var ev Event
	var startsOn, endsOn sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		UPDATE events
		SET name = $1, starts_on = $2, ends_on = $3, updated_at = now()
		WHERE id = $4
		RETURNING id, name, starts_on, ends_on, user_id, created_at, updated_at
	`, in.Name, in.StartsOn, in.EndsOn, scope.EventID).Scan(
		&ev.ID, &ev.Name, &startsOn, &endsOn, &ev.UserID, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	ev.StartsOn = nullTime(startsOn)
	ev.EndsOn = nullTime(endsOn)
	return &ev, nil
}

// DeleteEvent removes the event; subjects, topics, questions, sessions and
// memberships go with it through foreign-key cascades.
func (s *Service) DeleteEvent(ctx context.Context, scope Scope) error {
	if err := policy.Check(policy.CanEvent(scope.Actor, policy.ActionDelete, scope.EventID)); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, scope.EventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (s *Service) ListUserEvents(ctx context.Context, u *auth.User) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.starts_on, e.ends_on, e.user_id, e.created_at, e.updated_at
		FROM events e
		JOIN user_events ue ON ue.event_id = e.id
		WHERE ue.user_id = $1
		ORDER BY e.id
	`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("query user events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user events: %w", err)
	}
	return out, nil
}

// AddMemberTx attaches a user to an event. Repeated calls are no-ops.
func AddMemberTx(ctx context.Context, q db.DBTX, eventID, userID int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_events (user_id, event_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, event_id) DO NOTHING
	`, userID, eventID)
	if err != nil {
		return fmt.Errorf("add event member: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var ev Event
	var startsOn, endsOn sql.NullTime
	if err := row.Scan(&ev.ID, &ev.Name, &startsOn, &endsOn, &ev.UserID, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return nil, err
	}
	ev.StartsOn = nullTime(startsOn)
	ev.EndsOn = nullTime(endsOn)
	return &ev, nil
}

func getEvent(ctx context.Context, q db.DBTX, eventID int64) (*Event, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, starts_on, ends_on, user_id, created_at, updated_at
		FROM events
		WHERE id = $1
	`, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("query event: %w", err)
	}
	return ev, nil
}

func normalizeInput(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.StartsOn != nil && in.EndsOn != nil && in.EndsOn.Before(*in.StartsOn) {
		return in, fmt.Errorf("%w: ends_on must not be before starts_on", ErrInvalidInput)
	}
	return in, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
