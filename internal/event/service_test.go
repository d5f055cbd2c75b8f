package event

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"qbank/internal/auth"
	"qbank/internal/policy"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventColumns = []string{"id", "name", "starts_on", "ends_on", "user_id", "created_at", "updated_at"}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock, *MemoryStore) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	store := NewMemoryStore()
	return NewService(conn, store), mock, store
}

func eventRow(id int64, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(eventColumns).AddRow(id, name, nil, nil, int64(1), now, now)
}

func TestCurrentEventFallsBackToFirstMembership(t *testing.T) {
	svc, mock, _ := newMockService(t)
	u := &auth.User{ID: 1, EventIDs: []int64{7, 3}}

	mock.ExpectQuery("SELECT id, name, starts_on").WithArgs(int64(3)).WillReturnRows(eventRow(3, "Regional"))

	ev, err := svc.CurrentEvent(context.Background(), u, "sess")
	require.NoError(t, err)
	assert.Equal(t, int64(3), ev.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentEventUsesSessionSelection(t *testing.T) {
	svc, mock, store := newMockService(t)
	u := &auth.User{ID: 1, EventIDs: []int64{3, 7}}
	require.NoError(t, store.Set(context.Background(), "sess", 7))

	mock.ExpectQuery("SELECT id, name, starts_on").WithArgs(int64(7)).WillReturnRows(eventRow(7, "Finals"))

	ev, err := svc.CurrentEvent(context.Background(), u, "sess")
	require.NoError(t, err)
	assert.Equal(t, "Finals", ev.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentEventIsolatedPerSession(t *testing.T) {
	svc, mock, store := newMockService(t)
	u := &auth.User{ID: 1, EventIDs: []int64{3, 7}}
	require.NoError(t, store.Set(context.Background(), "other-session", 7))

	mock.ExpectQuery("SELECT id, name, starts_on").WithArgs(int64(3)).WillReturnRows(eventRow(3, "Regional"))

	ev, err := svc.CurrentEvent(context.Background(), u, "sess")
	require.NoError(t, err)
	assert.Equal(t, int64(3), ev.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentEventWithoutMemberships(t *testing.T) {
	svc, mock, _ := newMockService(t)

	_, err := svc.CurrentEvent(context.Background(), &auth.User{ID: 1}, "sess")
	assert.ErrorIs(t, err, ErrNoEvent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwitchEventUnknownEvent(t *testing.T) {
	svc, mock, store := newMockService(t)
	u := &auth.User{ID: 1, EventIDs: []int64{3, 9}}
	require.NoError(t, store.Set(context.Background(), "sess", 3))

	mock.ExpectQuery("SELECT id, name, starts_on").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := svc.SwitchEvent(context.Background(), u, "sess", 9)
	assert.ErrorIs(t, err, ErrEventNotFound)

	id, ok, _ := store.Get(context.Background(), "sess")
	assert.True(t, ok)
	assert.Equal(t, int64(3), id, "failed switch must keep the previous selection")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwitchEventRequiresMembership(t *testing.T) {
	svc, mock, _ := newMockService(t)

	_, err := svc.SwitchEvent(context.Background(), &auth.User{ID: 1, EventIDs: []int64{3}}, "sess", 4)
	assert.ErrorIs(t, err, ErrEventNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwitchEventStoresSelection(t *testing.T) {
	svc, mock, store := newMockService(t)
	u := &auth.User{ID: 1, EventIDs: []int64{3, 9}}

	mock.ExpectQuery("SELECT id, name, starts_on").WithArgs(int64(9)).WillReturnRows(eventRow(9, "Finals"))

	ev, err := svc.SwitchEvent(context.Background(), u, "sess", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), ev.ID)

	id, ok, _ := store.Get(context.Background(), "sess")
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventMakesCreatorMemberAndCurrent(t *testing.T) {
	svc, mock, store := newMockService(t)
	u := &auth.User{ID: 5, Roles: []auth.Role{auth.RoleContributor}}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("Quiz Night", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(12), now, now))
	mock.ExpectExec("INSERT INTO user_events").WithArgs(int64(5), int64(12)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ev, err := svc.CreateEvent(context.Background(), u, "sess", Input{Name: "  Quiz Night "})
	require.NoError(t, err)
	assert.Equal(t, int64(12), ev.ID)
	assert.True(t, u.InEvent(12))

	id, ok, _ := store.Get(context.Background(), "sess")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventValidatesDates(t *testing.T) {
	svc, mock, _ := newMockService(t)
	start := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	_, err := svc.CreateEvent(context.Background(), &auth.User{ID: 1}, "sess", Input{Name: "x", StartsOn: &start, EndsOn: &end})
	assert.ErrorIs(t, err, ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEventRequiresAdmin(t *testing.T) {
	svc, mock, _ := newMockService(t)
	scope := Scope{EventID: 3, Actor: &auth.User{ID: 1, Roles: []auth.Role{auth.RoleContributor}, EventIDs: []int64{3}}}

	err := svc.DeleteEvent(context.Background(), scope)
	assert.ErrorIs(t, err, policy.ErrDenied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEvent(t *testing.T) {
	svc, mock, _ := newMockService(t)
	scope := Scope{EventID: 3, Actor: &auth.User{ID: 1, Roles: []auth.Role{auth.RoleAdmin}, EventIDs: []int64{3}}}

	mock.ExpectExec("DELETE FROM events").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.DeleteEvent(context.Background(), scope))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveScopeRejectsNonMember(t *testing.T) {
	svc, _, store := newMockService(t)

	_, err := svc.ResolveScope(context.Background(), &auth.User{ID: 1, EventIDs: []int64{2}}, "sess", 5)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, ok, _ := store.Get(context.Background(), "sess")
	assert.False(t, ok)
}
