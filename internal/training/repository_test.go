package training

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionCols = []string{
	"id", "member_id", "trainer_id", "programme_id", "start_time", "end_time", "duration_minutes", "state",
	"attendance", "attendance_by", "attendance_at", "rating", "remarks", "trainer_notes", "recommendations", "exercises",
	"credit_consumed", "reminder_24h_sent", "reminder_1h_sent", "version", "created_at", "updated_at",
}

func setupSessionMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewRepository(sqlxDB), mock
}

func sessionRow(id int, state string, version int) *sqlmock.Rows {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(sessionCols).AddRow(
		id, 20, 10, nil, now, nil, 60, state,
		nil, nil, nil, nil, "", "", "", "{}",
		false, false, false, version, now, now,
	)
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := setupSessionMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM training_sessions WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sessionRow(1, "scheduled", 1))

	s, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StateScheduled, s.State)
	assert.Nil(t, s.Attendance)
	assert.Empty(t, s.Exercises)

	mock.ExpectQuery(regexp.QuoteMeta("FROM training_sessions WHERE id = $1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err = repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRepository_Update_VersionGuard(t *testing.T) {
	repo, mock := setupSessionMock(t)
	ctx := context.Background()
	s := &Session{ID: 1, State: StateCancelled, Remarks: "sick"}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND version = $12")).
		WillReturnRows(sessionRow(1, "cancelled", 4))

	out, err := repo.Update(ctx, s, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Version)

	// stale version, row still exists
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND version = $12")).
		WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM training_sessions WHERE id = $1)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = repo.Update(ctx, s, 3)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// row gone
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND version = $12")).
		WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM training_sessions WHERE id = $1)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.Update(ctx, s, 3)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List_Filters(t *testing.T) {
	repo, mock := setupSessionMock(t)
	member := 20
	state := StateCompleted
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_sessions WHERE member_id = $1 AND state = $2 AND start_time >= $3")).
		WithArgs(20, "completed", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE member_id = $1 AND state = $2 AND start_time >= $3 ORDER BY start_time DESC, id DESC LIMIT $4 OFFSET $5")).
		WithArgs(20, "completed", from, 20, 20).
		WillReturnRows(sessionRow(7, "completed", 3))

	sessions, total, err := repo.List(context.Background(), ListFilter{MemberID: &member, State: &state, From: &from, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	assert.Len(t, sessions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Stats(t *testing.T) {
	repo, mock := setupSessionMock(t)
	trainer := 10

	mock.ExpectQuery(regexp.QuoteMeta("SELECT state, COUNT(*) AS count FROM training_sessions WHERE trainer_id = $1 GROUP BY state")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).
			AddRow("completed", 3).
			AddRow("cancelled", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT AVG(rating) FROM training_sessions WHERE trainer_id = $1 AND state = 'completed'")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(4.5))

	st, err := repo.Stats(context.Background(), StatsFilter{TrainerID: &trainer})
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.ByState[StateCompleted])
	assert.Equal(t, 0, st.ByState[StateScheduled])
	require.NotNil(t, st.AverageRating)
	assert.InDelta(t, 4.5, *st.AverageRating, 0.001)
}

func TestRepository_ReminderClaims(t *testing.T) {
	repo, mock := setupSessionMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_sessions SET reminder_1h_sent = TRUE WHERE id = $1 AND reminder_1h_sent = FALSE")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.ClaimReminder(ctx, 5, Reminder1h)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_sessions SET reminder_1h_sent = TRUE WHERE id = $1 AND reminder_1h_sent = FALSE")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.ClaimReminder(ctx, 5, Reminder1h)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_sessions SET reminder_1h_sent = FALSE WHERE id = $1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ReleaseReminder(ctx, 5, Reminder1h))

	_, err = repo.ClaimReminder(ctx, 5, ReminderFlag("version"))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListUpcomingUnreminded(t *testing.T) {
	repo, mock := setupSessionMock(t)
	from := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.state = 'scheduled' AND s.start_time > $1 AND s.start_time <= $2 AND s.reminder_24h_sent = FALSE")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "member_name", "member_email", "trainer_name"}).
			AddRow(3, from.Add(20*time.Hour), "Mia", "mia@gym.test", "Tess"))

	out, err := repo.ListUpcomingUnreminded(context.Background(), from, to, Reminder24h)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "mia@gym.test", out[0].MemberEmail)
}
