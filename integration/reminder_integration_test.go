package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/appointment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/class"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/membership"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/payment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/reminder"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/training"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(conn *sqlx.DB, clk clock.Clock, notifier reminder.Notifier) *reminder.Scheduler {
	return reminder.New(reminder.Sources{
		Sessions:     training.NewRepository(conn),
		Memberships:  membership.NewRepository(conn),
		Payments:     payment.NewRepository(conn),
		Appointments: appointment.NewRepository(conn),
		Classes:      class.NewRepository(conn),
	}, notifier, nil, clk, reminder.Options{DailySpec: "0 8 * * *", HourlySpec: "0 * * * *"})
}

func TestReminderSweep_Integration(t *testing.T) {
	conn := setupTestDB(t)

	trainerID := createTestUser(t, conn, "trainer@test.com", "Tom", auth.RoleTrainer)
	memberID := createTestUser(t, conn, "member@test.com", "Mia", auth.RoleMember)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := conn.Exec(`
		INSERT INTO training_sessions (member_id, trainer_id, start_time)
		VALUES ($1, $2, $3), ($1, $2, $4)
	`, memberID, trainerID, now.Add(30*time.Minute), now.Add(5*time.Hour))
	require.NoError(t, err)

	_, err = conn.Exec(`
		INSERT INTO memberships (member_id, plan, start_date, end_date)
		VALUES ($1, 'Gold', $2, $3), ($1, 'Basic', $2, $4)
	`, memberID, now.AddDate(0, -1, 0), now.AddDate(0, 0, 3), now.AddDate(0, 0, -1))
	require.NoError(t, err)

	_, err = conn.Exec(`
		INSERT INTO payments (member_id, amount_cents, description, created_at)
		VALUES ($1, 4999, 'Monthly', $2), ($1, 9900, 'Package', $3)
	`, memberID, now.AddDate(0, 0, -5), now.AddDate(0, 0, -10))
	require.NoError(t, err)

	var classID int
	tomorrow, _ := class.Day(now.AddDate(0, 0, 1))
	require.NoError(t, conn.QueryRow(`
		INSERT INTO classes (name, trainer_id, starts_at, ends_at, capacity)
		VALUES ('Spin', $1, $2, $3, 10)
		RETURNING id
	`, trainerID, tomorrow.Add(9*time.Hour), tomorrow.Add(10*time.Hour)).Scan(&classID))
	_, err = conn.Exec(`INSERT INTO class_enrollments (class_id, member_id) VALUES ($1, $2)`, classID, memberID)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	clk := clock.NewMock(now)

	// Two sweepers racing over the same rows deliver each notice once.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := newScheduler(conn, clk, notifier).RunNow(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 2 sessions, 1 expiring + 1 expired membership, 2 payments, 1 class.
	assert.Equal(t, 7, notifier.count())

	var status string
	require.NoError(t, conn.Get(&status, `SELECT status FROM memberships WHERE plan = 'Basic'`))
	assert.Equal(t, string(membership.StatusExpired), status)

	_, err = newScheduler(conn, clk, notifier).RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, notifier.count())
}
