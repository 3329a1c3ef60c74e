package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/appointment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/class"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/email"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/membership"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/metrics"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/payment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/training"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNow_SessionRemindersFireOncePerThreshold(t *testing.T) {
	e := newEnv(nil)
	e.sessions.items = []training.Upcoming{
		{ID: 1, StartTime: base.Add(30 * time.Minute), MemberName: "Mia", MemberEmail: "mia@gym.test", TrainerName: "Tom"},
		{ID: 2, StartTime: base.Add(5 * time.Hour), MemberName: "Leo", MemberEmail: "leo@gym.test", TrainerName: "Tom"},
		{ID: 3, StartTime: base.Add(30 * time.Hour), MemberName: "Ana", MemberEmail: "ana@gym.test", TrainerName: "Tom"},
	}

	reports, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	got := byName(reports)
	assert.Equal(t, 1, got["session_24h"].Sent)
	assert.Equal(t, 1, got["session_1h"].Sent)
	assert.Equal(t, 2, e.notifier.count())

	reports, err = e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	got = byName(reports)
	assert.Zero(t, got["session_24h"].Scanned)
	assert.Zero(t, got["session_1h"].Scanned)
	assert.Equal(t, 2, e.notifier.count())

	// Session 2 later enters the one-hour window and gets its second notice.
	e.clock.Advance(4*time.Hour + 30*time.Minute)
	reports, err = e.scheduler.RunHourly(context.Background())
	require.NoError(t, err)
	got = byName(reports)
	assert.Equal(t, 1, got["session_1h"].Sent)
	assert.Equal(t, "leo@gym.test", e.notifier.sent[2].To)
	assert.Equal(t, "Reminder: training session in 1 hour", e.notifier.sent[2].Subject)
}

func TestRunNow_SendFailureReleasesFlag(t *testing.T) {
	e := newEnv(nil)
	e.appointments.items = []appointment.Upcoming{
		{ID: 7, StartsAt: base.Add(3 * time.Hour), Purpose: "Assessment", MemberName: "Kai", MemberEmail: "kai@gym.test"},
	}
	e.notifier.failTo["kai@gym.test"] = true

	reports, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, byName(reports)["appointment_24h"].Failed)
	assert.False(t, e.appointments.flags.has(7, string(appointment.Reminder24h)))

	delete(e.notifier.failTo, "kai@gym.test")
	reports, err = e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, byName(reports)["appointment_24h"].Sent)
	assert.True(t, e.appointments.flags.has(7, string(appointment.Reminder24h)))
}

func TestDeliver_ClaimLostIsSkipped(t *testing.T) {
	e := newEnv(nil)
	rep := Report{Name: "appointment_1h"}

	e.scheduler.deliver(context.Background(), &rep, 8,
		func(context.Context) (bool, error) { return false, nil },
		func(context.Context) error { return nil },
		"noa@gym.test", email.Message{Subject: "x"})

	assert.Equal(t, 1, rep.Skipped)
	assert.Zero(t, rep.Sent)
	assert.Zero(t, e.notifier.count())
}

func TestDeliver_ClaimError(t *testing.T) {
	e := newEnv(nil)
	rep := Report{Name: "appointment_1h"}

	e.scheduler.deliver(context.Background(), &rep, 8,
		func(context.Context) (bool, error) { return false, errBoom },
		func(context.Context) error { return nil },
		"noa@gym.test", email.Message{Subject: "x"})

	assert.Equal(t, 1, rep.Failed)
	assert.Zero(t, e.notifier.count())
}

func TestRunNow_Memberships(t *testing.T) {
	e := newEnv(nil)
	e.memberships.items = []*fakeMembership{
		{Notice: membership.Notice{ID: 1, Plan: "Gold", EndDate: base.AddDate(0, 0, 3), MemberName: "Mia", MemberEmail: "mia@gym.test"}, Status: membership.StatusActive},
		{Notice: membership.Notice{ID: 2, Plan: "Gold", EndDate: base.AddDate(0, 0, 8), MemberName: "Leo", MemberEmail: "leo@gym.test"}, Status: membership.StatusActive},
		{Notice: membership.Notice{ID: 3, Plan: "Basic", EndDate: base.AddDate(0, 0, -1), MemberName: "Ana", MemberEmail: "ana@gym.test"}, Status: membership.StatusActive},
		{Notice: membership.Notice{ID: 4, Plan: "Basic", EndDate: base.AddDate(0, 0, -9), MemberName: "Kai", MemberEmail: "kai@gym.test"}, Status: membership.StatusCancelled},
	}

	reports, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	got := byName(reports)
	assert.Equal(t, 1, got["membership_expiring"].Sent)
	assert.Equal(t, 1, got["membership_expired"].Sent)
	assert.Equal(t, membership.StatusExpired, e.memberships.items[2].Status)
	assert.Equal(t, membership.StatusCancelled, e.memberships.items[3].Status)

	reports, err = e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	got = byName(reports)
	assert.Zero(t, got["membership_expiring"].Sent)
	assert.Zero(t, got["membership_expired"].Scanned)
	assert.Equal(t, 2, e.notifier.count())
}

func TestRunNow_PaymentWindows(t *testing.T) {
	e := newEnv(nil)
	e.payments.items = []payment.Notice{
		{ID: 1, AmountCents: 5000, Currency: "USD", Description: "Fresh", CreatedAt: base.AddDate(0, 0, -2), MemberEmail: "a@gym.test"},
		{ID: 2, AmountCents: 5000, Currency: "USD", Description: "Pending", CreatedAt: base.AddDate(0, 0, -5), MemberEmail: "b@gym.test"},
		{ID: 3, AmountCents: 5000, Currency: "USD", Description: "Old", CreatedAt: base.AddDate(0, 0, -10), MemberEmail: "c@gym.test"},
	}

	reports, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	got := byName(reports)
	assert.Equal(t, 1, got["payment_reminder"].Sent)
	assert.Equal(t, 1, got["payment_overdue"].Sent)
	require.Equal(t, 2, e.notifier.count())
	assert.Equal(t, sentMessage{To: "b@gym.test", Subject: "Payment reminder"}, e.notifier.sent[0])
	assert.Equal(t, sentMessage{To: "c@gym.test", Subject: "Payment overdue"}, e.notifier.sent[1])

	_, err = e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, e.notifier.count())
}

func TestRunNow_ClassesTomorrow(t *testing.T) {
	e := newEnv(nil)
	e.clock.Set(time.Date(2026, 6, 1, 23, 30, 0, 0, time.UTC))
	e.classes.items = []class.Enrollment{
		{ID: 1, ClassName: "Spin", StartsAt: time.Date(2026, 6, 1, 23, 45, 0, 0, time.UTC), MemberEmail: "a@gym.test"},
		{ID: 2, ClassName: "Spin", StartsAt: time.Date(2026, 6, 2, 7, 0, 0, 0, time.UTC), MemberEmail: "b@gym.test"},
		{ID: 3, ClassName: "Yoga", StartsAt: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), MemberEmail: "c@gym.test"},
	}

	reports, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, byName(reports)["class_tomorrow"].Sent)
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), e.classes.from)
	assert.Equal(t, time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), e.classes.to)
	assert.Equal(t, "b@gym.test", e.notifier.sent[0].To)
}

func TestRunNow_FailingSubSweepDoesNotStopOthers(t *testing.T) {
	e := newEnv(nil)
	e.sessions.listErr = errBoom
	e.payments.items = []payment.Notice{
		{ID: 2, AmountCents: 100, Currency: "USD", CreatedAt: base.AddDate(0, 0, -4), MemberEmail: "b@gym.test"},
	}

	reports, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	got := byName(reports)
	assert.Len(t, reports, 9)
	assert.Equal(t, "boom", got["session_24h"].Error)
	assert.Equal(t, "boom", got["session_1h"].Error)
	assert.Equal(t, 1, got["payment_reminder"].Sent)
}

func TestRunNow_RecordsMetrics(t *testing.T) {
	e := newEnv(nil)
	e.sessions.items = []training.Upcoming{
		{ID: 1, StartTime: base.Add(20 * time.Minute), MemberEmail: "mia@gym.test"},
	}
	before := testutil.ToFloat64(metrics.RemindersTotal.WithLabelValues("session_1h", "sent"))

	_, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RemindersTotal.WithLabelValues("session_1h", "sent")))
}

func TestRun_LockHeldElsewhere(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSetNX(lockKeyPrefix+"daily", "token-1", time.Minute).SetVal(false)

	e := newEnv(db)
	_, err := e.scheduler.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSweepRunning)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_LockAcquiredAndReleased(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSetNX(lockKeyPrefix+"hourly", "token-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{lockKeyPrefix + "hourly"}, "token-1").SetVal(int64(1))

	e := newEnv(db)
	reports, err := e.scheduler.RunHourly(context.Background())
	require.NoError(t, err)
	assert.Len(t, reports, 4)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RedisDownStillSweeps(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSetNX(lockKeyPrefix+"daily", "token-1", time.Minute).SetErr(errBoom)

	e := newEnv(db)
	e.sessions.items = []training.Upcoming{
		{ID: 1, StartTime: base.Add(20 * time.Minute), MemberEmail: "mia@gym.test"},
	}

	_, err := e.scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, e.notifier.count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStart_InvalidSpec(t *testing.T) {
	e := newEnv(nil)
	e.scheduler.opts.DailySpec = "not a cron"

	assert.Error(t, e.scheduler.Start())
}

func TestStartStop(t *testing.T) {
	e := newEnv(nil)

	require.NoError(t, e.scheduler.Start())
	assert.Len(t, e.scheduler.cron.Entries(), 2)
	e.scheduler.Stop()
}
