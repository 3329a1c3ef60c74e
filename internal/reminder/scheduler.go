// Package reminder runs the periodic notification sweeps: upcoming training
// sessions and appointments, expiring and lapsed memberships, pending
// payments and next-day classes.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/appointment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/class"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/membership"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/metrics"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/payment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/training"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const lockKeyPrefix = "reminder:sweep:lock:"

// ErrSweepRunning is returned when another instance holds the sweep lock.
var ErrSweepRunning = errors.New("reminder sweep already running")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionReminders is the part of the training store the sweep reads.
type SessionReminders interface {
	ListUpcomingUnreminded(ctx context.Context, from, to time.Time, flag training.ReminderFlag) ([]training.Upcoming, error)
	ClaimReminder(ctx context.Context, id int, flag training.ReminderFlag) (bool, error)
	ReleaseReminder(ctx context.Context, id int, flag training.ReminderFlag) error
}

type Notifier interface {
	Notify(ctx context.Context, to, subject, bodyHTML string) error
}

type Sources struct {
	Sessions     SessionReminders
	Memberships  membership.Repository
	Payments     payment.Repository
	Appointments appointment.Repository
	Classes      class.Repository
}

type Options struct {
	DailySpec  string
	HourlySpec string
	LockTTL    time.Duration
}

// Report summarises one sub-sweep.
type Report struct {
	Name    string `json:"name"`
	Scanned int    `json:"scanned"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

type sweep struct {
	name string
	run  func(ctx context.Context, now time.Time, rep *Report) error
}

type Scheduler struct {
	src      Sources
	notifier Notifier
	redis    *redis.Client
	clock    clock.Clock
	opts     Options
	cron     *cron.Cron
	newToken func() string
}

// New builds a scheduler. rdb may be nil, in which case sweeps run without
// the cross-instance lock.
func New(src Sources, notifier Notifier, rdb *redis.Client, clk clock.Clock, opts Options) *Scheduler {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &Scheduler{
		src:      src,
		notifier: notifier,
		redis:    rdb,
		clock:    clk,
		opts:     opts,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{}))),
		newToken: func() string { return uuid.NewString() },
	}
}

// Start registers the daily and hourly jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.DailySpec, func() { s.runScheduled("daily", s.RunNow) }); err != nil {
		return fmt.Errorf("schedule daily reminders: %w", err)
	}
	if _, err := s.cron.AddFunc(s.opts.HourlySpec, func() { s.runScheduled("hourly", s.RunHourly) }); err != nil {
		return fmt.Errorf("schedule hourly reminders: %w", err)
	}
	s.cron.Start()
	logger.Info("reminder scheduler started", "daily", s.opts.DailySpec, "hourly", s.opts.HourlySpec)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) runScheduled(name string, run func(context.Context) ([]Report, error)) {
	if _, err := run(context.Background()); err != nil {
		if errors.Is(err, ErrSweepRunning) {
			logger.Info("reminder sweep skipped, lock held elsewhere", "run", name)
			return
		}
		logger.Error("reminder sweep failed", "run", name, "error", err)
	}
}

// RunNow performs the full sweep.
func (s *Scheduler) RunNow(ctx context.Context) ([]Report, error) {
	return s.run(ctx, "daily", []sweep{
		{"membership_expiring", s.membershipsExpiring},
		{"membership_expired", s.membershipsLapsed},
		{"payment_reminder", s.paymentReminders},
		{"payment_overdue", s.paymentsOverdue},
		{"session_24h", s.sessions(training.Reminder24h)},
		{"session_1h", s.sessions(training.Reminder1h)},
		{"appointment_24h", s.appointments(appointment.Reminder24h)},
		{"appointment_1h", s.appointments(appointment.Reminder1h)},
		{"class_tomorrow", s.classesTomorrow},
	})
}

// RunHourly performs only the time-sensitive 24h and 1h sweeps.
func (s *Scheduler) RunHourly(ctx context.Context) ([]Report, error) {
	return s.run(ctx, "hourly", []sweep{
		{"session_24h", s.sessions(training.Reminder24h)},
		{"session_1h", s.sessions(training.Reminder1h)},
		{"appointment_24h", s.appointments(appointment.Reminder24h)},
		{"appointment_1h", s.appointments(appointment.Reminder1h)},
	})
}

func (s *Scheduler) run(ctx context.Context, name string, sweeps []sweep) ([]Report, error) {
	unlock, err := s.lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := time.Now()
	now := s.clock.Now()
	reports := make([]Report, 0, len(sweeps))
	for _, sw := range sweeps {
		rep := Report{Name: sw.name}
		if err := sw.run(ctx, now, &rep); err != nil {
			rep.Error = err.Error()
			logger.Error("reminder sub-sweep failed", "run", name, "sweep", sw.name, "error", err)
		}
		logger.Info("reminder sub-sweep finished",
			"run", name,
			"sweep", rep.Name,
			"scanned", rep.Scanned,
			"sent", rep.Sent,
			"skipped", rep.Skipped,
			"failed", rep.Failed,
		)
		reports = append(reports, rep)
	}
	metrics.ReminderSweepDuration.Observe(time.Since(started).Seconds())

	return reports, nil
}

// lock takes the per-run Redis lock. When Redis cannot be reached the sweep
// goes ahead; row claims still keep each notice single.
func (s *Scheduler) lock(ctx context.Context, name string) (func(), error) {
	noop := func() {}
	if s.redis == nil {
		return noop, nil
	}

	key := lockKeyPrefix + name
	token := s.newToken()
	ok, err := s.redis.SetNX(ctx, key, token, s.opts.LockTTL).Result()
	if err != nil {
		logger.Warn("reminder lock unavailable, sweeping without it", "run", name, "error", err)
		return noop, nil
	}
	if !ok {
		return nil, ErrSweepRunning
	}

	return func() {
		if err := releaseScript.Run(context.Background(), s.redis, []string{key}, token).Err(); err != nil {
			logger.Warn("reminder lock release failed", "run", name, "error", err)
		}
	}, nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(msg, append(keysAndValues, "error", err)...)
}
