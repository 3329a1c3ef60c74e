package reminder

import (
	"context"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/appointment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/class"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/email"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/metrics"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/payment"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/training"
)

const (
	expiryLookahead = 7 * 24 * time.Hour
	paymentReminder = 3 * 24 * time.Hour
	paymentOverdue  = 7 * 24 * time.Hour
)

// window returns the (from, to] start-time range and the lead text for a
// 24h or 1h reminder.
func window(now time.Time, oneHour bool) (time.Time, time.Time, string) {
	if oneHour {
		return now, now.Add(time.Hour), "1 hour"
	}
	return now.Add(time.Hour), now.Add(24 * time.Hour), "24 hours"
}

func (s *Scheduler) sessions(flag training.ReminderFlag) func(context.Context, time.Time, *Report) error {
	return func(ctx context.Context, now time.Time, rep *Report) error {
		from, to, lead := window(now, flag == training.Reminder1h)
		due, err := s.src.Sessions.ListUpcomingUnreminded(ctx, from, to, flag)
		if err != nil {
			return err
		}
		rep.Scanned = len(due)

		for _, u := range due {
			id := u.ID
			s.deliver(ctx, rep, id,
				func(ctx context.Context) (bool, error) { return s.src.Sessions.ClaimReminder(ctx, id, flag) },
				func(ctx context.Context) error { return s.src.Sessions.ReleaseReminder(ctx, id, flag) },
				u.MemberEmail, email.SessionReminder(u.MemberName, u.TrainerName, u.StartTime, lead))
		}
		return nil
	}
}

func (s *Scheduler) appointments(flag appointment.ReminderFlag) func(context.Context, time.Time, *Report) error {
	return func(ctx context.Context, now time.Time, rep *Report) error {
		from, to, lead := window(now, flag == appointment.Reminder1h)
		due, err := s.src.Appointments.ListUpcomingUnreminded(ctx, from, to, flag)
		if err != nil {
			return err
		}
		rep.Scanned = len(due)

		for _, a := range due {
			id := a.ID
			s.deliver(ctx, rep, id,
				func(ctx context.Context) (bool, error) { return s.src.Appointments.ClaimReminder(ctx, id, flag) },
				func(ctx context.Context) error { return s.src.Appointments.ReleaseReminder(ctx, id, flag) },
				a.MemberEmail, email.AppointmentReminder(a.MemberName, a.Purpose, a.StartsAt, lead))
		}
		return nil
	}
}

func (s *Scheduler) membershipsExpiring(ctx context.Context, now time.Time, rep *Report) error {
	due, err := s.src.Memberships.ListExpiring(ctx, now, now.Add(expiryLookahead))
	if err != nil {
		return err
	}
	rep.Scanned = len(due)

	for _, m := range due {
		id := m.ID
		s.deliver(ctx, rep, id,
			func(ctx context.Context) (bool, error) { return s.src.Memberships.ClaimExpiryNotice(ctx, id) },
			func(ctx context.Context) error { return s.src.Memberships.ReleaseExpiryNotice(ctx, id) },
			m.MemberEmail, email.MembershipExpiring(m.MemberName, m.Plan, m.EndDate))
	}
	return nil
}

// membershipsLapsed expires active memberships past their end date. The
// status flip is the claim: only the run that performs it sends the notice.
func (s *Scheduler) membershipsLapsed(ctx context.Context, now time.Time, rep *Report) error {
	due, err := s.src.Memberships.ListLapsed(ctx, now)
	if err != nil {
		return err
	}
	rep.Scanned = len(due)

	for _, m := range due {
		expired, err := s.src.Memberships.Expire(ctx, m.ID)
		if err != nil {
			s.failed(rep, m.ID, "expire membership", err)
			continue
		}
		if !expired {
			rep.Skipped++
			metrics.RecordReminder(rep.Name, "skipped")
			continue
		}
		msg := email.MembershipExpired(m.MemberName, m.Plan, m.EndDate)
		if err := s.notifier.Notify(ctx, m.MemberEmail, msg.Subject, msg.HTML); err != nil {
			s.failed(rep, m.ID, "send expired notice", err)
			continue
		}
		rep.Sent++
		metrics.RecordReminder(rep.Name, "sent")
	}
	return nil
}

func (s *Scheduler) paymentReminders(ctx context.Context, now time.Time, rep *Report) error {
	return s.payments(ctx, rep, now.Add(-paymentOverdue), now.Add(-paymentReminder), payment.FlagReminder, email.PaymentReminder)
}

func (s *Scheduler) paymentsOverdue(ctx context.Context, now time.Time, rep *Report) error {
	return s.payments(ctx, rep, time.Time{}, now.Add(-paymentOverdue), payment.FlagOverdue, email.PaymentOverdue)
}

func (s *Scheduler) payments(ctx context.Context, rep *Report, after, before time.Time, flag payment.Flag,
	render func(memberName, amount, description string, created time.Time) email.Message) error {
	due, err := s.src.Payments.ListPending(ctx, after, before, flag)
	if err != nil {
		return err
	}
	rep.Scanned = len(due)

	for _, p := range due {
		id := p.ID
		s.deliver(ctx, rep, id,
			func(ctx context.Context) (bool, error) { return s.src.Payments.Claim(ctx, id, flag) },
			func(ctx context.Context) error { return s.src.Payments.Release(ctx, id, flag) },
			p.MemberEmail, render(p.MemberName, p.Amount(), p.Description, p.CreatedAt))
	}
	return nil
}

// classesTomorrow covers the whole next calendar day in the clock's location.
func (s *Scheduler) classesTomorrow(ctx context.Context, now time.Time, rep *Report) error {
	from, to := class.Day(now.AddDate(0, 0, 1))
	due, err := s.src.Classes.ListUnremindedEnrollments(ctx, from, to)
	if err != nil {
		return err
	}
	rep.Scanned = len(due)

	for _, e := range due {
		id := e.ID
		s.deliver(ctx, rep, id,
			func(ctx context.Context) (bool, error) { return s.src.Classes.ClaimReminder(ctx, id) },
			func(ctx context.Context) error { return s.src.Classes.ReleaseReminder(ctx, id) },
			e.MemberEmail, email.ClassReminder(e.MemberName, e.ClassName, e.StartsAt))
	}
	return nil
}

// deliver claims the record's flag, sends the message and gives the flag
// back if sending fails so a later run retries.
func (s *Scheduler) deliver(ctx context.Context, rep *Report, id int,
	claim func(context.Context) (bool, error), release func(context.Context) error,
	to string, msg email.Message) {
	owned, err := claim(ctx)
	if err != nil {
		s.failed(rep, id, "claim", err)
		return
	}
	if !owned {
		rep.Skipped++
		metrics.RecordReminder(rep.Name, "skipped")
		return
	}

	if err := s.notifier.Notify(ctx, to, msg.Subject, msg.HTML); err != nil {
		s.failed(rep, id, "send", err)
		if rerr := release(ctx); rerr != nil {
			logger.Error("reminder flag release failed", "sweep", rep.Name, "id", id, "error", rerr)
		}
		return
	}
	rep.Sent++
	metrics.RecordReminder(rep.Name, "sent")
}

func (s *Scheduler) failed(rep *Report, id int, step string, err error) {
	rep.Failed++
	metrics.RecordReminder(rep.Name, "failed")
	logger.Error("reminder delivery failed", "sweep", rep.Name, "id", id, "step", step, "error", err)
}
