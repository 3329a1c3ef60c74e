package training

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/credit"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/email"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/metrics"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/user"

	"github.com/google/uuid"
)

const (
	DefaultGracePeriod = 15 * time.Minute

	maxExercises      = 50
	maxExerciseLength = 200
)

// Directory resolves users referenced by a session.
type Directory interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

type CreditConsumer interface {
	ConsumeOne(ctx context.Context, memberID int) (credit.ConsumeResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, to, subject, bodyHTML string) error
}

type Options struct {
	// GracePeriod after the scheduled start during which "present" is kept.
	GracePeriod time.Duration
	// ImplicitPresent records attendance as present when a session is
	// completed without attendance having been marked.
	ImplicitPresent bool
	// StaffEmail receives member change requests next to the trainer.
	StaffEmail string
}

type Service interface {
	Create(ctx context.Context, caller Caller, req CreateRequest) (*Session, error)
	Get(ctx context.Context, caller Caller, id int) (*Session, error)
	List(ctx context.Context, caller Caller, f ListFilter) ([]Session, int, error)
	ListForTrainer(ctx context.Context, caller Caller, trainerID int, f ListFilter) ([]Session, int, error)
	ListForMember(ctx context.Context, caller Caller, memberID int, f ListFilter) ([]Session, int, error)
	Stats(ctx context.Context, caller Caller, f StatsFilter) (*Stats, error)

	MarkAttendance(ctx context.Context, caller Caller, id int, req AttendanceRequest) (*Session, error)
	Complete(ctx context.Context, caller Caller, id int, req CompleteRequest) (*CompletionResult, error)
	Cancel(ctx context.Context, caller Caller, id int, req CancelRequest) (*Session, error)

	RequestReschedule(ctx context.Context, caller Caller, id int, req RescheduleRequest) (*ChangeRequest, error)
	RequestCancel(ctx context.Context, caller Caller, id int, req CancellationRequest) (*ChangeRequest, error)
}

type service struct {
	repo     Repository
	users    Directory
	credits  CreditConsumer
	notifier Notifier
	clock    clock.Clock
	opts     Options
}

func NewService(repo Repository, users Directory, credits CreditConsumer, notifier Notifier, clk clock.Clock, opts Options) Service {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	return &service{
		repo:     repo,
		users:    users,
		credits:  credits,
		notifier: notifier,
		clock:    clk,
		opts:     opts,
	}
}

func (s *service) Create(ctx context.Context, caller Caller, req CreateRequest) (*Session, error) {
	if !canSchedule(caller) {
		return nil, ErrForbidden
	}
	if req.StartTime == nil || req.StartTime.IsZero() {
		return nil, invalid("start_time", "required", "start_time is required")
	}

	member, err := s.lookup(ctx, req.MemberID, ErrMemberNotFound)
	if err != nil {
		return nil, err
	}
	if !member.IsMember() {
		return nil, invalid("member_id", "role", "member_id must reference a member")
	}

	trainerID, err := resolveTrainer(caller, req.TrainerID, member)
	if err != nil {
		return nil, err
	}
	trainer, err := s.lookup(ctx, trainerID, ErrTrainerNotFound)
	if err != nil {
		return nil, err
	}
	if !trainer.IsTrainer() {
		return nil, ErrTrainerNotFound
	}

	if req.ProgrammeID != nil {
		ok, err := s.repo.ProgrammeExists(ctx, *req.ProgrammeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrProgrammeNotFound
		}
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = DefaultDurationMinutes
	}

	created, err := s.repo.Create(ctx, &Session{
		MemberID:        member.ID,
		TrainerID:       trainer.ID,
		ProgrammeID:     req.ProgrammeID,
		StartTime:       *req.StartTime,
		DurationMinutes: duration,
		State:           StateScheduled,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionTransition(string(StateScheduled))
	logger.Info("session scheduled", "session_id", created.ID, "member_id", member.ID, "trainer_id", trainer.ID, "caller_id", caller.ID)

	s.notify(ctx, "session_scheduled", member.Email, email.SessionScheduled(member.Name, trainer.Name, created.StartTime))
	return created, nil
}

// resolveTrainer picks the trainer of record. A trainer always schedules
// for themselves; admin and staff name one or fall back to the member's
// assigned trainer.
func resolveTrainer(caller Caller, explicit *int, member *user.User) (int, error) {
	if caller.Role == auth.RoleTrainer {
		if explicit != nil && *explicit != caller.ID {
			return 0, ErrForbidden
		}
		return caller.ID, nil
	}
	if explicit != nil {
		return *explicit, nil
	}
	if member.AssignedTrainerID != nil {
		return *member.AssignedTrainerID, nil
	}
	return 0, invalid("trainer_id", "required", "trainer_id is required when the member has no assigned trainer")
}

func (s *service) lookup(ctx context.Context, id int, notFound error) (*user.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, notFound
	}
	return u, err
}

func (s *service) Get(ctx context.Context, caller Caller, id int) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Authorize(caller, sess).Has(PermView) {
		return nil, ErrForbidden
	}
	return sess, nil
}

func (s *service) List(ctx context.Context, caller Caller, f ListFilter) ([]Session, int, error) {
	if f.State != nil && !f.State.Valid() {
		return nil, 0, invalid("state", "oneof", "state must be one of: scheduled in_progress completed cancelled no_show")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, invalid("to", "gtefield", "to must not be before from")
	}

	memberID, trainerID, err := scope(caller, f.MemberID, f.TrainerID)
	if err != nil {
		return nil, 0, err
	}
	f.MemberID, f.TrainerID = memberID, trainerID
	f.Page, f.Limit = api.NormalizePage(f.Page, f.Limit)

	return s.repo.List(ctx, f)
}

func (s *service) ListForTrainer(ctx context.Context, caller Caller, trainerID int, f ListFilter) ([]Session, int, error) {
	f.TrainerID = &trainerID
	return s.List(ctx, caller, f)
}

func (s *service) ListForMember(ctx context.Context, caller Caller, memberID int, f ListFilter) ([]Session, int, error) {
	f.MemberID = &memberID
	return s.List(ctx, caller, f)
}

func (s *service) Stats(ctx context.Context, caller Caller, f StatsFilter) (*Stats, error) {
	memberID, trainerID, err := scope(caller, f.MemberID, f.TrainerID)
	if err != nil {
		return nil, err
	}
	f.MemberID, f.TrainerID = memberID, trainerID
	return s.repo.Stats(ctx, f)
}

// load fetches the session and checks that caller holds perm and, when
// given, that the caller's version is current.
func (s *service) load(ctx context.Context, caller Caller, id int, perm Permissions, version *int) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Authorize(caller, sess).Has(perm) {
		return nil, ErrForbidden
	}
	if version != nil && *version != sess.Version {
		return nil, ErrVersionConflict
	}
	return sess, nil
}

func (s *service) MarkAttendance(ctx context.Context, caller Caller, id int, req AttendanceRequest) (*Session, error) {
	if !req.Outcome.Valid() {
		return nil, invalid("outcome", "oneof", "outcome must be one of: present absent late no_show")
	}

	sess, err := s.load(ctx, caller, id, PermMarkAttendance, req.Version)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return nil, transitionError(sess.State, "mark attendance on")
	}

	now := s.clock.Now()
	outcome := req.Outcome
	if outcome == AttendancePresent && now.Sub(sess.StartTime) > s.opts.GracePeriod {
		outcome = AttendanceLate
	}

	prev := sess.State
	switch outcome {
	case AttendancePresent, AttendanceLate:
		if sess.State == StateNoShow {
			return nil, transitionError(sess.State, "mark "+string(outcome)+" on")
		}
		if sess.State == StateScheduled {
			sess.State = StateInProgress
		}
	case AttendanceNoShow:
		sess.State = StateNoShow
	}

	sess.Attendance = &outcome
	sess.AttendanceBy = &caller.ID
	sess.AttendanceAt = &now

	updated, err := s.repo.Update(ctx, sess, sess.Version)
	if err != nil {
		return nil, err
	}

	if updated.State != prev {
		metrics.RecordSessionTransition(string(updated.State))
	}
	logger.Info("attendance marked", "session_id", id, "outcome", outcome, "state", updated.State, "caller_id", caller.ID)
	return updated, nil
}

func (s *service) Complete(ctx context.Context, caller Caller, id int, req CompleteRequest) (*CompletionResult, error) {
	exercises, verr := validateCompletion(req)
	if verr != nil {
		return nil, verr
	}

	sess, err := s.load(ctx, caller, id, PermComplete, req.Version)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() || sess.State == StateNoShow {
		return nil, transitionError(sess.State, "complete")
	}

	now := s.clock.Now()
	if sess.Attendance == nil {
		if !s.opts.ImplicitPresent {
			return nil, transitionError(sess.State, "complete an unattended")
		}
		present := AttendancePresent
		sess.Attendance = &present
		sess.AttendanceBy = &caller.ID
		sess.AttendanceAt = &now
	}

	rating := req.Rating
	sess.State = StateCompleted
	sess.EndTime = &now
	sess.Rating = &rating
	sess.Remarks = strings.TrimSpace(req.Remarks)
	sess.TrainerNotes = strings.TrimSpace(req.TrainerNotes)
	sess.Recommendations = strings.TrimSpace(req.Recommendations)
	sess.Exercises = exercises

	updated, err := s.repo.Update(ctx, sess, sess.Version)
	if err != nil {
		return nil, err
	}
	metrics.RecordSessionTransition(string(StateCompleted))
	logger.Info("session completed", "session_id", id, "member_id", updated.MemberID, "rating", rating, "caller_id", caller.ID)

	result := &CompletionResult{Session: updated, Credit: s.consumeCredit(ctx, updated)}

	if member, err := s.users.FindByID(ctx, updated.MemberID); err == nil {
		var remaining *int
		if result.Credit != nil {
			remaining = result.Credit.Remaining
		}
		s.notify(ctx, "session_completed", member.Email, email.SessionCompleted(member.Name, updated.StartTime, remaining))
	} else {
		logger.Warn("completion notice skipped", "session_id", id, "member_id", updated.MemberID, "error", err)
	}

	return result, nil
}

// consumeCredit runs after the completion is persisted. Its outcome never
// fails the completion.
func (s *service) consumeCredit(ctx context.Context, sess *Session) *CreditOutcome {
	res, err := s.credits.ConsumeOne(ctx, sess.MemberID)
	if err != nil {
		logger.Error("credit consumption failed", "session_id", sess.ID, "member_id", sess.MemberID, "error", err)
		return nil
	}

	out := &CreditOutcome{Consumed: res.Consumed, Reason: res.Reason}
	if res.Ledger != nil {
		remaining := res.Ledger.Remaining()
		out.Remaining = &remaining
	}
	if !res.Consumed {
		return out
	}

	if err := s.repo.MarkCreditConsumed(ctx, sess.ID); err != nil {
		logger.Warn("could not flag credit consumption on session", "session_id", sess.ID, "error", err)
	} else {
		sess.CreditConsumed = true
	}
	return out
}

func validateCompletion(req CompleteRequest) ([]string, *ValidationError) {
	var fields []api.FieldError
	if req.Rating < 1 || req.Rating > 5 {
		fields = append(fields, api.FieldError{Field: "rating", Tag: "range", Message: "rating must be between 1 and 5"})
	}

	exercises := make([]string, 0, len(req.Exercises))
	for _, e := range req.Exercises {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if len(e) > maxExerciseLength {
			fields = append(fields, api.FieldError{Field: "exercises", Tag: "max", Message: "each exercise must be at most 200 characters"})
			break
		}
		exercises = append(exercises, e)
	}
	if len(exercises) > maxExercises {
		fields = append(fields, api.FieldError{Field: "exercises", Tag: "max", Message: "exercises must have at most 50 entries"})
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return exercises, nil
}

func (s *service) Cancel(ctx context.Context, caller Caller, id int, req CancelRequest) (*Session, error) {
	sess, err := s.load(ctx, caller, id, PermCancel, req.Version)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return nil, transitionError(sess.State, "cancel")
	}

	reason := strings.TrimSpace(req.Reason)
	sess.State = StateCancelled
	sess.Remarks = reason

	updated, err := s.repo.Update(ctx, sess, sess.Version)
	if err != nil {
		return nil, err
	}
	metrics.RecordSessionTransition(string(StateCancelled))
	logger.Info("session cancelled", "session_id", id, "caller_id", caller.ID)

	if member, err := s.users.FindByID(ctx, updated.MemberID); err == nil {
		s.notify(ctx, "session_cancelled", member.Email, email.SessionCancelled(member.Name, updated.StartTime, reason))
	} else {
		logger.Warn("cancellation notice skipped", "session_id", id, "member_id", updated.MemberID, "error", err)
	}
	return updated, nil
}

func (s *service) RequestReschedule(ctx context.Context, caller Caller, id int, req RescheduleRequest) (*ChangeRequest, error) {
	if req.ProposedStart == nil || req.ProposedStart.IsZero() {
		return nil, invalid("proposed_start", "required", "proposed_start is required")
	}
	if !req.ProposedStart.After(s.clock.Now()) {
		return nil, invalid("proposed_start", "future", "proposed_start must be in the future")
	}
	return s.requestChange(ctx, caller, id, ChangeReschedule, req.ProposedStart, req.Reason)
}

func (s *service) RequestCancel(ctx context.Context, caller Caller, id int, req CancellationRequest) (*ChangeRequest, error) {
	return s.requestChange(ctx, caller, id, ChangeCancel, nil, req.Reason)
}

func (s *service) requestChange(ctx context.Context, caller Caller, id int, kind ChangeKind, proposed *time.Time, reason string) (*ChangeRequest, error) {
	sess, err := s.load(ctx, caller, id, PermRequestChange, nil)
	if err != nil {
		return nil, err
	}
	if sess.State != StateScheduled {
		return nil, transitionError(sess.State, "request a "+string(kind)+" for")
	}

	reason = strings.TrimSpace(reason)
	cr, err := s.repo.CreateChangeRequest(ctx, &ChangeRequest{
		ID:            uuid.New(),
		SessionID:     sess.ID,
		MemberID:      caller.ID,
		Kind:          kind,
		ProposedStart: proposed,
		Reason:        reason,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("session change requested", "session_id", id, "request_id", cr.ID, "kind", kind, "member_id", caller.ID)

	memberName := "A member"
	if m, err := s.users.FindByID(ctx, caller.ID); err == nil {
		memberName = m.Name
	}
	if trainer, err := s.users.FindByID(ctx, sess.TrainerID); err == nil {
		s.notify(ctx, "change_request", trainer.Email,
			email.ChangeRequested(trainer.Name, memberName, string(kind), sess.StartTime, proposed, reason))
	} else {
		logger.Warn("trainer not notified of change request", "session_id", id, "trainer_id", sess.TrainerID, "error", err)
	}
	if s.opts.StaffEmail != "" {
		s.notify(ctx, "change_request", s.opts.StaffEmail,
			email.ChangeRequested("team", memberName, string(kind), sess.StartTime, proposed, reason))
	}
	return cr, nil
}

func (s *service) notify(ctx context.Context, kind, to string, msg email.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, to, msg.Subject, msg.HTML); err != nil {
		metrics.RecordNotification(kind, "failed")
		logger.Warn("notification failed", "type", kind, "to", to, "error", err)
		return
	}
	metrics.RecordNotification(kind, "queued")
}
