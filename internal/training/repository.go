package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/db"

	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, member_id, trainer_id, programme_id, start_time, end_time, duration_minutes, state, ` +
	`attendance, attendance_by, attendance_at, rating, remarks, trainer_notes, recommendations, exercises, ` +
	`credit_consumed, reminder_24h_sent, reminder_1h_sent, version, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Session) (*Session, error) {
	if s.Exercises == nil {
		s.Exercises = []string{}
	}

	out := &Session{}
	err := r.db.GetContext(ctx, out, `
		INSERT INTO training_sessions (member_id, trainer_id, programme_id, start_time, duration_minutes, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+sessionColumns,
		s.MemberID, s.TrainerID, s.ProgrammeID, s.StartTime, s.DurationMinutes, s.State)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return out, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Session, error) {
	s := &Session{}
	err := r.db.GetContext(ctx, s, `SELECT `+sessionColumns+` FROM training_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *repository) Update(ctx context.Context, s *Session, expectedVersion int) (*Session, error) {
	out := &Session{}
	err := r.db.GetContext(ctx, out, `
		UPDATE training_sessions
		SET state = $2, end_time = $3, attendance = $4, attendance_by = $5, attendance_at = $6,
		    rating = $7, remarks = $8, trainer_notes = $9, recommendations = $10, exercises = $11,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $12
		RETURNING `+sessionColumns,
		s.ID, s.State, s.EndTime, s.Attendance, s.AttendanceBy, s.AttendanceAt,
		s.Rating, s.Remarks, s.TrainerNotes, s.Recommendations, s.Exercises,
		expectedVersion)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update session: %w", err)
	}

	exists, err := db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM training_sessions WHERE id = $1)`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if !exists {
		return nil, ErrSessionNotFound
	}
	return nil, ErrVersionConflict
}

type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func sessionWhere(memberID, trainerID, programmeID *int, state *State, from, to *time.Time) *whereBuilder {
	w := &whereBuilder{}
	if memberID != nil {
		w.add("member_id = $%d", *memberID)
	}
	if trainerID != nil {
		w.add("trainer_id = $%d", *trainerID)
	}
	if programmeID != nil {
		w.add("programme_id = $%d", *programmeID)
	}
	if state != nil {
		w.add("state = $%d", string(*state))
	}
	if from != nil {
		w.add("start_time >= $%d", *from)
	}
	if to != nil {
		w.add("start_time <= $%d", *to)
	}
	return w
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Session, int, error) {
	page, limit := api.NormalizePage(f.Page, f.Limit)
	w := sessionWhere(f.MemberID, f.TrainerID, f.ProgrammeID, f.State, f.From, f.To)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM training_sessions`+w.sql(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	args := append(w.args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM training_sessions%s ORDER BY start_time DESC, id DESC LIMIT $%d OFFSET $%d`,
		sessionColumns, w.sql(), len(w.args)+1, len(w.args)+2)

	sessions := []Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, total, nil
}

func (r *repository) Stats(ctx context.Context, f StatsFilter) (*Stats, error) {
	w := sessionWhere(f.MemberID, f.TrainerID, nil, nil, f.From, f.To)

	var rows []struct {
		State State `db:"state"`
		Count int   `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT state, COUNT(*) AS count FROM training_sessions`+w.sql()+` GROUP BY state`, w.args...); err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}

	st := &Stats{ByState: map[State]int{
		StateScheduled:  0,
		StateInProgress: 0,
		StateCompleted:  0,
		StateCancelled:  0,
		StateNoShow:     0,
	}}
	for _, row := range rows {
		st.ByState[row.State] = row.Count
		st.Total += row.Count
	}

	completed := &whereBuilder{conds: append([]string{}, w.conds...), args: append([]interface{}{}, w.args...)}
	completed.conds = append(completed.conds, "state = 'completed'")

	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, `SELECT AVG(rating) FROM training_sessions`+completed.sql(), completed.args...); err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	if avg.Valid {
		st.AverageRating = &avg.Float64
	}
	return st, nil
}

func (r *repository) MarkCreditConsumed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE training_sessions SET credit_consumed = TRUE WHERE id = $1`, id)
	return err
}

func (r *repository) ProgrammeExists(ctx context.Context, id int) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM programmes WHERE id = $1)`, id)
}

func (r *repository) CreateChangeRequest(ctx context.Context, cr *ChangeRequest) (*ChangeRequest, error) {
	out := &ChangeRequest{}
	err := r.db.GetContext(ctx, out, `
		INSERT INTO session_change_requests (id, session_id, member_id, kind, proposed_start, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, session_id, member_id, kind, proposed_start, reason, status, created_at
	`, cr.ID, cr.SessionID, cr.MemberID, cr.Kind, cr.ProposedStart, cr.Reason)
	if err != nil {
		return nil, fmt.Errorf("insert change request: %w", err)
	}
	return out, nil
}

func (r *repository) ListUpcomingUnreminded(ctx context.Context, from, to time.Time, flag ReminderFlag) ([]Upcoming, error) {
	if !flag.Valid() {
		return nil, fmt.Errorf("unknown reminder flag %q", flag)
	}

	out := []Upcoming{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT s.id, s.start_time, m.name AS member_name, m.email AS member_email, t.name AS trainer_name
		FROM training_sessions s
		JOIN users m ON m.id = s.member_id
		JOIN users t ON t.id = s.trainer_id
		WHERE s.state = 'scheduled' AND s.start_time > $1 AND s.start_time <= $2 AND s.`+string(flag)+` = FALSE
		ORDER BY s.start_time
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	return out, nil
}

func (r *repository) ClaimReminder(ctx context.Context, id int, flag ReminderFlag) (bool, error) {
	if !flag.Valid() {
		return false, fmt.Errorf("unknown reminder flag %q", flag)
	}
	return db.ClaimFlag(ctx, r.db, "training_sessions", string(flag), id)
}

func (r *repository) ReleaseReminder(ctx context.Context, id int, flag ReminderFlag) error {
	if !flag.Valid() {
		return fmt.Errorf("unknown reminder flag %q", flag)
	}
	return db.ReleaseFlag(ctx, r.db, "training_sessions", string(flag), id)
}
