package training

import (
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type State string

const (
	StateScheduled  State = "scheduled"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateNoShow     State = "no_show"
)

func (s State) Valid() bool {
	switch s {
	case StateScheduled, StateInProgress, StateCompleted, StateCancelled, StateNoShow:
		return true
	}
	return false
}

// Terminal states accept no further mutation.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

type Attendance string

const (
	AttendancePresent Attendance = "present"
	AttendanceAbsent  Attendance = "absent"
	AttendanceLate    Attendance = "late"
	AttendanceNoShow  Attendance = "no_show"
)

func (a Attendance) Valid() bool {
	switch a {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceNoShow:
		return true
	}
	return false
}

const DefaultDurationMinutes = 60

type Session struct {
	ID              int            `db:"id" json:"id"`
	MemberID        int            `db:"member_id" json:"member_id"`
	TrainerID       int            `db:"trainer_id" json:"trainer_id"`
	ProgrammeID     *int           `db:"programme_id" json:"programme_id,omitempty"`
	StartTime       time.Time      `db:"start_time" json:"start_time"`
	EndTime         *time.Time     `db:"end_time" json:"end_time,omitempty"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	State           State          `db:"state" json:"state"`
	Attendance      *Attendance    `db:"attendance" json:"attendance,omitempty"`
	AttendanceBy    *int           `db:"attendance_by" json:"attendance_by,omitempty"`
	AttendanceAt    *time.Time     `db:"attendance_at" json:"attendance_at,omitempty"`
	Rating          *int           `db:"rating" json:"rating,omitempty"`
	Remarks         string         `db:"remarks" json:"remarks,omitempty"`
	TrainerNotes    string         `db:"trainer_notes" json:"trainer_notes,omitempty"`
	Recommendations string         `db:"recommendations" json:"recommendations,omitempty"`
	Exercises       pq.StringArray `db:"exercises" json:"exercises" swaggertype:"array,string"`
	CreditConsumed  bool           `db:"credit_consumed" json:"credit_consumed"`
	Reminder24hSent bool           `db:"reminder_24h_sent" json:"-"`
	Reminder1hSent  bool           `db:"reminder_1h_sent" json:"-"`
	Version         int            `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

type ChangeKind string

const (
	ChangeReschedule ChangeKind = "reschedule"
	ChangeCancel     ChangeKind = "cancel"
)

// ChangeRequest is a member's request for staff to move or cancel a session.
// It never changes the session itself.
type ChangeRequest struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	SessionID     int        `db:"session_id" json:"session_id"`
	MemberID      int        `db:"member_id" json:"member_id"`
	Kind          ChangeKind `db:"kind" json:"kind"`
	ProposedStart *time.Time `db:"proposed_start" json:"proposed_start,omitempty"`
	Reason        string     `db:"reason" json:"reason"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

type ListFilter struct {
	MemberID    *int
	TrainerID   *int
	ProgrammeID *int
	State       *State
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
}

type StatsFilter struct {
	MemberID  *int
	TrainerID *int
	From      *time.Time
	To        *time.Time
}

type Stats struct {
	Total         int           `json:"total"`
	ByState       map[State]int `json:"by_state"`
	AverageRating *float64      `json:"average_rating,omitempty"`
}

// ReminderFlag names a per-threshold boolean column on training_sessions.
type ReminderFlag string

const (
	Reminder24h ReminderFlag = "reminder_24h_sent"
	Reminder1h  ReminderFlag = "reminder_1h_sent"
)

func (f ReminderFlag) Valid() bool {
	return f == Reminder24h || f == Reminder1h
}

// Upcoming is a scheduled session joined with the names needed to remind
// its member.
type Upcoming struct {
	ID          int       `db:"id"`
	StartTime   time.Time `db:"start_time"`
	MemberName  string    `db:"member_name"`
	MemberEmail string    `db:"member_email"`
	TrainerName string    `db:"trainer_name"`
}

type CreateRequest struct {
	MemberID        int        `json:"member_id" binding:"required,gt=0"`
	TrainerID       *int       `json:"trainer_id" binding:"omitempty,gt=0"`
	ProgrammeID     *int       `json:"programme_id" binding:"omitempty,gt=0"`
	StartTime       *time.Time `json:"start_time" binding:"required"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,gte=15,lte=480"`
}

type AttendanceRequest struct {
	Outcome Attendance `json:"outcome" binding:"required,oneof=present absent late no_show"`
	Version *int       `json:"version" binding:"omitempty,gt=0"`
}

type CompleteRequest struct {
	Rating          int      `json:"rating" binding:"required,gte=1,lte=5"`
	Remarks         string   `json:"remarks" binding:"max=2000"`
	Exercises       []string `json:"exercises" binding:"max=50,dive,max=200"`
	TrainerNotes    string   `json:"trainer_notes" binding:"max=2000"`
	Recommendations string   `json:"recommendations" binding:"max=2000"`
	Version         *int     `json:"version" binding:"omitempty,gt=0"`
}

type CancelRequest struct {
	Reason  string `json:"reason" binding:"max=500"`
	Version *int   `json:"version" binding:"omitempty,gt=0"`
}

type RescheduleRequest struct {
	ProposedStart *time.Time `json:"proposed_start" binding:"required"`
	Reason        string     `json:"reason" binding:"max=1000"`
}

type CancellationRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// CompletionResult reports the completed session and what happened to the
// member's credit balance.
type CompletionResult struct {
	Session *Session       `json:"session"`
	Credit  *CreditOutcome `json:"credit,omitempty"`
}

type CreditOutcome struct {
	Consumed  bool   `json:"consumed"`
	Reason    string `json:"reason"`
	Remaining *int   `json:"remaining,omitempty"`
}

type SessionListResponse struct {
	Data       []Session `json:"data"`
	Pagination api.PaginationMeta `json:"pagination"`
}
