package appointment

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ReminderFlag names a once-only reminder column on appointments.
type ReminderFlag string

const (
	Reminder24h ReminderFlag = "reminder_24h_sent"
	Reminder1h  ReminderFlag = "reminder_1h_sent"
)

func (f ReminderFlag) Valid() bool {
	return f == Reminder24h || f == Reminder1h
}

type Appointment struct {
	ID              int       `db:"id" json:"id"`
	MemberID        int       `db:"member_id" json:"member_id"`
	StaffID         *int      `db:"staff_id" json:"staff_id,omitempty"`
	StartsAt        time.Time `db:"starts_at" json:"starts_at"`
	Purpose         string    `db:"purpose" json:"purpose"`
	Status          Status    `db:"status" json:"status"`
	Reminder24hSent bool      `db:"reminder_24h_sent" json:"-"`
	Reminder1hSent  bool      `db:"reminder_1h_sent" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Upcoming struct {
	ID          int       `db:"id"`
	StartsAt    time.Time `db:"starts_at"`
	Purpose     string    `db:"purpose"`
	MemberName  string    `db:"member_name"`
	MemberEmail string    `db:"member_email"`
}
