package class

import "time"

type Class struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TrainerID *int      `db:"trainer_id" json:"trainer_id,omitempty"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Enrollment is one member's seat in a class, joined with class and member
// details for reminders.
type Enrollment struct {
	ID          int       `db:"id"`
	ClassName   string    `db:"class_name"`
	StartsAt    time.Time `db:"starts_at"`
	MemberName  string    `db:"member_name"`
	MemberEmail string    `db:"member_email"`
}

// Day returns the [start, end) bounds of the calendar day containing t in
// t's location.
func Day(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
