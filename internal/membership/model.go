package membership

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

type Membership struct {
	ID               int       `db:"id" json:"id"`
	MemberID         int       `db:"member_id" json:"member_id"`
	Plan             string    `db:"plan" json:"plan"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	Status           Status    `db:"status" json:"status"`
	ExpiryNoticeSent bool      `db:"expiry_notice_sent" json:"expiry_notice_sent"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Notice is a membership joined with the member it should be sent to.
type Notice struct {
	ID          int       `db:"id"`
	Plan        string    `db:"plan"`
	EndDate     time.Time `db:"end_date"`
	MemberName  string    `db:"member_name"`
	MemberEmail string    `db:"member_email"`
}
