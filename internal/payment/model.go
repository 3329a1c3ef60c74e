package payment

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Flag names a once-only notice column on payments.
type Flag string

const (
	FlagReminder Flag = "reminder_sent"
	FlagOverdue  Flag = "overdue_notice_sent"
)

func (f Flag) Valid() bool {
	return f == FlagReminder || f == FlagOverdue
}

type Payment struct {
	ID                int       `db:"id" json:"id"`
	MemberID          int       `db:"member_id" json:"member_id"`
	AmountCents       int64     `db:"amount_cents" json:"amount_cents"`
	Currency          string    `db:"currency" json:"currency"`
	Description       string    `db:"description" json:"description"`
	Status            Status    `db:"status" json:"status"`
	ReminderSent      bool      `db:"reminder_sent" json:"reminder_sent"`
	OverdueNoticeSent bool      `db:"overdue_notice_sent" json:"overdue_notice_sent"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Notice is a pending payment joined with the member who owes it.
type Notice struct {
	ID          int       `db:"id"`
	AmountCents int64     `db:"amount_cents"`
	Currency    string    `db:"currency"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	MemberName  string    `db:"member_name"`
	MemberEmail string    `db:"member_email"`
}

func (n Notice) Amount() string {
	return FormatAmount(n.AmountCents, n.Currency)
}

// FormatAmount renders minor units as "12.50 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
