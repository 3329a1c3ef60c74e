package credit

import "time"

type Source string
type Status string

const (
	SourcePackage    Source = "package"
	SourceMembership Source = "membership"

	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Ledger is a member's prepaid session balance. The validity window is
// inclusive at both ends.
type Ledger struct {
	ID         int       `db:"id" json:"id"`
	MemberID   int       `db:"member_id" json:"member_id"`
	Source     Source    `db:"source" json:"source"`
	Total      int       `db:"total" json:"total"`
	Used       int       `db:"used" json:"used"`
	ValidFrom  time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil time.Time `db:"valid_until" json:"valid_until"`
	Status     Status    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func (l *Ledger) Remaining() int {
	if l.Used >= l.Total {
		return 0
	}
	return l.Total - l.Used
}

func (l *Ledger) Covers(at time.Time) bool {
	return !at.Before(l.ValidFrom) && !at.After(l.ValidUntil)
}

// Reasons reported by ConsumeOne.
const (
	ReasonConsumed      = "consumed"
	ReasonNoLedger      = "no_ledger"
	ReasonOutsideWindow = "outside_window"
	ReasonExhausted     = "exhausted"
)

type ConsumeResult struct {
	Consumed bool    `json:"consumed"`
	Reason   string  `json:"reason"`
	Ledger   *Ledger `json:"ledger,omitempty"`
}

type LedgerResponse struct {
	Ledger
	Remaining int  `json:"remaining"`
	Valid     bool `json:"valid_now"`
}
