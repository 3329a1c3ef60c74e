package credit

import (
	"context"
	"time"
)

type Repository interface {
	GetActive(ctx context.Context, memberID int) (*Ledger, error)
	// ConsumeOne increments used on the member's active ledger when at lies
	// inside the validity window and credits remain. It returns
	// ErrNotEligible when no row qualified.
	ConsumeOne(ctx context.Context, memberID int, at time.Time) (*Ledger, error)
}
