package membership

import (
	"context"
	"time"
)

type Repository interface {
	GetActiveByMember(ctx context.Context, memberID int) (*Membership, error)
	// ListExpiring returns active memberships ending in (now, until] whose
	// expiry notice has not been sent.
	ListExpiring(ctx context.Context, now, until time.Time) ([]Notice, error)
	// ListLapsed returns memberships still active although their end date
	// is before now.
	ListLapsed(ctx context.Context, now time.Time) ([]Notice, error)
	// Expire flips one membership from active to expired and reports whether
	// this call did it.
	Expire(ctx context.Context, id int) (bool, error)
	ClaimExpiryNotice(ctx context.Context, id int) (bool, error)
	ReleaseExpiryNotice(ctx context.Context, id int) error
}
