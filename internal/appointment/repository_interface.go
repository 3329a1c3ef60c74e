package appointment

import (
	"context"
	"time"
)

type Repository interface {
	// ListUpcomingUnreminded returns scheduled appointments starting in
	// (from, to] whose flag is still unset.
	ListUpcomingUnreminded(ctx context.Context, from, to time.Time, flag ReminderFlag) ([]Upcoming, error)
	ClaimReminder(ctx context.Context, id int, flag ReminderFlag) (bool, error)
	ReleaseReminder(ctx context.Context, id int, flag ReminderFlag) error
}
