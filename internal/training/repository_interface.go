package training

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s *Session) (*Session, error)
	GetByID(ctx context.Context, id int) (*Session, error)
	// Update writes the mutable fields of s only if the stored version still
	// equals expectedVersion, and bumps the version.
	Update(ctx context.Context, s *Session, expectedVersion int) (*Session, error)
	List(ctx context.Context, f ListFilter) ([]Session, int, error)
	Stats(ctx context.Context, f StatsFilter) (*Stats, error)
	MarkCreditConsumed(ctx context.Context, id int) error
	ProgrammeExists(ctx context.Context, id int) (bool, error)
	CreateChangeRequest(ctx context.Context, cr *ChangeRequest) (*ChangeRequest, error)

	ListUpcomingUnreminded(ctx context.Context, from, to time.Time, flag ReminderFlag) ([]Upcoming, error)
	ClaimReminder(ctx context.Context, id int, flag ReminderFlag) (bool, error)
	ReleaseReminder(ctx context.Context, id int, flag ReminderFlag) error
}
