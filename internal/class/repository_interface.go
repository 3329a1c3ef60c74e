package class

import (
	"context"
	"time"
)

type Repository interface {
	// ListUnremindedEnrollments returns active enrollments for classes
	// starting in [from, to) that have not been reminded.
	ListUnremindedEnrollments(ctx context.Context, from, to time.Time) ([]Enrollment, error)
	ClaimReminder(ctx context.Context, enrollmentID int) (bool, error)
	ReleaseReminder(ctx context.Context, enrollmentID int) error
}
