package class

import (
	"context"
	"fmt"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/db"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListUnremindedEnrollments(ctx context.Context, from, to time.Time) ([]Enrollment, error) {
	out := []Enrollment{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT e.id, c.name AS class_name, c.starts_at, u.name AS member_name, u.email AS member_email
		FROM class_enrollments e
		JOIN classes c ON c.id = e.class_id
		JOIN users u ON u.id = e.member_id
		WHERE e.status = 'enrolled' AND e.reminder_sent = FALSE AND c.starts_at >= $1 AND c.starts_at < $2
		ORDER BY c.starts_at, e.id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list class enrollments: %w", err)
	}
	return out, nil
}

func (r *repository) ClaimReminder(ctx context.Context, enrollmentID int) (bool, error) {
	return db.ClaimFlag(ctx, r.db, "class_enrollments", "reminder_sent", enrollmentID)
}

func (r *repository) ReleaseReminder(ctx context.Context, enrollmentID int) error {
	return db.ReleaseFlag(ctx, r.db, "class_enrollments", "reminder_sent", enrollmentID)
}
