package appointment

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

func (r *repository) ListUpcomingUnreminded(ctx context.Context, from, to time.Time, flag ReminderFlag) ([]Upcoming, error) {
	if !flag.Valid() {
		return nil, fmt.Errorf("unknown reminder flag %q", flag)
	}

	out := []Upcoming{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT a.id, a.starts_at, a.purpose, u.name AS member_name, u.email AS member_email
		FROM appointments a
		JOIN users u ON u.id = a.member_id
		WHERE a.status = 'scheduled' AND a.starts_at > $1 AND a.starts_at <= $2 AND a.`+string(flag)+` = FALSE
		ORDER BY a.starts_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return out, nil
}

func (r *repository) ClaimReminder(ctx context.Context, id int, flag ReminderFlag) (bool, error) {
	if !flag.Valid() {
		return false, fmt.Errorf("unknown reminder flag %q", flag)
	}
	return db.ClaimFlag(ctx, r.db, "appointments", string(flag), id)
}

func (r *repository) ReleaseReminder(ctx context.Context, id int, flag ReminderFlag) error {
	if !flag.Valid() {
		return fmt.Errorf("unknown reminder flag %q", flag)
	}
	return db.ReleaseFlag(ctx, r.db, "appointments", string(flag), id)
}
