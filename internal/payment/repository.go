package payment

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

func (r *repository) ListPending(ctx context.Context, after, before time.Time, flag Flag) ([]Notice, error) {
	if !flag.Valid() {
		return nil, fmt.Errorf("unknown payment flag %q", flag)
	}

	query := `
		SELECT p.id, p.amount_cents, p.currency, p.description, p.created_at,
			u.name AS member_name, u.email AS member_email
		FROM payments p
		JOIN users u ON u.id = p.member_id
		WHERE p.status = 'pending' AND p.created_at <= $1 AND p.` + string(flag) + ` = FALSE`
	args := []interface{}{before}
	if !after.IsZero() {
		query += ` AND p.created_at > $2`
		args = append(args, after)
	}
	query += ` ORDER BY p.created_at`

	out := []Notice{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return out, nil
}

func (r *repository) Claim(ctx context.Context, id int, flag Flag) (bool, error) {
	if !flag.Valid() {
		return false, fmt.Errorf("unknown payment flag %q", flag)
	}
	return db.ClaimFlag(ctx, r.db, "payments", string(flag), id)
}

func (r *repository) Release(ctx context.Context, id int, flag Flag) error {
	if !flag.Valid() {
		return fmt.Errorf("unknown payment flag %q", flag)
	}
	return db.ReleaseFlag(ctx, r.db, "payments", string(flag), id)
}
