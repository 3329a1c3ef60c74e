package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/db"

	"github.com/jmoiron/sqlx"
)

var ErrMembershipNotFound = errors.New("membership not found")

const noticeSelect = `
		SELECT ms.id, ms.plan, ms.end_date, u.name AS member_name, u.email AS member_email
		FROM memberships ms
		JOIN users u ON u.id = ms.member_id`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetActiveByMember(ctx context.Context, memberID int) (*Membership, error) {
	m := &Membership{}
	err := r.db.GetContext(ctx, m, `
		SELECT id, member_id, plan, start_date, end_date, status, expiry_notice_sent, created_at, updated_at
		FROM memberships
		WHERE member_id = $1 AND status = 'active'
		ORDER BY end_date DESC
		LIMIT 1
	`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	return m, err
}

func (r *repository) ListExpiring(ctx context.Context, now, until time.Time) ([]Notice, error) {
	out := []Notice{}
	err := r.db.SelectContext(ctx, &out, noticeSelect+`
		WHERE ms.status = 'active' AND ms.end_date > $1 AND ms.end_date <= $2 AND ms.expiry_notice_sent = FALSE
		ORDER BY ms.end_date
	`, now, until)
	if err != nil {
		return nil, fmt.Errorf("list expiring memberships: %w", err)
	}
	return out, nil
}

func (r *repository) ListLapsed(ctx context.Context, now time.Time) ([]Notice, error) {
	out := []Notice{}
	err := r.db.SelectContext(ctx, &out, noticeSelect+`
		WHERE ms.status = 'active' AND ms.end_date < $1
		ORDER BY ms.end_date
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list lapsed memberships: %w", err)
	}
	return out, nil
}

func (r *repository) Expire(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE memberships SET status = 'expired', updated_at = NOW() WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return false, fmt.Errorf("expire membership: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *repository) ClaimExpiryNotice(ctx context.Context, id int) (bool, error) {
	return db.ClaimFlag(ctx, r.db, "memberships", "expiry_notice_sent", id)
}

func (r *repository) ReleaseExpiryNotice(ctx context.Context, id int) error {
	return db.ReleaseFlag(ctx, r.db, "memberships", "expiry_notice_sent", id)
}
