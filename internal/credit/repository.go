package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrLedgerNotFound = errors.New("no active credit ledger")
	ErrNotEligible    = errors.New("ledger not eligible for consumption")
)

const ledgerColumns = `id, member_id, source, total, used, valid_from, valid_until, status, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetActive(ctx context.Context, memberID int) (*Ledger, error) {
	var l Ledger
	err := r.db.GetContext(ctx, &l, `
		SELECT `+ledgerColumns+`
		FROM credit_ledgers
		WHERE member_id = $1 AND status = 'active'
		ORDER BY valid_until DESC
		LIMIT 1
	`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active ledger: %w", err)
	}
	return &l, nil
}

// ConsumeOne is a single guarded UPDATE; Postgres row locking serialises
// concurrent callers on the same ledger.
func (r *repository) ConsumeOne(ctx context.Context, memberID int, at time.Time) (*Ledger, error) {
	var l Ledger
	err := r.db.GetContext(ctx, &l, `
		UPDATE credit_ledgers
		SET used = used + 1, updated_at = NOW()
		WHERE member_id = $1 AND status = 'active' AND used < total AND valid_from <= $2 AND valid_until >= $2
		RETURNING `+ledgerColumns,
		memberID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotEligible
	}
	if err != nil {
		return nil, fmt.Errorf("consume credit: %w", err)
	}
	return &l, nil
}
