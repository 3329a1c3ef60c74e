package payment

import (
	"context"
	"time"
)

type Repository interface {
	// ListPending returns pending payments created in (after, before] whose
	// flag is still unset. A zero after means no lower bound.
	ListPending(ctx context.Context, after, before time.Time, flag Flag) ([]Notice, error)
	Claim(ctx context.Context, id int, flag Flag) (bool, error)
	Release(ctx context.Context, id int, flag Flag) error
}
