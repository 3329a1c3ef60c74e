package credit

import (
	"context"
	"errors"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/metrics"
)

type Service interface {
	IsWithinValidity(ctx context.Context, memberID int, at time.Time) (bool, error)
	ConsumeOne(ctx context.Context, memberID int) (ConsumeResult, error)
	GetActive(ctx context.Context, memberID int) (*Ledger, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository, clk clock.Clock) Service {
	return &service{repo: repo, clock: clk}
}

func (s *service) IsWithinValidity(ctx context.Context, memberID int, at time.Time) (bool, error) {
	l, err := s.repo.GetActive(ctx, memberID)
	if errors.Is(err, ErrLedgerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return l.Covers(at), nil
}

// ConsumeOne never reports ineligibility as an error. Missing, expired and
// exhausted ledgers come back as Consumed=false with a reason.
func (s *service) ConsumeOne(ctx context.Context, memberID int) (ConsumeResult, error) {
	now := s.clock.Now()

	l, err := s.repo.ConsumeOne(ctx, memberID, now)
	if err == nil {
		metrics.RecordCreditConsumption(ReasonConsumed)
		logger.Info("credit consumed", "member_id", memberID, "ledger_id", l.ID, "used", l.Used, "total", l.Total)
		return ConsumeResult{Consumed: true, Reason: ReasonConsumed, Ledger: l}, nil
	}
	if !errors.Is(err, ErrNotEligible) {
		metrics.RecordCreditConsumption("error")
		return ConsumeResult{}, err
	}

	res := ConsumeResult{Reason: ReasonNoLedger}
	active, err := s.repo.GetActive(ctx, memberID)
	switch {
	case errors.Is(err, ErrLedgerNotFound):
	case err != nil:
		// The decision was already made by the guarded update; only the label is unknown.
		logger.Warn("could not classify skipped credit consumption", "member_id", memberID, "error", err)
		res.Reason = ReasonExhausted
	case !active.Covers(now):
		res.Reason = ReasonOutsideWindow
		res.Ledger = active
	default:
		res.Reason = ReasonExhausted
		res.Ledger = active
	}

	metrics.RecordCreditConsumption(res.Reason)
	logger.Info("credit not consumed", "member_id", memberID, "reason", res.Reason)
	return res, nil
}

func (s *service) GetActive(ctx context.Context, memberID int) (*Ledger, error) {
	return s.repo.GetActive(ctx, memberID)
}
