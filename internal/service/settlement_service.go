package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/metrics"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ──────────────────────────────────────────────────────────────────────────────
// SettlementService
// ──────────────────────────────────────────────────────────────────────────────

// SettlementService applies ticket outcomes to the ledger exactly once.
// Idempotence rests on two locks inside one transaction: the settlement
// marker row (insert-if-absent, keyed by ticket id) and the pending-only
// ticket status transition. A ticket that reaches a terminal state can never
// move its ledger again, no matter how many times a result is redelivered.
type SettlementService struct {
	db           *sqlx.DB
	ledgerRepo   *repository.LedgerRepository
	ticketRepo   *repository.TicketRepository
	entitlements EntitlementSource
	cfg          *config.Config
	broadcaster  Broadcaster
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	db *sqlx.DB,
	ledgerRepo *repository.LedgerRepository,
	ticketRepo *repository.TicketRepository,
	entitlements EntitlementSource,
	cfg *config.Config,
) *SettlementService {
	return &SettlementService{
		db:           db,
		ledgerRepo:   ledgerRepo,
		ticketRepo:   ticketRepo,
		entitlements: entitlements,
		cfg:          cfg,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *SettlementService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// SettleTicket
// ──────────────────────────────────────────────────────────────────────────────

// SettleTicket settles one ticket with the given outcome. Safe to call any
// number of times: the first call applies the profit effect, every later
// call returns ErrAlreadySettled without touching the ledger.
func (s *SettlementService) SettleTicket(ctx context.Context, ticketID uuid.UUID, outcome domain.Outcome) error {
	if !outcome.IsValid() {
		return domain.ErrInvalidOutcome
	}

	err := s.withConflictRetry(ctx, func() error {
		return s.settleOnce(ctx, ticketID, outcome)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			metrics.SettlementsDuplicate.Inc()
		}
		return err
	}

	metrics.SettlementsApplied.WithLabelValues(string(outcome)).Inc()
	return nil
}

// settleOnce runs one attempt of the settlement transaction.
func (s *SettlementService) settleOnce(ctx context.Context, ticketID uuid.UUID, outcome domain.Outcome) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settlement_service.settleOnce: begin tx: %w: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the ticket first; ticket-then-ledger is the lock order everywhere.
	ticket, err := s.ticketRepo.GetForUpdate(ctx, tx, ticketID)
	if err != nil {
		return fmt.Errorf("settlement_service.settleOnce: lock ticket: %w", err)
	}
	if ticket.Status.IsTerminal() {
		return domain.ErrAlreadySettled
	}

	// The ticket carries its ledger handle from placement time, so late
	// settlements land on the period the stake was debited from, not on
	// whatever period is current now.
	handle := domain.ScopeHandle{
		ScopeType: ticket.ScopeType,
		ScopeID:   ticket.ScopeID,
		PeriodKey: ticket.PeriodKey,
	}
	rec, err := s.ledgerRepo.GetForUpdate(ctx, tx, ticket.UserID, handle)
	if err != nil {
		return fmt.Errorf("settlement_service.settleOnce: lock record: %w", err)
	}

	// Settlement marker: insert-if-absent keyed by ticket id. A concurrent
	// settlement that already inserted it makes applied=false here.
	applied, err := s.ledgerRepo.RecordSettlement(ctx, tx, ticket.ID, rec.ID, outcome)
	if err != nil {
		return fmt.Errorf("settlement_service.settleOnce: record settlement: %w", err)
	}
	if !applied {
		return domain.ErrAlreadySettled
	}

	rec.ApplyOutcome(ticket, outcome.Status())

	if err = s.ticketRepo.MarkSettled(ctx, tx, ticket.ID, outcome.Status()); err != nil {
		return fmt.Errorf("settlement_service.settleOnce: mark settled: %w", err)
	}
	if err = s.ledgerRepo.UpdateCAS(ctx, tx, rec); err != nil {
		return fmt.Errorf("settlement_service.settleOnce: write record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("settlement_service.settleOnce: commit: %w: %v", domain.ErrStoreUnavailable, err)
	}

	if s.broadcaster != nil {
		tier, terr := s.entitlements.Tier(ctx, ticket.UserID)
		if terr != nil {
			tier = domain.FreeTier
		}
		avail := domain.ComputeAvailability(rec, tier)
		s.broadcaster.BroadcastStakeSettled(&domain.SettlementEvent{
			TicketID:        ticket.ID,
			UserID:          ticket.UserID,
			ScopeType:       ticket.ScopeType,
			ScopeID:         ticket.ScopeID,
			PeriodKey:       ticket.PeriodKey,
			Outcome:         outcome.Status(),
			NewProfit:       rec.CumulativeProfit,
			AvailableBudget: avail.AvailableBudget,
			IsBlocked:       avail.IsBlocked,
			SettledAt:       time.Now().UTC(),
		})
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SettleResolved — results-feed sweep
// ──────────────────────────────────────────────────────────────────────────────

// SettleResolved settles every pending ticket that has a staged result,
// up to batchSize per sweep. One bad ticket does not abort the batch.
// Returns the number of tickets settled this sweep.
func (s *SettlementService) SettleResolved(ctx context.Context, batchSize int) (int, error) {
	pending, err := s.ticketRepo.ListPendingWithResults(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("settlement_service.SettleResolved: %w", err)
	}

	settled := 0
	for _, p := range pending {
		if err := s.SettleTicket(ctx, p.TicketID, p.Outcome); err != nil {
			// Duplicates are normal when a manual settle raced the sweep.
			if errors.Is(err, domain.ErrAlreadySettled) {
				continue
			}
			slog.Error("settlement sweep: ticket failed",
				"ticket_id", p.TicketID,
				"outcome", p.Outcome,
				"error", err,
			)
			continue
		}
		settled++
	}
	return settled, nil
}

// withConflictRetry mirrors the placement-side retry: bounded attempts with
// linear backoff on version conflicts.
func (s *SettlementService) withConflictRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Ledger.WriteRetries; attempt++ {
		lastErr = op()
		if !errors.Is(lastErr, domain.ErrWriteConflict) {
			return lastErr
		}
		metrics.LedgerWriteConflicts.Inc()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, ctx.Err())
		case <-time.After(s.cfg.Ledger.RetryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("retries exhausted: %w", lastErr)
}
