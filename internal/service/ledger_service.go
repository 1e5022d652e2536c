package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/metrics"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into LedgerService to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// EntitlementSource is the minimal view the ledger needs from the account/
// subscription system. Implemented by repository.EntitlementRepository.
type EntitlementSource interface {
	Tier(ctx context.Context, userID uuid.UUID) (domain.EntitlementTier, error)
}

// Broadcaster is the minimal interface the ledger needs from the WS hub.
// Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastStakePlaced(ev *domain.StakeEvent)
	BroadcastStakeSettled(ev *domain.SettlementEvent)
}

// ──────────────────────────────────────────────────────────────────────────────
// LedgerService
// ──────────────────────────────────────────────────────────────────────────────

// LedgerService orchestrates budget reads and stake placement. All budget
// movement happens inside a single PostgreSQL transaction: the fresh read,
// the validation, the ticket insert and the ledger write commit together or
// not at all, so no caller-cached budget value can ever authorise a stake.
type LedgerService struct {
	db           *sqlx.DB
	ledgerRepo   *repository.LedgerRepository
	ticketRepo   *repository.TicketRepository
	scopes       *ScopeService
	entitlements EntitlementSource
	cfg          *config.Config
	broadcaster  Broadcaster // injected after the WS hub is built
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(
	db *sqlx.DB,
	ledgerRepo *repository.LedgerRepository,
	ticketRepo *repository.TicketRepository,
	scopes *ScopeService,
	entitlements EntitlementSource,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		db:           db,
		ledgerRepo:   ledgerRepo,
		ticketRepo:   ticketRepo,
		scopes:       scopes,
		entitlements: entitlements,
		cfg:          cfg,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *LedgerService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// AvailableBudget
// ──────────────────────────────────────────────────────────────────────────────

// AvailableBudget resolves the scope and returns a fresh availability
// snapshot. The value is a display hint only — placement re-validates under
// the row lock, never against this snapshot.
func (s *LedgerService) AvailableBudget(ctx context.Context, userID uuid.UUID, leagueType domain.ScopeType, leagueID *uuid.UUID) (domain.Availability, error) {
	handle, err := s.scopes.Resolve(ctx, userID, leagueType, leagueID)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("ledger_service.AvailableBudget: %w", err)
	}

	rec, err := s.ledgerRepo.GetOrCreate(ctx, userID, handle)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("ledger_service.AvailableBudget: %w", err)
	}

	tier, err := s.entitlements.Tier(ctx, userID)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("ledger_service.AvailableBudget: %w", err)
	}

	return domain.ComputeAvailability(rec, tier), nil
}

// ValidateStake is the pre-flight check the UI calls while the user types.
// It reads a fresh record but takes no lock; acceptance authority stays with
// PlaceStake.
func (s *LedgerService) ValidateStake(ctx context.Context, userID uuid.UUID, leagueType domain.ScopeType, leagueID *uuid.UUID, stake decimal.Decimal) error {
	handle, err := s.scopes.Resolve(ctx, userID, leagueType, leagueID)
	if err != nil {
		return fmt.Errorf("ledger_service.ValidateStake: %w", err)
	}
	rec, err := s.ledgerRepo.GetOrCreate(ctx, userID, handle)
	if err != nil {
		return fmt.Errorf("ledger_service.ValidateStake: %w", err)
	}
	tier, err := s.entitlements.Tier(ctx, userID)
	if err != nil {
		return fmt.Errorf("ledger_service.ValidateStake: %w", err)
	}
	return domain.ValidateStake(rec, tier, stake)
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceStake
// ──────────────────────────────────────────────────────────────────────────────

// PlaceStake validates the request against the freshest ledger state and
// atomically debits the stake, inserts the ticket, and writes the ledger —
// all inside one transaction holding the ledger row lock. Write conflicts
// are retried internally up to the configured bound.
func (s *LedgerService) PlaceStake(ctx context.Context, req domain.PlaceStakeRequest) (*domain.Ticket, error) {
	// ── 1. Input validation ──────────────────────────────────────────────────
	if !req.Stake.IsPositive() {
		return nil, domain.ErrInvalidStake
	}
	if req.TotalOdds.LessThan(domain.MinTotalOdds) {
		return nil, domain.ErrInvalidOdds
	}

	// ── 2. Scope + entitlement resolution ────────────────────────────────────
	handle, err := s.scopes.Resolve(ctx, req.UserID, req.LeagueType, req.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.PlaceStake: resolve scope: %w", err)
	}
	tier, err := s.entitlements.Tier(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.PlaceStake: entitlement: %w", err)
	}

	// Ensure the period record exists before entering the locked section.
	if _, err = s.ledgerRepo.GetOrCreate(ctx, req.UserID, handle); err != nil {
		return nil, fmt.Errorf("ledger_service.PlaceStake: get-or-create: %w", err)
	}

	// ── 3. Atomic read-validate-write, with bounded conflict retry ───────────
	var (
		ticket *domain.Ticket
		ev     *domain.StakeEvent
	)
	err = s.withConflictRetry(ctx, func() error {
		var attemptErr error
		ticket, ev, attemptErr = s.placeOnce(ctx, req, handle, tier)
		return attemptErr
	})
	if err != nil {
		observeRejection(err)
		return nil, err
	}

	metrics.StakesPlaced.WithLabelValues(string(handle.ScopeType)).Inc()
	if s.broadcaster != nil && ev != nil {
		s.broadcaster.BroadcastStakePlaced(ev)
	}
	return ticket, nil
}

// placeOnce runs one attempt of the place-stake transaction.
func (s *LedgerService) placeOnce(
	ctx context.Context,
	req domain.PlaceStakeRequest,
	handle domain.ScopeHandle,
	tier domain.EntitlementTier,
) (ticket *domain.Ticket, ev *domain.StakeEvent, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger_service.placeOnce: begin tx: %w: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock the ledger row and re-validate against the freshest state.
	rec, err := s.ledgerRepo.GetForUpdate(ctx, tx, req.UserID, handle)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger_service.placeOnce: lock record: %w", err)
	}
	if err = domain.ValidateStake(rec, tier, req.Stake); err != nil {
		return nil, nil, err
	}

	// Debit the stake now: pending tickets reserve budget immediately so
	// multiple simultaneously pending tickets cannot over-commit it.
	rec.ApplyPlacement(req.Stake)

	now := time.Now().UTC()
	ticket = &domain.Ticket{
		ID:           uuid.New(),
		UserID:       req.UserID,
		ScopeType:    handle.ScopeType,
		ScopeID:      handle.ScopeID,
		PeriodKey:    handle.PeriodKey,
		StakeAmount:  req.Stake,
		TotalOdds:    req.TotalOdds,
		PotentialWin: domain.PotentialWinFor(req.Stake, req.TotalOdds),
		Status:       domain.TicketPending,
		CreatedAt:    now,
	}
	if err = s.ticketRepo.Create(ctx, tx, ticket); err != nil {
		return nil, nil, fmt.Errorf("ledger_service.placeOnce: create ticket: %w", err)
	}

	if err = s.ledgerRepo.UpdateCAS(ctx, tx, rec); err != nil {
		return nil, nil, fmt.Errorf("ledger_service.placeOnce: write record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("ledger_service.placeOnce: commit: %w: %v", domain.ErrStoreUnavailable, err)
	}

	ev = &domain.StakeEvent{
		TicketID:        ticket.ID,
		UserID:          req.UserID,
		ScopeType:       handle.ScopeType,
		ScopeID:         handle.ScopeID,
		PeriodKey:       handle.PeriodKey,
		StakeAmount:     req.Stake,
		AvailableBudget: domain.ComputeAvailability(rec, tier).AvailableBudget,
		PlacedAt:        now,
	}
	return ticket, ev, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyTickets returns paginated tickets for a user.
func (s *LedgerService) GetMyTickets(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Ticket, error) {
	tickets, err := s.ticketRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.GetMyTickets: %w", err)
	}
	return tickets, nil
}

// GetTicketByID returns a single ticket only if it belongs to userID.
func (s *LedgerService) GetTicketByID(ctx context.Context, ticketID, userID uuid.UUID) (*domain.Ticket, error) {
	t, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.GetTicketByID: %w", err)
	}
	if t.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

// GetLedgerHistory returns a user's ledger records across all scopes and
// periods, newest first.
func (s *LedgerService) GetLedgerHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.LedgerRecord, error) {
	recs, err := s.ledgerRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger_service.GetLedgerHistory: %w", err)
	}
	return recs, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Conflict retry
// ──────────────────────────────────────────────────────────────────────────────

// withConflictRetry runs op, retrying on ErrWriteConflict up to the configured
// bound with linear backoff. Validation failures and infrastructure errors
// pass through untouched.
func (s *LedgerService) withConflictRetry(ctx context.Context, op func() error) error {
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

// observeRejection records a rejected stake by reason.
func observeRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrScopeBlocked):
		metrics.ScopesBlocked.Inc()
		metrics.StakesRejected.WithLabelValues("scope_blocked").Inc()
	case errors.Is(err, domain.ErrBelowMinimumStake):
		metrics.StakesRejected.WithLabelValues("below_minimum").Inc()
	case errors.Is(err, domain.ErrInsufficientBudget):
		metrics.StakesRejected.WithLabelValues("insufficient_budget").Inc()
	default:
		metrics.StakesRejected.WithLabelValues("other").Inc()
	}
}
