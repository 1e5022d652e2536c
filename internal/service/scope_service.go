package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into ScopeService
// ──────────────────────────────────────────────────────────────────────────────

// LeagueRegistry is the minimal view ScopeService needs from the league
// system. Implemented by repository.LeagueRepository.
type LeagueRegistry interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.League, error)
	IsMember(ctx context.Context, userID, leagueID uuid.UUID) (bool, error)
	ActiveRound(ctx context.Context) (string, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// ScopeService
// ──────────────────────────────────────────────────────────────────────────────

// ScopeService maps a caller-supplied (league type, league id) pair onto a
// concrete, authorised ledger scope with its current period key pinned.
type ScopeService struct {
	leagues LeagueRegistry
	cfg     *config.Config
	now     func() time.Time // injectable clock for tests
}

// NewScopeService creates a ScopeService.
func NewScopeService(leagues LeagueRegistry, cfg *config.Config) *ScopeService {
	return &ScopeService{
		leagues: leagues,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Resolve authorises and resolves a scope request.
//
// Public scopes always resolve without a membership check. Custom leagues
// require the league to exist and the user to hold an active membership.
func (s *ScopeService) Resolve(ctx context.Context, userID uuid.UUID, leagueType domain.ScopeType, leagueID *uuid.UUID) (domain.ScopeHandle, error) {
	if !leagueType.IsValid() {
		return domain.ScopeHandle{}, domain.ErrInvalidScope
	}

	var (
		scopeID     *uuid.UUID
		activeRound string
	)

	switch leagueType {
	case domain.ScopePublicBet:
		// nothing to authorise

	case domain.ScopePublicFantasy:
		round, err := s.leagues.ActiveRound(ctx)
		if err != nil {
			return domain.ScopeHandle{}, fmt.Errorf("scope_service.Resolve: active round: %w", err)
		}
		activeRound = round

	case domain.ScopeCustomLeague:
		if leagueID == nil {
			return domain.ScopeHandle{}, domain.ErrInvalidScope
		}
		if _, err := s.leagues.GetByID(ctx, *leagueID); err != nil {
			return domain.ScopeHandle{}, fmt.Errorf("scope_service.Resolve: league lookup: %w", err)
		}
		member, err := s.leagues.IsMember(ctx, userID, *leagueID)
		if err != nil {
			return domain.ScopeHandle{}, fmt.Errorf("scope_service.Resolve: membership: %w", err)
		}
		if !member {
			return domain.ScopeHandle{}, domain.ErrNotAMember
		}
		scopeID = leagueID
	}

	periodKey, err := domain.PeriodKeyFor(
		leagueType,
		s.now(),
		activeRound,
		domain.CustomLeaguePeriodPolicy(s.cfg.Ledger.CustomLeaguePeriod),
	)
	if err != nil {
		return domain.ScopeHandle{}, fmt.Errorf("scope_service.Resolve: period key: %w", err)
	}

	return domain.ScopeHandle{
		ScopeType: leagueType,
		ScopeID:   scopeID,
		PeriodKey: periodKey,
	}, nil
}
