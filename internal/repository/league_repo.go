package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/tipleague/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LeagueRepository is the read-only view onto the league registry the scope
// resolver authorises against. The ledger core never mutates leagues or
// memberships — those belong to the league-management system.
type LeagueRepository struct {
	db *sqlx.DB
}

// NewLeagueRepository creates a new LeagueRepository.
func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

// GetByID fetches a custom league.
func (r *LeagueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.League, error) {
	var l domain.League
	err := r.db.GetContext(ctx, &l, `SELECT * FROM leagues WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeagueNotFound
		}
		return nil, fmt.Errorf("league_repo.GetByID: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &l, nil
}

// IsMember reports whether the user holds an active membership in the league.
func (r *LeagueRepository) IsMember(ctx context.Context, userID, leagueID uuid.UUID) (bool, error) {
	var active bool
	err := r.db.GetContext(ctx, &active, `
		SELECT is_active FROM league_members
		WHERE league_id = $1 AND user_id = $2`,
		leagueID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("league_repo.IsMember: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return active, nil
}

// MemberCount returns the number of active members, for backoffice views.
func (r *LeagueRepository) MemberCount(ctx context.Context, leagueID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM league_members
		WHERE league_id = $1 AND is_active`,
		leagueID)
	if err != nil {
		return 0, fmt.Errorf("league_repo.MemberCount: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// ActiveRound returns the fantasy competition's current round identifier.
// The round boundary is decided by the competition, not the ledger; the
// ledger only keys fantasy periods on it.
func (r *LeagueRepository) ActiveRound(ctx context.Context) (string, error) {
	var round string
	err := r.db.GetContext(ctx, &round, `
		SELECT round_key FROM fantasy_rounds
		WHERE is_active
		ORDER BY starts_at DESC
		LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNoActiveRound
		}
		return "", fmt.Errorf("league_repo.ActiveRound: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return round, nil
}
