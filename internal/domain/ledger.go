// Package domain defines the core business entities and types for the
// tipleague virtual-currency wagering ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// ScopeType identifies one of the three independent competition scopes a user
// can hold a ledger in.
type ScopeType string

const (
	ScopePublicBet     ScopeType = "public_bet"     // platform-wide betting league
	ScopePublicFantasy ScopeType = "public_fantasy" // platform-wide fantasy-team league
	ScopeCustomLeague  ScopeType = "custom_league"  // user-created private league
)

// IsValid returns true if the scope type is recognised.
func (s ScopeType) IsValid() bool {
	return s == ScopePublicBet || s == ScopePublicFantasy || s == ScopeCustomLeague
}

// IsPublic returns true for the two platform-wide scopes (no league id, no
// membership check).
func (s ScopeType) IsPublic() bool {
	return s == ScopePublicBet || s == ScopePublicFantasy
}

var (
	// DefaultAllowance is the base budget every ledger starts a period with (%).
	DefaultAllowance = decimal.NewFromInt(100)

	// PremiumAllowance is the raised public-bet allowance for premium users (%).
	PremiumAllowance = decimal.NewFromInt(150)

	// BlockThreshold is the unclamped profit level at which a scope blocks.
	// base_allowance + cumulative_profit <= -100 → no further stakes.
	BlockThreshold = decimal.NewFromInt(-100)

	// MinStake is the smallest stake accepted, in percentage units.
	MinStake = decimal.NewFromInt(1)
)

// ──────────────────────────────────────────────────────────────────────────────
// EntitlementTier
// ──────────────────────────────────────────────────────────────────────────────

// EntitlementTier is the subscription view the ledger consumes from the
// account system. The ledger never mutates it.
type EntitlementTier struct {
	Tier          string `json:"tier"           db:"tier"`
	PremiumActive bool   `json:"premium_active" db:"premium_active"`
}

// FreeTier is the zero-value entitlement used when no subscription exists.
var FreeTier = EntitlementTier{Tier: "free", PremiumActive: false}

// AllowanceFor returns the base allowance a tier grants in a scope.
// Only the public bet league honours premium; the fantasy league grants every
// participant the same full allowance per round, and custom leagues likewise.
func AllowanceFor(scope ScopeType, tier EntitlementTier) decimal.Decimal {
	if scope == ScopePublicBet && tier.PremiumActive {
		return PremiumAllowance
	}
	return DefaultAllowance
}

// ──────────────────────────────────────────────────────────────────────────────
// LedgerRecord
// ──────────────────────────────────────────────────────────────────────────────

// LedgerRecord tracks one user's cumulative profit/loss within a single
// (scope, period). Records are created lazily on first use and never deleted;
// a new period key simply opens a fresh record, leaving prior periods as
// immutable history.
type LedgerRecord struct {
	ID               uuid.UUID       `json:"id"                db:"id"`
	UserID           uuid.UUID       `json:"user_id"           db:"user_id"`
	ScopeType        ScopeType       `json:"scope_type"        db:"scope_type"`
	ScopeID          *uuid.UUID      `json:"scope_id"          db:"scope_id"` // nil for public scopes
	PeriodKey        string          `json:"period_key"        db:"period_key"`
	BaseAllowance    decimal.Decimal `json:"base_allowance"    db:"base_allowance"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit" db:"cumulative_profit"`
	BetsCount        int             `json:"bets_count"        db:"bets_count"`
	WinsCount        int             `json:"wins_count"        db:"wins_count"`
	Version          int64           `json:"-"                 db:"version"`
	CreatedAt        time.Time       `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"        db:"updated_at"`
}

// AvailableBudget returns the stake room left given the effective base
// allowance: max(0, base + cumulative_profit).
func (r *LedgerRecord) AvailableBudget(base decimal.Decimal) decimal.Decimal {
	avail := base.Add(r.CumulativeProfit)
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// IsBlocked reports whether cumulative losses reached the -100% threshold.
// The check uses the unclamped sum: a scope can be blocked while its displayed
// available budget is only 0.
func (r *LedgerRecord) IsBlocked(base decimal.Decimal) bool {
	return base.Add(r.CumulativeProfit).LessThanOrEqual(BlockThreshold)
}

// ApplyPlacement reserves a stake: the full amount is debited the moment the
// ticket is accepted, so simultaneously pending tickets cannot over-commit
// the budget.
func (r *LedgerRecord) ApplyPlacement(stake decimal.Decimal) {
	r.CumulativeProfit = Round2(r.CumulativeProfit.Sub(stake))
	r.BetsCount++
}

// ApplyOutcome posts a ticket's final result. The stake was already debited at
// placement: a win credits the full potential win back, a loss changes nothing
// further.
func (r *LedgerRecord) ApplyOutcome(t *Ticket, outcome TicketStatus) {
	switch outcome {
	case TicketWon:
		r.CumulativeProfit = Round2(r.CumulativeProfit.Add(t.PotentialWin))
		r.WinsCount++
	case TicketLost:
		// stake debit at placement already represents the full loss
	}
}

// Round2 rounds to 2 decimal places. Applied after every profit mutation so
// floating drift cannot accumulate over many tickets.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Availability — read model returned by the budget calculator
// ──────────────────────────────────────────────────────────────────────────────

// Availability is the pre-flight budget view exposed to callers.
type Availability struct {
	AvailableBudget  decimal.Decimal `json:"available_budget"`
	CumulativeProfit decimal.Decimal `json:"current_profit"`
	BaseAllowance    decimal.Decimal `json:"base_allowance"`
	IsBlocked        bool            `json:"is_blocked"`
	BetsCount        int             `json:"bets_count"`
	WinsCount        int             `json:"wins_count"`
	PeriodKey        string          `json:"period_key"`
}

// ComputeAvailability is the pure budget calculator: deterministic, no side
// effects, safe to call repeatedly. The effective allowance depends on the
// scope and entitlement tier, never on caller-cached state.
func ComputeAvailability(r *LedgerRecord, tier EntitlementTier) Availability {
	base := AllowanceFor(r.ScopeType, tier)
	if r.BaseAllowance.GreaterThan(base) {
		// admin-raised allowance wins over the tier default
		base = r.BaseAllowance
	}
	return Availability{
		AvailableBudget:  r.AvailableBudget(base),
		CumulativeProfit: r.CumulativeProfit,
		BaseAllowance:    base,
		IsBlocked:        r.IsBlocked(base),
		BetsCount:        r.BetsCount,
		WinsCount:        r.WinsCount,
		PeriodKey:        r.PeriodKey,
	}
}

// ValidateStake checks a proposed stake against a fresh availability snapshot.
// Checks run in order and short-circuit: blocked scope, minimum floor, budget.
// Pure — the ledger service re-runs it under the row lock at commit time so a
// stale form-render value can never authorise a double spend.
func ValidateStake(r *LedgerRecord, tier EntitlementTier, stake decimal.Decimal) error {
	av := ComputeAvailability(r, tier)
	if av.IsBlocked {
		return ErrScopeBlocked
	}
	if stake.LessThan(MinStake) {
		return ErrBelowMinimumStake
	}
	if stake.GreaterThan(av.AvailableBudget) {
		return &InsufficientBudgetError{Available: av.AvailableBudget, Requested: stake}
	}
	return nil
}
