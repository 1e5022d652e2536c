package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// TicketStatus represents the lifecycle state of a prediction ticket.
// Transitions are terminal: pending → won or pending → lost, exactly once.
type TicketStatus string

const (
	TicketPending TicketStatus = "pending"
	TicketWon     TicketStatus = "won"
	TicketLost    TicketStatus = "lost"
)

// IsTerminal returns true for a resolved status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketWon || s == TicketLost
}

// Outcome is the externally determined sporting result fed into settlement.
// The ledger only observes the transition; it never decides the outcome.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// IsValid returns true if the outcome is a recognised result.
func (o Outcome) IsValid() bool {
	return o == OutcomeWon || o == OutcomeLost
}

// Status converts an outcome into the ticket status it produces.
func (o Outcome) Status() TicketStatus {
	if o == OutcomeWon {
		return TicketWon
	}
	return TicketLost
}

// MinTotalOdds is the floor for the product of per-leg decimal odds.
var MinTotalOdds = decimal.NewFromInt(1)

// ──────────────────────────────────────────────────────────────────────────────
// Ticket
// ──────────────────────────────────────────────────────────────────────────────

// Ticket is a single prediction submission. The scope and period key are
// captured at creation time: settlement always posts to the record the ticket
// was opened against, even when it resolves after a period rollover.
type Ticket struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	UserID       uuid.UUID       `json:"user_id"       db:"user_id"`
	ScopeType    ScopeType       `json:"scope_type"    db:"scope_type"`
	ScopeID      *uuid.UUID      `json:"scope_id"      db:"scope_id"`
	PeriodKey    string          `json:"period_key"    db:"period_key"`
	StakeAmount  decimal.Decimal `json:"stake_amount"  db:"stake_amount"`
	TotalOdds    decimal.Decimal `json:"total_odds"    db:"total_odds"`
	PotentialWin decimal.Decimal `json:"potential_win" db:"potential_win"`
	Status       TicketStatus    `json:"status"        db:"status"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
	SettledAt    *time.Time      `json:"settled_at"    db:"settled_at"`
}

// IsPending returns true while the ticket awaits its sporting result.
func (t *Ticket) IsPending() bool {
	return t.Status == TicketPending
}

// PotentialWinFor computes round2(stake × total odds).
func PotentialWinFor(stake, totalOdds decimal.Decimal) decimal.Decimal {
	return Round2(stake.Mul(totalOdds))
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceStakeRequest — value object used by LedgerService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceStakeRequest carries the validated inputs for placing a stake.
type PlaceStakeRequest struct {
	UserID     uuid.UUID
	LeagueType ScopeType
	LeagueID   *uuid.UUID // required for custom leagues, nil otherwise
	Stake      decimal.Decimal
	TotalOdds  decimal.Decimal
}

// TicketResponse is the API-safe view of a ticket.
type TicketResponse struct {
	ID           uuid.UUID       `json:"id"`
	ScopeType    ScopeType       `json:"scope_type"`
	ScopeID      *uuid.UUID      `json:"scope_id,omitempty"`
	PeriodKey    string          `json:"period_key"`
	StakeAmount  decimal.Decimal `json:"stake_amount"`
	TotalOdds    decimal.Decimal `json:"total_odds"`
	PotentialWin decimal.Decimal `json:"potential_win"`
	Status       TicketStatus    `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
}

// ToResponse converts a Ticket to its API response form.
func (t *Ticket) ToResponse() TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		ScopeType:    t.ScopeType,
		ScopeID:      t.ScopeID,
		PeriodKey:    t.PeriodKey,
		StakeAmount:  t.StakeAmount,
		TotalOdds:    t.TotalOdds,
		PotentialWin: t.PotentialWin,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		SettledAt:    t.SettledAt,
	}
}
