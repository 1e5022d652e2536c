package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Domain events — pushed to subscribers, never ambient global state
// ──────────────────────────────────────────────────────────────────────────────

// SettlementEvent is emitted after a ticket settlement commits, so downstream
// views (balance widgets, standings) can refresh without polling.
type SettlementEvent struct {
	TicketID        uuid.UUID       `json:"ticket_id"`
	UserID          uuid.UUID       `json:"user_id"`
	ScopeType       ScopeType       `json:"scope_type"`
	ScopeID         *uuid.UUID      `json:"scope_id,omitempty"`
	PeriodKey       string          `json:"period_key"`
	Outcome         TicketStatus    `json:"outcome"`
	NewProfit       decimal.Decimal `json:"new_profit"`
	AvailableBudget decimal.Decimal `json:"available_budget"`
	IsBlocked       bool            `json:"is_blocked"`
	SettledAt       time.Time       `json:"settled_at"`
}

// StakeEvent is emitted after a stake placement commits.
type StakeEvent struct {
	TicketID        uuid.UUID       `json:"ticket_id"`
	UserID          uuid.UUID       `json:"user_id"`
	ScopeType       ScopeType       `json:"scope_type"`
	ScopeID         *uuid.UUID      `json:"scope_id,omitempty"`
	PeriodKey       string          `json:"period_key"`
	StakeAmount     decimal.Decimal `json:"stake_amount"`
	AvailableBudget decimal.Decimal `json:"available_budget"`
	PlacedAt        time.Time       `json:"placed_at"`
}

// RolloverEvent announces a public-bet period rollover: fresh records will be
// created lazily under the new period key on first use.
type RolloverEvent struct {
	ScopeType   ScopeType `json:"scope_type"`
	PeriodKey   string    `json:"period_key"`
	AnnouncedAt time.Time `json:"announced_at"`
}
