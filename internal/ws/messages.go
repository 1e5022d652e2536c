// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/evetabi/tipleague/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeStakePlaced  MsgType = "stake_placed"
	MsgTypeStakeSettled MsgType = "stake_settled"
	MsgTypeRollover     MsgType = "rollover"
	MsgTypeError        MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// StakePlacedMessage — sent to the placing user after a stake commits.
// ──────────────────────────────────────────────────────────────────────────────

// StakePlacedMessage confirms the debit and carries the fresh budget so the
// client can update its balance widget without a follow-up request.
type StakePlacedMessage struct {
	Type      MsgType            `json:"type"`
	Event     *domain.StakeEvent `json:"event"`
	Timestamp time.Time          `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// StakeSettledMessage — sent to the ticket owner when settlement commits.
// ──────────────────────────────────────────────────────────────────────────────

// StakeSettledMessage carries the outcome and the post-settlement ledger view.
type StakeSettledMessage struct {
	Type      MsgType                 `json:"type"`
	Event     *domain.SettlementEvent `json:"event"`
	Timestamp time.Time               `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// RolloverMessage — broadcast to everyone when a public period rolls over.
// ──────────────────────────────────────────────────────────────────────────────

// RolloverMessage announces the new period key for a public scope.
type RolloverMessage struct {
	Type      MsgType               `json:"type"`
	Event     *domain.RolloverEvent `json:"event"`
	Timestamp time.Time             `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
