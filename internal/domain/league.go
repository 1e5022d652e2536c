package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// League / Membership — external registry, referenced not owned
// ──────────────────────────────────────────────────────────────────────────────

// League is the read model of a user-created private league. The ledger never
// mutates leagues; it only authorises scope lookups against them.
type League struct {
	ID         uuid.UUID `json:"id"          db:"id"`
	Name       string    `json:"name"        db:"name"`
	OwnerID    uuid.UUID `json:"owner_id"    db:"owner_id"`
	LeagueType string    `json:"league_type" db:"league_type"`
	MinMembers int       `json:"min_members" db:"min_members"`
	MaxMembers int       `json:"max_members" db:"max_members"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Membership links a user to a custom league.
type Membership struct {
	LeagueID uuid.UUID `json:"league_id" db:"league_id"`
	UserID   uuid.UUID `json:"user_id"   db:"user_id"`
	IsActive bool      `json:"is_active" db:"is_active"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ScopeHandle
// ──────────────────────────────────────────────────────────────────────────────

// ScopeHandle is a resolved, authorised ledger scope ready to feed into the
// ledger store: the scope resolver has already verified league existence and
// membership and pinned the current period key.
type ScopeHandle struct {
	ScopeType ScopeType  `json:"scope_type"`
	ScopeID   *uuid.UUID `json:"scope_id,omitempty"`
	PeriodKey string     `json:"period_key"`
}
