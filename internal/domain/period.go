package domain

import (
	"fmt"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Period keys
// ──────────────────────────────────────────────────────────────────────────────

// LifetimePeriodKey is the sentinel for scopes that never roll over: the
// ledger accumulates for the scope's entire lifetime.
const LifetimePeriodKey = "lifetime"

// CustomLeaguePeriodPolicy controls whether custom-league ledgers roll over.
// Product has not committed to one behaviour, so the policy is explicit
// configuration rather than a hard-coded default.
type CustomLeaguePeriodPolicy string

const (
	CustomPeriodLifetime CustomLeaguePeriodPolicy = "lifetime" // one ledger per league membership, ever
	CustomPeriodMonthly  CustomLeaguePeriodPolicy = "monthly"  // calendar-month reset like the public bet league
)

// IsValid returns true for a recognised policy value.
func (p CustomLeaguePeriodPolicy) IsValid() bool {
	return p == CustomPeriodLifetime || p == CustomPeriodMonthly
}

// MonthKey returns the canonical calendar-month period key ("YYYY-MM", UTC).
func MonthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// PeriodKeyFor derives the canonical period key for a scope.
//
//   - public bet league rolls over monthly on the calendar;
//   - the fantasy league's period is the externally supplied active round id —
//     the round boundary is decided by the competition, not the ledger;
//   - custom leagues follow the configured policy.
func PeriodKeyFor(scope ScopeType, now time.Time, activeRound string, policy CustomLeaguePeriodPolicy) (string, error) {
	switch scope {
	case ScopePublicBet:
		return MonthKey(now), nil
	case ScopePublicFantasy:
		if activeRound == "" {
			return "", ErrNoActiveRound
		}
		return activeRound, nil
	case ScopeCustomLeague:
		if policy == CustomPeriodMonthly {
			return MonthKey(now), nil
		}
		return LifetimePeriodKey, nil
	default:
		return "", fmt.Errorf("period key: unknown scope type %q", scope)
	}
}
