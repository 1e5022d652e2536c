package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Stake validation errors
var (
	// ErrScopeBlocked is returned when cumulative losses reached the -100%
	// threshold; recoverable only by period rollover or pending wins settling.
	ErrScopeBlocked = errors.New("scope is blocked: loss limit reached")

	// ErrBelowMinimumStake is returned when the stake is under the 1% floor.
	ErrBelowMinimumStake = errors.New("stake is below the minimum of 1%")

	// ErrInsufficientBudget is returned when the stake exceeds the available
	// budget. Concrete instances are *InsufficientBudgetError carrying the
	// amounts for user display.
	ErrInsufficientBudget = errors.New("stake exceeds available budget")

	// ErrInvalidStake is returned when the stake amount is not a positive number.
	ErrInvalidStake = errors.New("stake amount must be positive")

	// ErrInvalidOdds is returned when total odds are below 1.
	ErrInvalidOdds = errors.New("total odds must be at least 1")

	// ErrInvalidOutcome is returned when a settlement outcome is not won/lost.
	ErrInvalidOutcome = errors.New("invalid outcome: must be won or lost")
)

// Scope resolution errors
var (
	// ErrLeagueNotFound is returned when the requested custom league does not exist.
	ErrLeagueNotFound = errors.New("league not found")

	// ErrNotAMember is returned when the user has no active membership in the
	// requested custom league.
	ErrNotAMember = errors.New("user is not a member of this league")

	// ErrNoActiveRound is returned when the fantasy competition has no active
	// round to key the ledger period on.
	ErrNoActiveRound = errors.New("no active fantasy round")

	// ErrInvalidScope is returned for an unrecognised league type or a custom
	// league request without a league id.
	ErrInvalidScope = errors.New("invalid scope: unknown league type or missing league id")
)

// Ledger / settlement errors
var (
	// ErrLedgerNotFound is returned when no ledger record matches the key.
	ErrLedgerNotFound = errors.New("ledger record not found")

	// ErrTicketNotFound is returned when no ticket matches the given id.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrAlreadySettled is returned by the settlement idempotence guard; callers
	// treat it as a no-op success, not an error to display.
	ErrAlreadySettled = errors.New("ticket is already settled")

	// ErrWriteConflict is an optimistic-concurrency collision on a ledger write.
	// Retried internally with bounded backoff before surfacing to the caller.
	ErrWriteConflict = errors.New("ledger write conflict")

	// ErrStoreUnavailable wraps datastore I/O failures. Surfaced as a retryable
	// infrastructure error, never silently treated as insufficient budget.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// InsufficientBudgetError
// ──────────────────────────────────────────────────────────────────────────────

// InsufficientBudgetError reports a stake above the available budget together
// with both amounts, rounded to one decimal, for user display.
type InsufficientBudgetError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

// Error implements the error interface.
func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf("insufficient budget: %s%% available, %s%% requested",
		e.Available.StringFixed(1), e.Requested.StringFixed(1))
}

// Is makes errors.Is(err, ErrInsufficientBudget) match.
func (e *InsufficientBudgetError) Is(target error) bool {
	return target == ErrInsufficientBudget
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrLeagueNotFound,
	ErrLedgerNotFound,
	ErrTicketNotFound,
	ErrNoActiveRound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for terminal stake-validation failures that the
// caller can fix by adjusting the request.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrScopeBlocked,
		ErrBelowMinimumStake,
		ErrInsufficientBudget,
		ErrInvalidStake,
		ErrInvalidOdds,
		ErrInvalidOutcome,
		ErrInvalidScope,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrAlreadySettled,
		ErrWriteConflict,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrNotAMember,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
