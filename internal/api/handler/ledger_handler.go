package handler

import (
	"errors"
	"net/http"

	"github.com/evetabi/tipleague/internal/api/middleware"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler serves budget lookup and stake pre-validation endpoints.
type LedgerHandler struct {
	ledgerSvc *service.LedgerService
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(ledgerSvc *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// parseScopeQuery reads league_type and the optional league_id query params.
func parseScopeQuery(c *gin.Context) (domain.ScopeType, *uuid.UUID, bool) {
	scope := domain.ScopeType(c.Query("league_type"))
	if !scope.IsValid() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_LEAGUE_TYPE",
			"league_type must be public_bet, public_fantasy or custom_league")
		return "", nil, false
	}

	var leagueID *uuid.UUID
	if raw := c.Query("league_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_LEAGUE_ID", "invalid league_id format")
			return "", nil, false
		}
		leagueID = &id
	}
	return scope, leagueID, true
}

// GetBudget godoc
// GET /api/ledger/budget?league_type=public_bet&league_id=uuid [JWT]
func (h *LedgerHandler) GetBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)

	scope, leagueID, ok := parseScopeQuery(c)
	if !ok {
		return
	}

	avail, err := h.ledgerSvc.AvailableBudget(c.Request.Context(), userID, scope, leagueID)
	if err != nil {
		respondScopeError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, avail)
}

// ValidateStake godoc
// POST /api/ledger/validate [JWT]
// Body: {"league_type":"public_bet","league_id":"uuid","stake":"25.00"}
//
// Pre-flight only: a passing validation here does not reserve budget.
func (h *LedgerHandler) ValidateStake(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		LeagueType string `json:"league_type" binding:"required"`
		LeagueID   string `json:"league_id"`
		Stake      string `json:"stake"       binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	scope := domain.ScopeType(body.LeagueType)
	if !scope.IsValid() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_LEAGUE_TYPE",
			"league_type must be public_bet, public_fantasy or custom_league")
		return
	}

	var leagueID *uuid.UUID
	if body.LeagueID != "" {
		id, err := uuid.Parse(body.LeagueID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_LEAGUE_ID", "invalid league_id format")
			return
		}
		leagueID = &id
	}

	stake, err := decimal.NewFromString(body.Stake)
	if err != nil || !stake.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STAKE", "stake must be a positive decimal string")
		return
	}

	if err := h.ledgerSvc.ValidateStake(c.Request.Context(), userID, scope, leagueID, stake); err != nil {
		respondStakeError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"valid": true})
}

// GetHistory godoc
// GET /api/ledger/history?page=1&limit=20 [JWT]
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	recs, err := h.ledgerSvc.GetLedgerHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch ledger history")
		return
	}
	respondList(c, recs, len(recs), page, limit)
}

// ──────────────────────────────────────────────────────────────────────────────
// Error mapping shared by ledger and ticket handlers
// ──────────────────────────────────────────────────────────────────────────────

// respondScopeError maps scope resolution failures to HTTP responses.
func respondScopeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidScope):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SCOPE", "invalid or incomplete scope")
	case errors.Is(err, domain.ErrLeagueNotFound):
		respondError(c, http.StatusNotFound, "ERR_LEAGUE_NOT_FOUND", "league not found")
	case errors.Is(err, domain.ErrNotAMember):
		respondError(c, http.StatusForbidden, "ERR_NOT_A_MEMBER", "you are not a member of this league")
	case errors.Is(err, domain.ErrNoActiveRound):
		respondError(c, http.StatusConflict, "ERR_NO_ACTIVE_ROUND", "no active fantasy round")
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not resolve scope")
	}
}

// respondStakeError maps validation and placement failures to HTTP responses.
// Scope errors fall through to respondScopeError.
func respondStakeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrScopeBlocked):
		respondError(c, http.StatusForbidden, "ERR_SCOPE_BLOCKED", err.Error())
	case errors.Is(err, domain.ErrBelowMinimumStake):
		respondError(c, http.StatusBadRequest, "ERR_BELOW_MINIMUM_STAKE", err.Error())
	case errors.Is(err, domain.ErrInsufficientBudget):
		var ibe *domain.InsufficientBudgetError
		msg := domain.ErrInsufficientBudget.Error()
		if errors.As(err, &ibe) {
			msg = ibe.Error()
		}
		respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BUDGET", msg)
	case errors.Is(err, domain.ErrInvalidStake):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STAKE", err.Error())
	case errors.Is(err, domain.ErrInvalidOdds):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ODDS", err.Error())
	case errors.Is(err, domain.ErrWriteConflict):
		respondError(c, http.StatusConflict, "ERR_WRITE_CONFLICT", "concurrent update, please retry")
	default:
		respondScopeError(c, err)
	}
}
