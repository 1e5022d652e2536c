package handler

import (
	"net/http"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerAdminHandler serves ledger inspection and allowance adjustment.
type LedgerAdminHandler struct {
	ledgerRepo *repository.LedgerRepository
	cfg        *config.Config
}

// NewLedgerAdminHandler creates a LedgerAdminHandler.
func NewLedgerAdminHandler(ledgerRepo *repository.LedgerRepository, cfg *config.Config) *LedgerAdminHandler {
	return &LedgerAdminHandler{ledgerRepo: ledgerRepo, cfg: cfg}
}

// ListByUser godoc
// GET /admin/ledgers/user/:id?page=1&limit=50
func (h *LedgerAdminHandler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_USER_ID", "invalid user id")
		return
	}
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	recs, err := h.ledgerRepo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch ledger records")
		return
	}
	respondList(c, recs, len(recs), page, limit)
}

// ListByScope godoc
// GET /admin/ledgers/scope?scope_type=custom_league&scope_id=uuid&period_key=lifetime
func (h *LedgerAdminHandler) ListByScope(c *gin.Context) {
	scopeType := domain.ScopeType(c.Query("scope_type"))
	if !scopeType.IsValid() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_SCOPE_TYPE",
			"scope_type must be public_bet, public_fantasy or custom_league")
		return
	}
	periodKey := c.Query("period_key")
	if periodKey == "" {
		respondError(c, http.StatusBadRequest, "ERR_MISSING_PERIOD_KEY", "period_key is required")
		return
	}

	var scopeID *uuid.UUID
	if raw := c.Query("scope_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SCOPE_ID", "invalid scope_id format")
			return
		}
		scopeID = &id
	}

	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	handle := domain.ScopeHandle{ScopeType: scopeType, ScopeID: scopeID, PeriodKey: periodKey}
	recs, err := h.ledgerRepo.ListByScope(c.Request.Context(), handle, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch ledger records")
		return
	}
	respondList(c, recs, len(recs), page, limit)
}

// AdjustAllowance godoc
// POST /admin/ledgers/:id/allowance
// Body: {"base_allowance":"200.00"}
//
// Raising the allowance is how support unblocks a record without touching its
// profit history.
func (h *LedgerAdminHandler) AdjustAllowance(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_RECORD_ID", "invalid ledger record id")
		return
	}

	var body struct {
		BaseAllowance string `json:"base_allowance" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	allowance, err := decimal.NewFromString(body.BaseAllowance)
	if err != nil || allowance.IsNegative() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ALLOWANCE",
			"base_allowance must be a non-negative decimal string")
		return
	}

	if err := h.ledgerRepo.AdminAdjustAllowance(c.Request.Context(), recordID, allowance); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"adjusted": true, "base_allowance": allowance})
}
