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

// TicketHandler serves stake placement, ticket lookup, and settlement.
type TicketHandler struct {
	ledgerSvc     *service.LedgerService
	settlementSvc *service.SettlementService
}

// NewTicketHandler creates a TicketHandler.
func NewTicketHandler(ledgerSvc *service.LedgerService, settlementSvc *service.SettlementService) *TicketHandler {
	return &TicketHandler{ledgerSvc: ledgerSvc, settlementSvc: settlementSvc}
}

// PlaceStake godoc
// POST /api/tickets [JWT]
// Body: {"league_type":"public_bet","league_id":"uuid","stake":"25.00","total_odds":"4.50"}
func (h *TicketHandler) PlaceStake(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		LeagueType string `json:"league_type" binding:"required"`
		LeagueID   string `json:"league_id"`
		Stake      string `json:"stake"       binding:"required"`
		TotalOdds  string `json:"total_odds"  binding:"required"`
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
	totalOdds, err := decimal.NewFromString(body.TotalOdds)
	if err != nil || !totalOdds.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ODDS", "total_odds must be a positive decimal string")
		return
	}

	req := domain.PlaceStakeRequest{
		UserID:     userID,
		LeagueType: scope,
		LeagueID:   leagueID,
		Stake:      stake,
		TotalOdds:  totalOdds,
	}

	ticket, err := h.ledgerSvc.PlaceStake(c.Request.Context(), req)
	if err != nil {
		respondStakeError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, ticket.ToResponse())
}

// GetMyTickets godoc
// GET /api/tickets/my?page=1&limit=20 [JWT]
func (h *TicketHandler) GetMyTickets(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	tickets, err := h.ledgerSvc.GetMyTickets(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch tickets")
		return
	}

	out := make([]domain.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ToResponse())
	}
	respondList(c, out, len(out), page, limit)
}

// GetTicketByID godoc
// GET /api/tickets/:id [JWT]
func (h *TicketHandler) GetTicketByID(c *gin.Context) {
	userID := middleware.GetUserID(c)

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TICKET_ID", "invalid ticket id")
		return
	}

	ticket, err := h.ledgerSvc.GetTicketByID(c.Request.Context(), ticketID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this ticket does not belong to you")
		case errors.Is(err, domain.ErrTicketNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "ticket not found")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch ticket")
		}
		return
	}
	respondSuccess(c, http.StatusOK, ticket.ToResponse())
}

// Settle godoc
// POST /api/tickets/:id/settle [JWT + admin]
// Body: {"outcome":"won"}
//
// Manual settlement for results the feed missed. Idempotent: re-settling a
// terminal ticket returns 409 without moving the ledger.
func (h *TicketHandler) Settle(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TICKET_ID", "invalid ticket id")
		return
	}

	var body struct {
		Outcome string `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	outcome := domain.Outcome(body.Outcome)
	if err := h.settlementSvc.SettleTicket(c.Request.Context(), ticketID, outcome); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOutcome):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_OUTCOME", "outcome must be won or lost")
		case errors.Is(err, domain.ErrTicketNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "ticket not found")
		case errors.Is(err, domain.ErrAlreadySettled):
			respondError(c, http.StatusConflict, "ERR_ALREADY_SETTLED", "ticket already settled")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not settle ticket")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"settled": true, "outcome": outcome})
}
