package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/evetabi/tipleague/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// stuckAge is the pending-age threshold for the stuck-ticket view.
const stuckAge = 48 * time.Hour

// TicketAdminHandler serves ticket inspection and manual settlement.
type TicketAdminHandler struct {
	settlementSvc *service.SettlementService
	ticketRepo    *repository.TicketRepository
	ledgerRepo    *repository.LedgerRepository
	cfg           *config.Config
}

// NewTicketAdminHandler creates a TicketAdminHandler.
func NewTicketAdminHandler(
	settlementSvc *service.SettlementService,
	ticketRepo *repository.TicketRepository,
	ledgerRepo *repository.LedgerRepository,
	cfg *config.Config,
) *TicketAdminHandler {
	return &TicketAdminHandler{
		settlementSvc: settlementSvc,
		ticketRepo:    ticketRepo,
		ledgerRepo:    ledgerRepo,
		cfg:           cfg,
	}
}

// ListStuck godoc
// GET /admin/tickets/stuck?page=1&limit=50
//
// Tickets pending past the alert window, oldest first. These usually mean the
// results feed never delivered an outcome.
func (h *TicketAdminHandler) ListStuck(c *gin.Context) {
	page, limit := adminPagination(c)

	tickets, err := h.ticketRepo.ListStuckPending(c.Request.Context(), stuckAge, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch stuck tickets")
		return
	}
	respondList(c, tickets, len(tickets), page, limit)
}

// Detail godoc
// GET /admin/tickets/:id
//
// Includes the settlement marker timestamp so support can reconcile a ticket
// whose outcome a client claims never arrived.
func (h *TicketAdminHandler) Detail(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TICKET_ID", "invalid ticket id")
		return
	}

	ticket, err := h.ticketRepo.GetByID(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "ticket not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch ticket")
		return
	}

	settledAt, err := h.ledgerRepo.SettledAt(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch settlement marker")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"ticket":            ticket,
		"ledger_settled_at": settledAt,
	})
}

// Settle godoc
// POST /admin/tickets/:id/settle
// Body: {"outcome":"won"}
func (h *TicketAdminHandler) Settle(c *gin.Context) {
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
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"settled": true, "outcome": outcome})
}
