package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/evetabi/tipleague/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	ledgerRepo *repository.LedgerRepository
	ticketRepo *repository.TicketRepository
	hub        *ws.Hub
	cfg        *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	ledgerRepo *repository.LedgerRepository,
	ticketRepo *repository.TicketRepository,
	hub *ws.Hub,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		ledgerRepo: ledgerRepo,
		ticketRepo: ticketRepo,
		hub:        hub,
		cfg:        cfg,
	}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// ── Ticket volume ────────────────────────────────────────────────────────
	counts, err := h.ticketRepo.StatusCounts(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not load ticket counts")
		return
	}

	// ── Blocked records in the current public month ──────────────────────────
	monthKey := domain.MonthKey(time.Now().UTC())
	blocked, err := h.ledgerRepo.BlockedCount(ctx, domain.ScopePublicBet, monthKey)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not load blocked count")
		return
	}

	// ── Connected WS clients ─────────────────────────────────────────────────
	connected := 0
	if h.hub != nil {
		connected = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"period_key": monthKey,
		"tickets": gin.H{
			"pending": counts[domain.TicketPending],
			"won":     counts[domain.TicketWon],
			"lost":    counts[domain.TicketLost],
		},
		"blocked_records": blocked,
		"ws_clients":      connected,
		"env":             h.cfg.Server.Env,
	})
}
