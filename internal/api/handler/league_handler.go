package handler

import (
	"errors"
	"net/http"

	"github.com/evetabi/tipleague/internal/api/middleware"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/evetabi/tipleague/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeagueHandler serves the league registry read model and standings.
type LeagueHandler struct {
	leagueRepo *repository.LeagueRepository
	ledgerRepo *repository.LedgerRepository
	scopes     *service.ScopeService
}

// NewLeagueHandler creates a LeagueHandler.
func NewLeagueHandler(
	leagueRepo *repository.LeagueRepository,
	ledgerRepo *repository.LedgerRepository,
	scopes *service.ScopeService,
) *LeagueHandler {
	return &LeagueHandler{leagueRepo: leagueRepo, ledgerRepo: ledgerRepo, scopes: scopes}
}

// GetByID godoc
// GET /api/leagues/:id [JWT]
func (h *LeagueHandler) GetByID(c *gin.Context) {
	leagueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_LEAGUE_ID", "invalid league id")
		return
	}

	league, err := h.leagueRepo.GetByID(c.Request.Context(), leagueID)
	if err != nil {
		if errors.Is(err, domain.ErrLeagueNotFound) {
			respondError(c, http.StatusNotFound, "ERR_LEAGUE_NOT_FOUND", "league not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch league")
		return
	}

	count, err := h.leagueRepo.MemberCount(c.Request.Context(), leagueID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch league")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"league":       league,
		"member_count": count,
	})
}

// GetStandings godoc
// GET /api/leagues/:id/standings?page=1&limit=20 [JWT]
//
// Standings are the league's ledger records for the current period ordered by
// cumulative profit. Only members may view them.
func (h *LeagueHandler) GetStandings(c *gin.Context) {
	userID := middleware.GetUserID(c)

	leagueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_LEAGUE_ID", "invalid league id")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	// Resolving the scope runs the same membership gate as placement.
	handle, err := h.scopes.Resolve(c.Request.Context(), userID, domain.ScopeCustomLeague, &leagueID)
	if err != nil {
		respondScopeError(c, err)
		return
	}

	recs, err := h.ledgerRepo.ListByScope(c.Request.Context(), handle, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch standings")
		return
	}
	respondList(c, recs, len(recs), page, limit)
}
