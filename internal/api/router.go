package api

import (
	"net/http"

	"github.com/evetabi/tipleague/internal/api/handler"
	"github.com/evetabi/tipleague/internal/api/middleware"
	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/metrics"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/evetabi/tipleague/internal/service"
	"github.com/evetabi/tipleague/internal/ws"
	"github.com/gin-gonic/gin"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	LedgerSvc     *service.LedgerService
	SettlementSvc *service.SettlementService
	ScopeSvc      *service.ScopeService
	LeagueRepo    *repository.LeagueRepository
	LedgerRepo    *repository.LedgerRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check & metrics ───────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── Handlers ─────────────────────────────────────────────────────────────
	ledgerH := handler.NewLedgerHandler(deps.LedgerSvc)
	ticketH := handler.NewTicketHandler(deps.LedgerSvc, deps.SettlementSvc)
	leagueH := handler.NewLeagueHandler(deps.LeagueRepo, deps.LedgerRepo, deps.ScopeSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.Cfg)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	stakeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for placement endpoints

	api := r.Group("/api")
	{
		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Ledger
			ledger := authed.Group("/ledger")
			{
				ledger.GET("/budget", ledgerH.GetBudget)
				ledger.POST("/validate", ledgerH.ValidateStake)
				ledger.GET("/history", ledgerH.GetHistory)
			}

			// Tickets
			tickets := authed.Group("/tickets")
			{
				tickets.POST("", stakeRL, ticketH.PlaceStake)
				tickets.GET("/my", ticketH.GetMyTickets)
				tickets.GET("/:id", ticketH.GetTicketByID)
				tickets.POST("/:id/settle", middleware.AdminMiddleware(), ticketH.Settle)
			}

			// Leagues
			leagues := authed.Group("/leagues")
			{
				leagues.GET("/:id", leagueH.GetByID)
				leagues.GET("/:id/standings", leagueH.GetStandings)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In DEBUG mode all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			// Production: allow only tipleague.app (and www.)
			allowed := map[string]bool{
				"https://tipleague.app":     true,
				"https://www.tipleague.app": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
