package backoffice

import (
	"net/http"
	"strings"

	"github.com/evetabi/tipleague/internal/api/middleware"
	"github.com/evetabi/tipleague/internal/backoffice/handler"
	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/evetabi/tipleague/internal/service"
	"github.com/evetabi/tipleague/internal/ws"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	SettlementSvc *service.SettlementService
	LedgerRepo    *repository.LedgerRepository
	TicketRepo    *repository.TicketRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine, served on its own port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.LedgerRepo, deps.TicketRepo, deps.Hub, deps.Cfg)
	ledgerH := handler.NewLedgerAdminHandler(deps.LedgerRepo, deps.Cfg)
	ticketH := handler.NewTicketAdminHandler(deps.SettlementSvc, deps.TicketRepo, deps.LedgerRepo, deps.Cfg)

	jwtMW := adminJWTMiddleware(deps.Cfg)

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Ledgers
		l := admin.Group("/ledgers")
		{
			l.GET("/user/:id", ledgerH.ListByUser)
			l.GET("/scope", ledgerH.ListByScope)
			l.POST("/:id/allowance", ledgerH.AdjustAllowance)
		}

		// Tickets
		t := admin.Group("/tickets")
		{
			t.GET("/stuck", ticketH.ListStuck)
			t.GET("/:id", ticketH.Detail)
			t.POST("/:id/settle", ticketH.Settle)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT and requires the caller to have a
// backoffice-capable role (admin, finance, ops, readonly).
func adminJWTMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := middleware.ParseAccessToken(cfg, strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if !domain.UserRole(claims.Role).CanAccessBackoffice() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}
