// Package api builds the HTTP surface consumed by the external gateway:
// order placement and cancellation, bet queries, wallet reads and the admin
// views. Authentication happens upstream; the gateway forwards the caller's
// identity in the X-User-ID header.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/predikto/tradecore/internal/api/handler"
	"github.com/predikto/tradecore/internal/config"
	"github.com/predikto/tradecore/internal/repository"
	"github.com/predikto/tradecore/internal/service"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	BetSvc *service.BetService
	Events *repository.EventRepository
	Queue  *repository.QueueRepository
	Cfg    *config.Config
}

// SetupRouter creates and configures the Gin engine with all routes.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	betH := handler.NewBetHandler(deps.BetSvc)
	adminH := handler.NewAdminHandler(deps.Events, deps.Queue)

	api := r.Group("/api")
	{
		// ── Bets ─────────────────────────────────────────────────────────────
		bets := api.Group("/bets")
		{
			bets.POST("", betH.PlaceBet)
			bets.POST("/:id/cancel", betH.CancelBet)
			bets.GET("/:id", betH.GetBet)
			bets.GET("", betH.ListBets)
		}

		// ── Wallet (read-only) ───────────────────────────────────────────────
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", betH.GetBalance)
			wallet.GET("/transactions", betH.GetTransactions)
		}

		// ── Admin read-only views ────────────────────────────────────────────
		admin := api.Group("/admin")
		{
			admin.GET("/queue", adminH.QueueDepth)
			admin.GET("/events/:id/liquidity", adminH.EventLiquidity)
		}
	}

	return r
}
