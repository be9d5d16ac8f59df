package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/predikto/tradecore/internal/repository"
)

// AdminHandler serves the operator's read-only views: pending-queue depth and
// per-event liquidity state.
type AdminHandler struct {
	events *repository.EventRepository
	queue  *repository.QueueRepository
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(events *repository.EventRepository, queue *repository.QueueRepository) *AdminHandler {
	return &AdminHandler{events: events, queue: queue}
}

// QueueDepth godoc
// GET /api/admin/queue
func (h *AdminHandler) QueueDepth(c *gin.Context) {
	rows, err := h.queue.Depth(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, rows)
}

// EventLiquidity godoc
// GET /api/admin/events/:id/liquidity
func (h *AdminHandler) EventLiquidity(c *gin.Context) {
	eventID := c.Param("id")

	event, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	interest, err := h.events.OpenInterest(c.Request.Context(), eventID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"event_id":                 event.ID,
		"status":                   event.Status,
		"frozen":                   event.Frozen,
		"platform_liquidity_left":  event.PlatformLiquidityLeft,
		"min_liquidity_percentage": event.MinLiquidityPercentage,
		"max_liquidity_percentage": event.MaxLiquidityPercentage,
		"liquidity_in_between":     event.LiquidityInBetween,
		"open_interest":            interest,
	})
}
