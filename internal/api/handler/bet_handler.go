package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/predikto/tradecore/internal/domain"
	"github.com/predikto/tradecore/internal/service"
)

// userIDHeader carries the authenticated caller's id, injected by the
// upstream gateway. Authentication itself lives outside the core.
const userIDHeader = "X-User-ID"

// BetHandler serves order placement, cancellation and bet queries.
type BetHandler struct {
	betSvc *service.BetService
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(betSvc *service.BetService) *BetHandler {
	return &BetHandler{betSvc: betSvc}
}

// callerID extracts the authenticated user id from the request.
func callerID(c *gin.Context) string {
	return c.GetHeader(userIDHeader)
}

// PlaceBet godoc
// POST /api/bets
// Body: {"event_id":"…","option_id":1,"type":"buy","quantity":10,"price":"60","buy_bet_id":null,"limit_order":false}
func (h *BetHandler) PlaceBet(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+userIDHeader+" header")
		return
	}

	var body struct {
		EventID    string  `json:"event_id"   binding:"required"`
		OptionID   int64   `json:"option_id"  binding:"required"`
		Type       string  `json:"type"       binding:"required"`
		Quantity   int64   `json:"quantity"   binding:"required"`
		Price      string  `json:"price"      binding:"required"`
		BuyBetID   *string `json:"buy_bet_id"`
		LimitOrder bool    `json:"limit_order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, string(domain.CodeInvalidArgument), err.Error())
		return
	}

	price, err := decimal.NewFromString(body.Price)
	if err != nil || !price.IsPositive() {
		respondError(c, http.StatusBadRequest, string(domain.CodeInvalidArgument),
			"price must be a positive decimal string")
		return
	}

	req := domain.PlaceBetRequest{
		UserID:     userID,
		EventID:    body.EventID,
		OptionID:   body.OptionID,
		Type:       domain.BetType(body.Type),
		Quantity:   body.Quantity,
		Price:      price,
		BuyBetID:   body.BuyBetID,
		LimitOrder: body.LimitOrder,
	}

	bet, err := h.betSvc.PlaceBet(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, bet)
}

// CancelBet godoc
// POST /api/bets/:id/cancel
// Body: {"event_id":"…","quantity":5}
func (h *BetHandler) CancelBet(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+userIDHeader+" header")
		return
	}

	var body struct {
		EventID  string `json:"event_id" binding:"required"`
		Quantity int64  `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, string(domain.CodeInvalidArgument), err.Error())
		return
	}

	req := domain.CancelBetRequest{
		UserID:   userID,
		BetID:    c.Param("id"),
		EventID:  body.EventID,
		Quantity: body.Quantity,
	}

	bet, err := h.betSvc.CancelBet(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// GetBet godoc
// GET /api/bets/:id
func (h *BetHandler) GetBet(c *gin.Context) {
	bet, err := h.betSvc.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// ListBets godoc
// GET /api/bets?user_id=&event_id=&option_id=&type=&page=1&limit=20
func (h *BetHandler) ListBets(c *gin.Context) {
	page, limit := parsePagination(c)
	optionID, _ := strconv.ParseInt(c.Query("option_id"), 10, 64)

	f := domain.BetFilter{
		UserID:   c.Query("user_id"),
		EventID:  c.Query("event_id"),
		OptionID: optionID,
		Type:     domain.BetType(c.Query("type")),
	}

	result, err := h.betSvc.ListBets(c.Request.Context(), f, page, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBalance godoc
// GET /api/wallet/balance?token=USDC&chain=base
func (h *BetHandler) GetBalance(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+userIDHeader+" header")
		return
	}

	bal, err := h.betSvc.GetBalance(c.Request.Context(), userID, c.Query("token"), c.Query("chain"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bal)
}

// GetTransactions godoc
// GET /api/wallet/transactions?limit=50
func (h *BetHandler) GetTransactions(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing "+userIDHeader+" header")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ts, err := h.betSvc.ListTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ts)
}
