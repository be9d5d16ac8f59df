package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/predikto/tradecore/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondDomainError maps a coded domain error onto an HTTP status. Internal
// failures are never surfaced verbatim.
func respondDomainError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	msg := err.Error()

	switch code {
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeInvalidArgument:
		status = http.StatusBadRequest
	case domain.CodeInvalidState, domain.CodeConflict:
		status = http.StatusConflict
	case domain.CodeInsufficientFunds:
		status = http.StatusPaymentRequired
	case domain.CodeRateLimit:
		status = http.StatusTooManyRequests
	default:
		msg = "internal error"
	}
	respondError(c, status, string(code), msg)
}

// parsePagination reads ?page= and ?limit= with sane defaults.
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
