package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/middleware"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, referral.ErrInvalidAmount)
		return
	}
	w, err := h.svc.RequestWithdrawal(c.Request.Context(), middleware.UserID(c), req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "withdrawal": w})
}

func (h *Handler) ListTransactions(c *gin.Context) {
	userID := middleware.UserID(c)
	txs, err := h.svc.Transactions(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	balance, err := h.svc.Balance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs, "balance": balance})
}
