package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/middleware"
)

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.profiles.AdminStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	settlement, err := h.svc.ApproveWithdrawal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("admin approved withdrawal",
		zap.String("admin_id", middleware.UserID(c)),
		zap.String("withdrawal_id", settlement.Withdrawal.ID))
	c.JSON(http.StatusOK, gin.H{"success": true, "settlement": settlement})
}

func (h *Handler) RejectWithdrawal(c *gin.Context) {
	if err := h.svc.RejectWithdrawal(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("admin rejected withdrawal",
		zap.String("admin_id", middleware.UserID(c)),
		zap.String("withdrawal_id", c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Backfill attributes legacy commissions for one referrer, or for all of them
// when referrer_id is empty. Partial failures still return the report.
func (h *Handler) Backfill(c *gin.Context) {
	var req struct {
		ReferrerID string `json:"referrer_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	if req.ReferrerID != "" {
		report, err := h.svc.Backfill(c.Request.Context(), req.ReferrerID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
		return
	}

	report, err := h.svc.BackfillAll(c.Request.Context())
	if err != nil && report == nil {
		h.fail(c, err)
		return
	}
	body := gin.H{"success": err == nil, "report": report}
	if err != nil {
		h.logger.Error("backfill finished with failures", zap.Error(err))
		body["error"] = "Some referrers could not be backfilled; see server logs"
	}
	c.JSON(http.StatusOK, body)
}

// AttributeCommission resolves an ambiguous backfill match by hand.
func (h *Handler) AttributeCommission(c *gin.Context) {
	var req struct {
		RefereeID string `json:"referee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	attribution, err := h.svc.AttributeTransaction(c.Request.Context(), c.Param("id"), req.RefereeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("admin attributed commission",
		zap.String("admin_id", middleware.UserID(c)),
		zap.String("transaction_id", attribution.TransactionID),
		zap.String("referee_id", attribution.RefereeID))
	c.JSON(http.StatusOK, gin.H{"success": true, "attribution": attribution})
}

func (h *Handler) Reconcile(c *gin.Context) {
	repaired, err := h.svc.Reconcile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "repaired": repaired})
}
