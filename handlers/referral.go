package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/middleware"
	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

func (h *Handler) GetReferralCode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"code":    referral.GenerateCode(middleware.UserID(c)),
	})
}

// ValidateReferralCode answers whether a code exists, for the sign-up form.
func (h *Handler) ValidateReferralCode(c *gin.Context) {
	code := c.Query("code")
	valid, err := h.svc.ValidateReferralCode(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{"success": true, "valid": valid}
	if !valid {
		if _, err := referral.NormalizeCode(code); err != nil {
			body["message"] = referral.Message(err)
		} else {
			body["message"] = referral.Message(referral.ErrNotFound)
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) ApplyReferralCode(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := h.svc.ApplyReferralCode(c.Request.Context(), req.Code, middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Referral code applied"})
}

// ApplyDeferred accepts the state staged before an identity-provider sign-in.
// The code is applied in the background; the response never waits for it.
func (h *Handler) ApplyDeferred(c *gin.Context) {
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	staged, err := h.states.Verify(req.State)
	if err != nil {
		h.logger.Info("deferred referral state rejected", zap.Error(err))
		h.fail(c, err)
		return
	}
	h.svc.ScheduleDeferred(c.Request.Context(), middleware.UserID(c), staged, h.cfg.Referral.DeferredTimeout)
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (h *Handler) GetReferralStats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *Handler) GetReferredUsers(c *gin.Context) {
	users, err := h.svc.GetReferredUsersList(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// CommissionSplit previews how a withdrawal of amount would be divided for
// the caller.
func (h *Handler) CommissionSplit(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || !amount.IsPositive() {
		h.fail(c, referral.ErrInvalidAmount)
		return
	}
	hasReferrer, err := h.svc.HasReferrer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"has_referrer": hasReferrer,
		"split":        referral.ComputeWithdrawalSplit(amount, hasReferrer),
	})
}

// StreamStats pushes the caller's referral stats as server-sent events, once
// on connect and again after every change.
func (h *Handler) StreamStats(c *gin.Context) {
	userID := middleware.UserID(c)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan models.ReferralStats)
	errc := make(chan error, 1)
	go func() { errc <- h.stats.Watch(ctx, userID, updates) }()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		select {
		case s := <-updates:
			c.SSEvent("stats", s)
			return true
		case err := <-errc:
			if err != nil {
				h.logger.Warn("stats stream stopped", zap.String("user_id", userID), zap.Error(err))
				c.SSEvent("error", gin.H{"error": referral.Message(err)})
			}
			return false
		case <-ctx.Done():
			return false
		}
	})
}
