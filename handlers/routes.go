package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pawankshetri11/payoutclickmain-sub001/middleware"
)

// RegisterRoutes mounts the API on r. limiter guards the endpoints that
// look up or apply referral codes.
func (h *Handler) RegisterRoutes(r *gin.Engine, limiter *middleware.RateLimiter) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/health", h.Health)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", limiter.Middleware(), h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/oauth/state", limiter.Middleware(), h.OAuthState)
	}

	api.GET("/referrals/validate", limiter.Middleware(), h.ValidateReferralCode)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(h.cfg))
	{
		protected.GET("/referrals/code", h.GetReferralCode)
		protected.GET("/referrals/stats", h.GetReferralStats)
		protected.GET("/referrals/users", h.GetReferredUsers)
		protected.GET("/referrals/stream", h.StreamStats)
		protected.GET("/referrals/commission-split", h.CommissionSplit)
		protected.POST("/referrals/apply", limiter.Middleware(), h.ApplyReferralCode)
		protected.POST("/referrals/deferred", h.ApplyDeferred)

		protected.POST("/withdrawals", h.RequestWithdrawal)
		protected.GET("/transactions", h.ListTransactions)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/stats", h.AdminStats)
		admin.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", h.RejectWithdrawal)
		admin.POST("/referrals/backfill", h.Backfill)
		admin.POST("/referrals/commissions/:id/attribute", h.AttributeCommission)
		admin.POST("/referrals/reconcile", h.Reconcile)
	}
}
