package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/auth"
	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

func profileJSON(p *models.Profile) gin.H {
	return gin.H{
		"id":            p.ID,
		"email":         p.Email,
		"name":          p.Name,
		"role":          p.Role,
		"referral_code": referral.GenerateCode(p.ID),
		"referred_by":   p.ReferredBy,
	}
}

func (h *Handler) issueTokens(c *gin.Context, status int, p *models.Profile, extra gin.H) {
	accessToken, refreshToken, err := auth.GenerateTokenPair(h.cfg, p.ID, p.Email, p.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{
		"success":       true,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          profileJSON(p),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// Register creates a password account. A referral code, when given, is
// applied synchronously; a failed application does not undo the sign-up and
// is reported alongside the tokens.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=6"`
		Name         string `json:"name" binding:"required"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	profile, err := h.profiles.CreateProfile(c.Request.Context(), req.Email, req.Name, hash, models.RoleUser)
	if errors.Is(err, models.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "User with this email already exists"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("profile registered", zap.String("user_id", profile.ID))

	extra := gin.H{}
	if req.ReferralCode != "" {
		result := gin.H{"applied": true}
		referrerID, err := h.svc.ApplyReferralCode(c.Request.Context(), req.ReferralCode, profile.ID)
		if err != nil {
			result = gin.H{"applied": false, "error": referral.Message(err)}
		} else {
			profile.ReferredBy = &referrerID
		}
		extra["referral"] = result
	}
	h.issueTokens(c, http.StatusCreated, profile, extra)
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	profile, err := h.profiles.FindProfileByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	if profile == nil || !profile.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password"})
		return
	}
	h.issueTokens(c, http.StatusOK, profile, nil)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	accessToken, refreshToken, err := auth.RefreshTokens(h.cfg, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// OAuthState stages a referral code before an identity-provider redirect.
// The returned state goes through the provider round trip and comes back to
// POST /api/referrals/deferred once the user is signed in.
func (h *Handler) OAuthState(c *gin.Context) {
	var req struct {
		ReferralCode string `json:"referral_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	state, err := h.states.Issue(req.ReferralCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}
