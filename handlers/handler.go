package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/auth"
	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
	"github.com/Pawankshetri11/payoutclickmain-sub001/middleware"
	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

// ProfileStore creates and finds accounts for password sign-up and login.
type ProfileStore interface {
	CreateProfile(ctx context.Context, email, name, passwordHash, role string) (*models.Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	AdminStats(ctx context.Context) (*models.AdminStats, error)
}

type Deps struct {
	Config   *config.Config
	Service  *referral.Service
	Stats    *referral.StatsView
	Profiles ProfileStore
	States   *auth.StateSigner
	// Ping reports database health; nil means always healthy.
	Ping   func(ctx context.Context) error
	Logger *zap.Logger
}

type Handler struct {
	cfg      *config.Config
	svc      *referral.Service
	stats    *referral.StatsView
	profiles ProfileStore
	states   *auth.StateSigner
	ping     func(ctx context.Context) error
	logger   *zap.Logger
}

func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:      d.Config,
		svc:      d.Service,
		stats:    d.Stats,
		profiles: d.Profiles,
		states:   d.States,
		ping:     d.Ping,
		logger:   logger,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, referral.ErrInvalidFormat),
		errors.Is(err, referral.ErrSelfReferral),
		errors.Is(err, referral.ErrInvalidAmount),
		errors.Is(err, referral.ErrInsufficientBalance),
		errors.Is(err, referral.ErrNotReferee),
		errors.Is(err, referral.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, referral.ErrNotFound),
		errors.Is(err, referral.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, referral.ErrAlreadyReferred),
		errors.Is(err, referral.ErrWithdrawalNotPending):
		return http.StatusConflict
	case errors.Is(err, referral.ErrProfileNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the user-facing message for err. Internal failures are logged
// and never leak their detail.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", middleware.UserID(c)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": referral.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
