// Package referral resolves referral codes, links referrers to referees,
// splits withdrawals and attributes commission transactions to referees.
package referral

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/monitoring"
)

// DefaultCommissionRate is the share of a referee's withdrawal credited to the referrer.
var DefaultCommissionRate = decimal.NewFromFloat(0.10)

const (
	defaultProfileRetries   = 5
	defaultProfileDelay     = time.Second
	defaultNewProfileWindow = 10 * time.Second
)

type Service struct {
	store    Store
	hub      *Hub
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	profileRetries   uint
	profileDelay     time.Duration
	newProfileWindow time.Duration
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithHub(h *Hub) Option { return func(s *Service) { s.hub = h } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithProfileRetry sets how many times, and how far apart, the profile is
// polled while account provisioning catches up.
func WithProfileRetry(attempts uint, delay time.Duration) Option {
	return func(s *Service) {
		if attempts == 0 {
			attempts = 1
		}
		s.profileRetries = attempts
		s.profileDelay = delay
	}
}

// WithNewProfileWindow sets the slack used to decide a profile is brand new.
func WithNewProfileWindow(d time.Duration) Option {
	return func(s *Service) { s.newProfileWindow = d }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		logger:           zap.NewNop(),
		now:              time.Now,
		profileRetries:   defaultProfileRetries,
		profileDelay:     defaultProfileDelay,
		newProfileWindow: defaultNewProfileWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub returns the change hub, or nil.
func (s *Service) Hub() *Hub { return s.hub }

func (s *Service) publish(userIDs ...string) {
	if s.hub != nil {
		s.hub.Publish(userIDs...)
	}
}

// ResolveReferrer returns the id of the user owning code. Malformed codes fail
// with ErrInvalidFormat before any lookup; unmatched codes fail with ErrNotFound.
func (s *Service) ResolveReferrer(ctx context.Context, code string) (string, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}
	referrerID, found, err := s.store.ResolveCode(ctx, normalized)
	if err != nil {
		return "", storageErr("resolve code", err)
	}
	if !found {
		return "", ErrNotFound
	}
	return referrerID, nil
}

// ValidateReferralCode reports whether code is well formed and belongs to a
// user. It has no side effects.
func (s *Service) ValidateReferralCode(ctx context.Context, code string) (bool, error) {
	_, err := s.ResolveReferrer(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ApplyReferralCode links newUserID to the owner of code and returns the
// owner's id. A user can be referred only once; a second call fails with
// ErrAlreadyReferred.
func (s *Service) ApplyReferralCode(ctx context.Context, code, newUserID string) (referrerID string, err error) {
	defer func() {
		monitoring.ReferralApplyTotal.WithLabelValues(Outcome(err)).Inc()
	}()

	referrerID, err = s.ResolveReferrer(ctx, code)
	if err != nil {
		return "", err
	}
	if referrerID == newUserID {
		return "", ErrSelfReferral
	}

	profile, err := s.waitForProfile(ctx, newUserID)
	if err != nil {
		return "", err
	}
	if profile.HasReferrer() {
		return "", ErrAlreadyReferred
	}

	edge := models.Referral{
		ID:              uuid.NewString(),
		ReferrerID:      referrerID,
		RefereeID:       newUserID,
		Status:          models.ReferralActive,
		CommissionRate:  DefaultCommissionRate,
		TotalCommission: decimal.Zero,
		CreatedAt:       s.now(),
	}
	if err := s.store.LinkReferral(ctx, edge); err != nil {
		if errors.Is(err, ErrAlreadyReferred) {
			return "", ErrAlreadyReferred
		}
		return "", storageErr("link referral", err)
	}

	s.logger.Info("referral applied",
		zap.String("referrer_id", referrerID),
		zap.String("referee_id", newUserID))
	s.publish(referrerID, newUserID)
	subject, text := joinedNotice(profile.Email)
	s.notifyUser(ctx, referrerID, NotifyReferralJoined, subject, text)
	return referrerID, nil
}

// waitForProfile polls for the profile row, which account provisioning may
// create shortly after signup.
func (s *Service) waitForProfile(ctx context.Context, userID string) (*models.Profile, error) {
	attempt := 0
	op := func() (*models.Profile, error) {
		attempt++
		p, err := s.store.GetProfile(ctx, userID)
		if err != nil {
			return nil, backoff.Permanent(storageErr("get profile", err))
		}
		if p == nil {
			return nil, ErrProfileNotReady
		}
		return p, nil
	}

	p, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.profileDelay)),
		backoff.WithMaxTries(s.profileRetries),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		if errors.Is(err, ErrProfileNotReady) {
			s.logger.Warn("profile not ready",
				zap.String("user_id", userID),
				zap.Int("attempts", attempt))
		}
		return nil, err
	}
	return p, nil
}
