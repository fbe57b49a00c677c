package referral

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// StagedReferral is a referral code carried across an identity-provider
// redirect, with the time it was staged.
type StagedReferral struct {
	Code     string
	StagedAt time.Time
}

// IsNewProfile reports whether a profile created at createdAt was created
// for the sign-in that started at reference, allowing window of clock slack.
func IsNewProfile(createdAt, reference time.Time, window time.Duration) bool {
	return !createdAt.Before(reference.Add(-window))
}

// ApplyDeferred applies a code staged before an identity-provider sign-in.
// The code is dropped without error, and applied is false, when the profile
// predates the sign-in (an existing user re-authenticating) or already has a
// referrer.
func (s *Service) ApplyDeferred(ctx context.Context, userID string, staged StagedReferral) (applied bool, err error) {
	if _, err := NormalizeCode(staged.Code); err != nil {
		return false, err
	}

	profile, err := s.waitForProfile(ctx, userID)
	if err != nil {
		return false, err
	}

	reference := staged.StagedAt
	if reference.IsZero() {
		reference = s.now()
	}
	if !IsNewProfile(profile.CreatedAt, reference, s.newProfileWindow) {
		s.logger.Debug("staged referral dropped: existing profile", zap.String("user_id", userID))
		return false, nil
	}
	if profile.HasReferrer() {
		s.logger.Debug("staged referral dropped: already referred", zap.String("user_id", userID))
		return false, nil
	}

	_, err = s.ApplyReferralCode(ctx, staged.Code, userID)
	if errors.Is(err, ErrAlreadyReferred) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ScheduleDeferred runs ApplyDeferred in the background so session setup is
// never blocked on it. The work is detached from the caller's cancellation
// and bounded by timeout.
func (s *Service) ScheduleDeferred(ctx context.Context, userID string, staged StagedReferral, timeout time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		applied, err := s.ApplyDeferred(ctx, userID, staged)
		if err != nil {
			s.logger.Warn("deferred referral failed",
				zap.String("user_id", userID),
				zap.String("outcome", Outcome(err)),
				zap.Error(err))
		} else if applied {
			s.logger.Info("deferred referral applied", zap.String("user_id", userID))
		}
		done <- err
	}()
	return done
}
