package referral

import (
	"context"

	"go.uber.org/zap"
)

// Reconcile repairs referral edges whose referee profile lost the
// referred_by pointer (an edge written without its profile update). It
// returns the number of profiles repaired.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	dangling, err := s.store.ListDanglingReferrals(ctx)
	if err != nil {
		return 0, storageErr("list dangling referrals", err)
	}

	repaired := 0
	for _, e := range dangling {
		if err := s.store.RepairReferredBy(ctx, e.RefereeID, e.ReferrerID); err != nil {
			return repaired, storageErr("repair referred_by", err)
		}
		repaired++
		s.logger.Info("repaired referral pointer",
			zap.String("referrer_id", e.ReferrerID),
			zap.String("referee_id", e.RefereeID))
		s.publish(e.ReferrerID, e.RefereeID)
	}
	return repaired, nil
}
