package database

import (
	"context"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
)

// AdminStats returns the admin dashboard summary.
func (s *Store) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at::date = CURRENT_DATE),
			COUNT(*) FILTER (WHERE referred_by IS NOT NULL)
		FROM profiles
	`).Scan(&stats.TotalUsers, &stats.NewUsersToday, &stats.ReferredUsers)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM referrals`).Scan(&stats.TotalReferrals)
	if err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE type = 'withdrawal' AND status = 'pending'
	`).Scan(&stats.PendingWithdrawals, &stats.PendingAmount)
	if err != nil {
		return nil, err
	}

	// Same commission test as the service: structured attribution, or the
	// word "commission" in the description.
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount), 0),
			COUNT(*) FILTER (WHERE referee_id IS NULL AND position('@' in description) = 0)
		FROM transactions
		WHERE type = 'earning' AND (referee_id IS NOT NULL OR description ILIKE '%commission%')
	`).Scan(&stats.CommissionPaid, &stats.UnattributedCommissions)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
