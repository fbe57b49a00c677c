package referral

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
)

// GetReferralStats aggregates a referrer's referrals. Commission is the sum
// of the referrer's commission earnings, attributed or not; when there are
// none the denormalized edge totals are used instead. Pending commission is
// not tracked and is always zero.
func (s *Service) GetReferralStats(ctx context.Context, userID string) (models.ReferralStats, error) {
	stats := models.ReferralStats{
		TotalCommissionEarned: decimal.Zero,
		PendingCommission:     decimal.Zero,
	}

	edges, err := s.store.ListReferralsByReferrer(ctx, userID)
	if err != nil {
		return stats, storageErr("list referrals", err)
	}
	earnings, err := s.store.QueryTransactions(ctx, TransactionQuery{UserID: userID, Type: models.TransactionEarning})
	if err != nil {
		return stats, storageErr("query earnings", err)
	}

	edgeTotal := decimal.Zero
	for _, e := range edges {
		stats.TotalReferrals++
		if e.Status == models.ReferralActive {
			stats.ActiveReferrals++
		}
		edgeTotal = edgeTotal.Add(e.TotalCommission)
	}

	matched := 0
	commission := decimal.Zero
	for _, tx := range earnings {
		if IsCommission(tx) {
			matched++
			commission = commission.Add(tx.Amount)
		}
	}

	if matched > 0 {
		stats.TotalCommissionEarned = commission
	} else {
		stats.TotalCommissionEarned = edgeTotal
	}
	return stats, nil
}

// GetReferredUsersList lists the referrer's referees, newest first, with the
// commission attributed to each.
func (s *Service) GetReferredUsersList(ctx context.Context, userID string) ([]models.ReferredUser, error) {
	edges, err := s.store.ListReferralsByReferrer(ctx, userID)
	if err != nil {
		return nil, storageErr("list referrals", err)
	}
	if len(edges) == 0 {
		return []models.ReferredUser{}, nil
	}

	referees, err := s.store.ListReferees(ctx, userID)
	if err != nil {
		return nil, storageErr("list referees", err)
	}
	profiles := make(map[string]models.Profile, len(referees))
	for _, p := range referees {
		profiles[p.ID] = p
	}

	earnings, err := s.store.QueryTransactions(ctx, TransactionQuery{UserID: userID, Type: models.TransactionEarning})
	if err != nil {
		return nil, storageErr("query earnings", err)
	}

	users := make([]models.ReferredUser, 0, len(edges))
	for _, e := range edges {
		p, ok := profiles[e.RefereeID]
		if !ok {
			// Edge without referred_by on the profile; still listed.
			fetched, err := s.store.GetProfile(ctx, e.RefereeID)
			if err != nil {
				return nil, storageErr("get profile", err)
			}
			if fetched == nil {
				continue
			}
			p = *fetched
		}
		users = append(users, models.ReferredUser{
			ID:               p.ID,
			Name:             p.Name,
			Email:            p.Email,
			JoinDate:         e.CreatedAt,
			CommissionEarned: CommissionFromReferee(earnings, p.ID, p.Email),
			Status:           e.Status,
		})
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].JoinDate.After(users[j].JoinDate)
	})
	return users, nil
}

// HasReferrer reports whether the user was referred. Unknown users have none.
func (s *Service) HasReferrer(ctx context.Context, userID string) (bool, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return false, storageErr("get profile", err)
	}
	return p != nil && p.HasReferrer(), nil
}
