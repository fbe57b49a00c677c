package models

import "github.com/shopspring/decimal"

// AdminStats is the admin dashboard summary of the referral ledger.
type AdminStats struct {
	TotalUsers         int64           `json:"total_users"`
	NewUsersToday      int64           `json:"new_users_today"`
	ReferredUsers      int64           `json:"referred_users"`
	TotalReferrals     int64           `json:"total_referrals"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	PendingAmount      decimal.Decimal `json:"pending_amount"`
	CommissionPaid     decimal.Decimal `json:"commission_paid"`
	// UnattributedCommissions counts commission earnings still waiting for a backfill.
	UnattributedCommissions int64 `json:"unattributed_commissions"`
}
