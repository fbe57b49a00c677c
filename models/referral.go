package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReferralActive   = "active"
	ReferralInactive = "inactive"
)

// Referral is the referrer -> referee edge. One per referee.
type Referral struct {
	ID              string          `json:"id" db:"id"`
	ReferrerID      string          `json:"referrer_id" db:"referrer_id"`
	RefereeID       string          `json:"referee_id" db:"referee_id"`
	Status          string          `json:"status" db:"status"`
	CommissionRate  decimal.Decimal `json:"commission_rate" db:"commission_rate"`
	TotalCommission decimal.Decimal `json:"total_commission" db:"total_commission"` // recomputed from the ledger, never incremented
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

type ReferralStats struct {
	TotalReferrals        int             `json:"total_referrals"`
	ActiveReferrals       int             `json:"active_referrals"`
	TotalCommissionEarned decimal.Decimal `json:"total_commission_earned"`
	PendingCommission     decimal.Decimal `json:"pending_commission"`
}

// ReferredUser is one row of the referrer's "my referrals" list.
type ReferredUser struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	JoinDate         time.Time       `json:"join_date"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	Status           string          `json:"status"`
}
