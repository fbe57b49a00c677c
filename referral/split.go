package referral

import "github.com/shopspring/decimal"

var (
	netShare      = decimal.NewFromFloat(0.80)
	referrerShare = decimal.NewFromFloat(0.10)
)

// WithdrawalSplit is how a withdrawal amount is divided at approval time.
type WithdrawalSplit struct {
	NetAmount          decimal.Decimal `json:"net_amount"`
	ReferralCommission decimal.Decimal `json:"referral_commission"`
	CompanyFee         decimal.Decimal `json:"company_fee"`
}

// ComputeWithdrawalSplit pays the user 80% of amount. With a referrer the
// remaining 20% is shared equally between referrer and company; without one
// the company keeps all of it. Shares are rounded to two places and the
// company fee takes the rounding remainder, so the parts always sum to amount.
func ComputeWithdrawalSplit(amount decimal.Decimal, hasReferrer bool) WithdrawalSplit {
	net := amount.Mul(netShare).Round(2)
	commission := decimal.Zero
	if hasReferrer {
		commission = amount.Mul(referrerShare).Round(2)
	}
	return WithdrawalSplit{
		NetAmount:          net,
		ReferralCommission: commission,
		CompanyFee:         amount.Sub(net).Sub(commission),
	}
}
