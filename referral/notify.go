package referral

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	NotifyReferralJoined      = "referral_joined"
	NotifyCommissionCredited  = "commission_credited"
	NotifyWithdrawalRequested = "withdrawal_requested"
	NotifyReviewNeeded        = "review_needed"
)

// Notification is an out-of-band message about ledger activity. Notices
// with an empty Email are meant for administrators.
type Notification struct {
	Kind    string
	UserID  string
	Email   string
	Subject string
	Text    string
}

// Notifier delivers notifications. Notify must not block the caller.
type Notifier interface {
	Notify(n Notification)
}

func (s *Service) notify(n Notification) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}

// notifyUser looks up userID's email and sends them a notice. Lookup
// failures only cost the notice.
func (s *Service) notifyUser(ctx context.Context, userID, kind, subject, text string) {
	if s.notifier == nil {
		return
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil || p == nil || p.Email == "" {
		s.logger.Warn("notification skipped: no recipient",
			zap.String("user_id", userID), zap.String("kind", kind), zap.Error(err))
		return
	}
	s.notify(Notification{Kind: kind, UserID: userID, Email: p.Email, Subject: subject, Text: text})
}

func joinedNotice(refereeEmail string) (subject, text string) {
	return "You have a new referral",
		fmt.Sprintf("%s signed up with your referral code. You will earn %s%% of their withdrawals.",
			refereeEmail, DefaultCommissionRate.Shift(2).String())
}

func commissionNotice(refereeEmail string, amount decimal.Decimal) (subject, text string) {
	return "Referral commission credited",
		fmt.Sprintf("You earned %s from a withdrawal by %s.", amount.StringFixed(2), refereeEmail)
}

func withdrawalNotice(userID string, amount decimal.Decimal) Notification {
	return Notification{
		Kind:    NotifyWithdrawalRequested,
		Subject: "Withdrawal pending approval",
		Text:    fmt.Sprintf("User %s requested a withdrawal of %s.", userID, amount.StringFixed(2)),
	}
}

func reviewNotice(m AmbiguousMatch) Notification {
	return Notification{
		Kind:    NotifyReviewNeeded,
		Subject: "Commission needs manual attribution",
		Text: fmt.Sprintf("Commission %s of %s for referrer %s matches several referees: %s.",
			m.TransactionID, m.Amount.StringFixed(2), m.ReferrerID, strings.Join(m.Candidates, ", ")),
	}
}
