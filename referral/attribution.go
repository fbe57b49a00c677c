package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/monitoring"
)

const (
	commissionDescriptionPrefix = "Referral commission from "

	// Heuristic bounds for matching a legacy commission to a referee withdrawal.
	matchAmountTolerance = "0.5"
	matchTimeWindow      = 3 * 24 * time.Hour
)

var amountTolerance = decimal.RequireFromString(matchAmountTolerance)

// CommissionDescription is the description written on commission earnings.
func CommissionDescription(refereeEmail string) string {
	return commissionDescriptionPrefix + refereeEmail
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// IsCommission reports whether tx is a referral commission earning.
func IsCommission(tx models.Transaction) bool {
	if tx.Type != models.TransactionEarning {
		return false
	}
	return tx.RefereeID != "" || containsFold(tx.Description, "commission")
}

// isLegacyCommission is a commission with no attribution: no referee id and
// no email in the description.
func isLegacyCommission(tx models.Transaction) bool {
	return IsCommission(tx) && tx.RefereeID == "" && !strings.Contains(tx.Description, "@")
}

// attributedTo reports whether tx is commission earned from the given referee.
// A recorded referee id is authoritative; otherwise the description must
// contain the referee's email. Matching ignores case.
func attributedTo(tx models.Transaction, refereeID, email string) bool {
	if tx.Type != models.TransactionEarning {
		return false
	}
	if tx.RefereeID != "" {
		return tx.RefereeID == refereeID
	}
	return email != "" && containsFold(tx.Description, email)
}

// CommissionFromReferee sums the referrer earnings attributed to one referee.
// Legacy rows without the email or referee id count as zero.
func CommissionFromReferee(txs []models.Transaction, refereeID, email string) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if attributedTo(tx, refereeID, email) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Attribution records a legacy commission assigned to a referee.
type Attribution struct {
	TransactionID string          `json:"transaction_id"`
	RefereeID     string          `json:"referee_id"`
	Email         string          `json:"email"`
	Amount        decimal.Decimal `json:"amount"`
	// SingleReferee is true when the referrer had only one referee.
	SingleReferee bool `json:"single_referee"`
}

// AmbiguousMatch is a legacy commission that fits more than one referee's
// withdrawals. It is left untouched for manual review.
type AmbiguousMatch struct {
	TransactionID string          `json:"transaction_id"`
	ReferrerID    string          `json:"referrer_id"`
	Amount        decimal.Decimal `json:"amount"`
	CandidateIDs  []string        `json:"candidate_ids"`
	Candidates    []string        `json:"candidates"`
}

type BackfillReport struct {
	Matched   []Attribution    `json:"matched"`
	Ambiguous []AmbiguousMatch `json:"ambiguous"`
	Unmatched []string         `json:"unmatched"`
}

func (r *BackfillReport) merge(o *BackfillReport) {
	r.Matched = append(r.Matched, o.Matched...)
	r.Ambiguous = append(r.Ambiguous, o.Ambiguous...)
	r.Unmatched = append(r.Unmatched, o.Unmatched...)
}

// withdrawalMatches reports whether commission could have been paid for w:
// w*rate within the tolerance of the commission amount, and the two at most
// matchTimeWindow apart.
func withdrawalMatches(commission, w models.Transaction) bool {
	expected := w.Amount.Mul(DefaultCommissionRate)
	if expected.Sub(commission.Amount).Abs().GreaterThanOrEqual(amountTolerance) {
		return false
	}
	gap := commission.CreatedAt.Sub(w.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	return gap <= matchTimeWindow
}

// Backfill attributes the referrer's legacy commission transactions. With a
// single referee every legacy commission goes to that referee. With several,
// a commission is attributed only when exactly one referee has a matching
// withdrawal; multiple matches are reported as ambiguous.
func (s *Service) Backfill(ctx context.Context, referrerID string) (*BackfillReport, error) {
	report := &BackfillReport{}

	referees, err := s.store.ListReferees(ctx, referrerID)
	if err != nil {
		return nil, storageErr("list referees", err)
	}
	// Legacy commissions carry no referee id, so only the word identifies them.
	earnings, err := s.store.QueryTransactions(ctx, TransactionQuery{
		UserID:              referrerID,
		Type:                models.TransactionEarning,
		DescriptionContains: "commission",
	})
	if err != nil {
		return nil, storageErr("query earnings", err)
	}

	withdrawals := make(map[string][]models.Transaction, len(referees))
	loadWithdrawals := func(refereeID string) ([]models.Transaction, error) {
		if ws, ok := withdrawals[refereeID]; ok {
			return ws, nil
		}
		ws, err := s.store.QueryTransactions(ctx, TransactionQuery{UserID: refereeID, Type: models.TransactionWithdrawal})
		if err != nil {
			return nil, storageErr("query withdrawals", err)
		}
		kept := ws[:0]
		for _, w := range ws {
			if w.Status != models.TransactionFailed {
				kept = append(kept, w)
			}
		}
		withdrawals[refereeID] = kept
		return kept, nil
	}

	touched := make(map[string]models.Profile)
	for _, tx := range earnings {
		if !isLegacyCommission(tx) {
			continue
		}

		var candidates []models.Profile
		switch len(referees) {
		case 0:
		case 1:
			candidates = referees
		default:
			for _, referee := range referees {
				ws, err := loadWithdrawals(referee.ID)
				if err != nil {
					return nil, err
				}
				for _, w := range ws {
					if withdrawalMatches(tx, w) {
						candidates = append(candidates, referee)
						break
					}
				}
			}
		}

		switch len(candidates) {
		case 0:
			report.Unmatched = append(report.Unmatched, tx.ID)
			monitoring.ReferralBackfillTotal.WithLabelValues("unmatched").Inc()
		case 1:
			referee := candidates[0]
			if err := s.store.UpdateTransactionDescription(ctx, tx.ID, CommissionDescription(referee.Email), referee.ID); err != nil {
				return nil, storageErr("rewrite description", err)
			}
			touched[referee.ID] = referee
			report.Matched = append(report.Matched, Attribution{
				TransactionID: tx.ID,
				RefereeID:     referee.ID,
				Email:         referee.Email,
				Amount:        tx.Amount,
				SingleReferee: len(referees) == 1,
			})
			monitoring.ReferralBackfillTotal.WithLabelValues("matched").Inc()
		default:
			amb := AmbiguousMatch{TransactionID: tx.ID, ReferrerID: referrerID, Amount: tx.Amount}
			for _, c := range candidates {
				amb.CandidateIDs = append(amb.CandidateIDs, c.ID)
				amb.Candidates = append(amb.Candidates, c.Email)
			}
			report.Ambiguous = append(report.Ambiguous, amb)
			monitoring.ReferralBackfillTotal.WithLabelValues("ambiguous").Inc()
			s.notify(reviewNotice(amb))
			s.logger.Warn("ambiguous legacy commission left for review",
				zap.String("transaction_id", tx.ID),
				zap.String("referrer_id", referrerID),
				zap.Strings("candidates", amb.Candidates))
		}
	}

	for _, referee := range touched {
		if _, err := s.RecomputeCommission(ctx, referrerID, referee.ID, referee.Email); err != nil {
			return nil, err
		}
	}
	if len(touched) > 0 {
		s.publish(referrerID)
	}

	s.logger.Info("backfill finished",
		zap.String("referrer_id", referrerID),
		zap.Int("matched", len(report.Matched)),
		zap.Int("ambiguous", len(report.Ambiguous)),
		zap.Int("unmatched", len(report.Unmatched)))
	return report, nil
}

// BackfillAll runs Backfill for every referrer. A failing referrer does not
// stop the others; failures are joined into the returned error.
func (s *Service) BackfillAll(ctx context.Context) (*BackfillReport, error) {
	referrerIDs, err := s.store.ListReferrerIDs(ctx)
	if err != nil {
		return nil, storageErr("list referrers", err)
	}

	total := &BackfillReport{}
	var errs []error
	for _, id := range referrerIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r, err := s.Backfill(ctx, id)
		if err != nil {
			s.logger.Error("backfill failed", zap.String("referrer_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("referrer %s: %w", id, err))
			continue
		}
		total.merge(r)
	}
	return total, errors.Join(errs...)
}

// RecomputeCommission re-sums the commission attributed to one referee and
// stores it on the edge.
func (s *Service) RecomputeCommission(ctx context.Context, referrerID, refereeID, email string) (decimal.Decimal, error) {
	earnings, err := s.store.QueryTransactions(ctx, TransactionQuery{UserID: referrerID, Type: models.TransactionEarning})
	if err != nil {
		return decimal.Zero, storageErr("query earnings", err)
	}
	total := CommissionFromReferee(earnings, refereeID, email)
	if err := s.store.UpdateTotalCommission(ctx, referrerID, refereeID, total); err != nil {
		return decimal.Zero, storageErr("update total commission", err)
	}
	return total, nil
}

// AttributeTransaction resolves a reviewed commission by hand: the
// transaction is credited to refereeID, who must have been referred by the
// transaction's owner.
func (s *Service) AttributeTransaction(ctx context.Context, transactionID, refereeID string) (*Attribution, error) {
	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, storageErr("get transaction", err)
	}
	if tx == nil || !IsCommission(*tx) {
		return nil, ErrTransactionNotFound
	}

	referee, err := s.store.GetProfile(ctx, refereeID)
	if err != nil {
		return nil, storageErr("get profile", err)
	}
	if referee == nil || !referee.HasReferrer() || *referee.ReferredBy != tx.UserID {
		return nil, ErrNotReferee
	}

	// Referees currently credited with tx, by id or by email, lose it below.
	referees, err := s.store.ListReferees(ctx, tx.UserID)
	if err != nil {
		return nil, storageErr("list referees", err)
	}
	var previous []models.Profile
	for _, r := range referees {
		if r.ID != referee.ID && attributedTo(*tx, r.ID, r.Email) {
			previous = append(previous, r)
		}
	}

	if err := s.store.UpdateTransactionDescription(ctx, tx.ID, CommissionDescription(referee.Email), referee.ID); err != nil {
		return nil, storageErr("rewrite description", err)
	}
	if _, err := s.RecomputeCommission(ctx, tx.UserID, referee.ID, referee.Email); err != nil {
		return nil, err
	}
	for _, p := range previous {
		if _, err := s.RecomputeCommission(ctx, tx.UserID, p.ID, p.Email); err != nil {
			return nil, err
		}
	}
	s.publish(tx.UserID)

	return &Attribution{
		TransactionID: tx.ID,
		RefereeID:     referee.ID,
		Email:         referee.Email,
		Amount:        tx.Amount,
	}, nil
}
