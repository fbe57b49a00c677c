package referral

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
)

// LedgerBalance is completed earnings minus withdrawals that are pending or
// paid.
func LedgerBalance(txs []models.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.Type == models.TransactionEarning && tx.Status == models.TransactionCompleted:
			balance = balance.Add(tx.Amount)
		case tx.Type == models.TransactionWithdrawal && tx.Status != models.TransactionFailed:
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}

func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	txs, err := s.store.QueryTransactions(ctx, TransactionQuery{UserID: userID})
	if err != nil {
		return decimal.Zero, storageErr("query transactions", err)
	}
	return LedgerBalance(txs), nil
}

// Transactions lists a user's ledger.
func (s *Service) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs, err := s.store.QueryTransactions(ctx, TransactionQuery{UserID: userID})
	if err != nil {
		return nil, storageErr("query transactions", err)
	}
	return txs, nil
}

// RequestWithdrawal records a pending withdrawal of amount. The balance check
// and the insert are one unit of work in the store, so concurrent requests
// cannot overdraw.
func (s *Service) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        models.TransactionWithdrawal,
		Amount:      amount,
		Description: "Withdrawal request",
		Status:      models.TransactionPending,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertWithdrawal(ctx, tx); err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrProfileNotReady) {
			return nil, err
		}
		return nil, storageErr("insert withdrawal", err)
	}
	s.publish(userID)
	s.notify(withdrawalNotice(userID, amount))
	return tx, nil
}

// WithdrawalSettlement is the result of approving a withdrawal.
type WithdrawalSettlement struct {
	Withdrawal models.Transaction  `json:"withdrawal"`
	Split      WithdrawalSplit     `json:"split"`
	Commission *models.Transaction `json:"commission,omitempty"`
}

// ApproveWithdrawal completes a pending withdrawal and credits the
// withdrawing user's referrer with their commission, attributed by referee id
// and by email in the description.
func (s *Service) ApproveWithdrawal(ctx context.Context, withdrawalID string) (*WithdrawalSettlement, error) {
	w, err := s.pendingWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, w.UserID)
	if err != nil {
		return nil, storageErr("get profile", err)
	}
	if profile == nil {
		return nil, ErrProfileNotReady
	}

	split := ComputeWithdrawalSplit(w.Amount, profile.HasReferrer())
	var commission *models.Transaction
	if profile.HasReferrer() && split.ReferralCommission.IsPositive() {
		commission = &models.Transaction{
			ID:          uuid.NewString(),
			UserID:      *profile.ReferredBy,
			Type:        models.TransactionEarning,
			Amount:      split.ReferralCommission,
			Description: CommissionDescription(profile.Email),
			Status:      models.TransactionCompleted,
			RefereeID:   profile.ID,
			CreatedAt:   s.now(),
		}
	}

	if err := s.store.SettleWithdrawal(ctx, w.ID, models.TransactionCompleted, commission); err != nil {
		if errors.Is(err, ErrWithdrawalNotPending) {
			return nil, ErrWithdrawalNotPending
		}
		return nil, storageErr("settle withdrawal", err)
	}
	w.Status = models.TransactionCompleted

	if commission != nil {
		if _, err := s.RecomputeCommission(ctx, commission.UserID, profile.ID, profile.Email); err != nil {
			// The ledger is already correct; the edge total is recomputable.
			s.logger.Error("recompute commission after approval", zap.Error(err))
		}
		s.publish(commission.UserID)
		subject, text := commissionNotice(profile.Email, commission.Amount)
		s.notifyUser(ctx, commission.UserID, NotifyCommissionCredited, subject, text)
	}
	s.publish(w.UserID)

	s.logger.Info("withdrawal approved",
		zap.String("withdrawal_id", w.ID),
		zap.String("user_id", w.UserID),
		zap.String("net", split.NetAmount.StringFixed(2)),
		zap.String("commission", split.ReferralCommission.StringFixed(2)),
		zap.String("fee", split.CompanyFee.StringFixed(2)))

	return &WithdrawalSettlement{Withdrawal: *w, Split: split, Commission: commission}, nil
}

// RejectWithdrawal marks a pending withdrawal failed, returning its amount
// to the user's balance.
func (s *Service) RejectWithdrawal(ctx context.Context, withdrawalID string) error {
	w, err := s.pendingWithdrawal(ctx, withdrawalID)
	if err != nil {
		return err
	}
	if err := s.store.SettleWithdrawal(ctx, w.ID, models.TransactionFailed, nil); err != nil {
		if errors.Is(err, ErrWithdrawalNotPending) {
			return ErrWithdrawalNotPending
		}
		return storageErr("settle withdrawal", err)
	}
	s.publish(w.UserID)
	return nil
}

func (s *Service) pendingWithdrawal(ctx context.Context, id string) (*models.Transaction, error) {
	w, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, storageErr("get transaction", err)
	}
	if w == nil || w.Type != models.TransactionWithdrawal {
		return nil, ErrTransactionNotFound
	}
	if w.Status != models.TransactionPending {
		return nil, ErrWithdrawalNotPending
	}
	return w, nil
}
