package referral_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral/referraltest"
)

func TestRequestWithdrawal(t *testing.T) {
	store := referraltest.New()
	user := addUser(store, "uuuuuuuu-0000-0000-0000-000000000001", "u@example.com")
	earning(store, user.ID, "100", "Task reward", baseTime)
	store.AddTransaction(models.Transaction{
		UserID: user.ID, Type: models.TransactionEarning, Amount: decimal.NewFromInt(500),
		Description: "Task reward", Status: models.TransactionPending, CreatedAt: baseTime,
	})
	svc := newService(store)
	ctx := context.Background()

	if _, err := svc.RequestWithdrawal(ctx, user.ID, decimal.Zero); !errors.Is(err, referral.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(101)); !errors.Is(err, referral.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	w, err := svc.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if w.Status != models.TransactionPending || w.Type != models.TransactionWithdrawal {
		t.Fatalf("unexpected withdrawal %+v", w)
	}
	balance, err := svc.Balance(ctx, user.ID)
	if err != nil || !balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("balance = %s, %v; want 40", balance, err)
	}
	// Pending withdrawals hold the balance.
	if _, err := svc.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(50)); !errors.Is(err, referral.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	store := referraltest.New()
	user := addUser(store, "uuuuuuuu-0000-0000-0000-000000000001", "u@example.com")
	earning(store, user.ID, "100", "Task reward", baseTime)
	svc := newService(store)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(100))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, referral.ErrInsufficientBalance):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || refused != workers-1 {
		t.Fatalf("succeeded=%d refused=%d, want 1 and %d", succeeded, refused, workers-1)
	}
	balance, err := svc.Balance(ctx, user.ID)
	if err != nil || !balance.IsZero() {
		t.Fatalf("balance = %s, %v; want 0", balance, err)
	}
}

func TestApproveWithdrawalCreditsReferrer(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	referee := refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "alice@example.com", baseTime)
	earning(store, referee.ID, "1000", "Task reward", baseTime)
	svc := newService(store, referral.WithHub(referral.NewHub()))
	view := referral.NewStatsView(svc)
	ctx := context.Background()

	before, _ := view.Get(ctx, referrer.ID)
	if !before.TotalCommissionEarned.IsZero() {
		t.Fatalf("initial commission %s", before.TotalCommissionEarned)
	}

	w, err := svc.RequestWithdrawal(ctx, referee.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	settlement, err := svc.ApproveWithdrawal(ctx, w.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !settlement.Split.NetAmount.Equal(decimal.NewFromInt(800)) ||
		!settlement.Split.ReferralCommission.Equal(decimal.NewFromInt(100)) ||
		!settlement.Split.CompanyFee.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected split %+v", settlement.Split)
	}
	c := settlement.Commission
	if c == nil || c.UserID != referrer.ID || c.RefereeID != referee.ID ||
		c.Description != "Referral commission from alice@example.com" || !c.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected commission %+v", c)
	}

	stored, _ := store.Transaction(w.ID)
	if stored.Status != models.TransactionCompleted {
		t.Fatalf("withdrawal status %s", stored.Status)
	}
	edge, _ := store.Referral(referee.ID)
	if !edge.TotalCommission.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("edge total %s", edge.TotalCommission)
	}
	after, _ := view.Get(ctx, referrer.ID)
	if !after.TotalCommissionEarned.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("stats commission %s, want 100", after.TotalCommissionEarned)
	}

	if _, err := svc.ApproveWithdrawal(ctx, w.ID); !errors.Is(err, referral.ErrWithdrawalNotPending) {
		t.Fatalf("second approve err = %v", err)
	}
}

func TestApproveWithdrawalWithoutReferrer(t *testing.T) {
	store := referraltest.New()
	user := addUser(store, "uuuuuuuu-0000-0000-0000-000000000001", "u@example.com")
	earning(store, user.ID, "1000", "Task reward", baseTime)
	svc := newService(store)
	ctx := context.Background()

	w, err := svc.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	settlement, err := svc.ApproveWithdrawal(ctx, w.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if settlement.Commission != nil {
		t.Fatalf("unexpected commission %+v", settlement.Commission)
	}
	if !settlement.Split.CompanyFee.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("fee %s, want 200", settlement.Split.CompanyFee)
	}
}

func TestRejectWithdrawalRestoresBalance(t *testing.T) {
	store := referraltest.New()
	user := addUser(store, "uuuuuuuu-0000-0000-0000-000000000001", "u@example.com")
	earning(store, user.ID, "100", "Task reward", baseTime)
	svc := newService(store)
	ctx := context.Background()

	w, err := svc.RequestWithdrawal(ctx, user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.RejectWithdrawal(ctx, w.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	balance, _ := svc.Balance(ctx, user.ID)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance %s, want 100", balance)
	}
	if err := svc.RejectWithdrawal(ctx, w.ID); !errors.Is(err, referral.ErrWithdrawalNotPending) {
		t.Fatalf("err = %v", err)
	}
	if err := svc.RejectWithdrawal(ctx, "missing"); !errors.Is(err, referral.ErrTransactionNotFound) {
		t.Fatalf("err = %v", err)
	}
}
