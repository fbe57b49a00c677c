package referral_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral/referraltest"
)

const day = 24 * time.Hour

// refer adds a referee profile already linked to referrerID.
func refer(store *referraltest.Store, referrerID, id, email string, joined time.Time) models.Profile {
	ref := referrerID
	p := store.AddProfile(models.Profile{ID: id, Email: email, Name: email, ReferredBy: &ref, CreatedAt: joined})
	store.AddReferral(models.Referral{
		ReferrerID:      referrerID,
		RefereeID:       id,
		CommissionRate:  referral.DefaultCommissionRate,
		TotalCommission: decimal.Zero,
		CreatedAt:       joined,
	})
	return p
}

func earning(store *referraltest.Store, userID, amount, description string, at time.Time) models.Transaction {
	return store.AddTransaction(models.Transaction{
		UserID:      userID,
		Type:        models.TransactionEarning,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		CreatedAt:   at,
	})
}

func withdrawal(store *referraltest.Store, userID, amount string, at time.Time) models.Transaction {
	return store.AddTransaction(models.Transaction{
		UserID:      userID,
		Type:        models.TransactionWithdrawal,
		Amount:      decimal.RequireFromString(amount),
		Description: "Withdrawal request",
		CreatedAt:   at,
	})
}

func TestCommissionFromReferee(t *testing.T) {
	txs := []models.Transaction{
		{Type: models.TransactionEarning, Amount: decimal.NewFromInt(10), Description: "Referral commission from alice@example.com"},
		{Type: models.TransactionEarning, Amount: decimal.NewFromInt(5), Description: "referral commission from ALICE@example.com"},
		{Type: models.TransactionEarning, Amount: decimal.NewFromInt(7), Description: "Referral commission from bob@example.com"},
		{Type: models.TransactionEarning, Amount: decimal.NewFromInt(3), Description: "Referral commission"},
		{Type: models.TransactionEarning, Amount: decimal.NewFromInt(2), Description: "anything", RefereeID: "alice"},
		{Type: models.TransactionEarning, Amount: decimal.NewFromInt(4), Description: "Referral commission from alice@example.com", RefereeID: "bob"},
		{Type: models.TransactionWithdrawal, Amount: decimal.NewFromInt(100), Description: "alice@example.com"},
	}

	got := referral.CommissionFromReferee(txs, "alice", "alice@example.com")
	if !got.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("alice commission = %s, want 17", got)
	}
	got = referral.CommissionFromReferee(txs, "bob", "bob@example.com")
	if !got.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("bob commission = %s, want 11", got)
	}
	got = referral.CommissionFromReferee(txs, "carol", "carol@example.com")
	if !got.IsZero() {
		t.Fatalf("carol commission = %s, want 0", got)
	}
}

func TestIsCommission(t *testing.T) {
	tests := []struct {
		tx   models.Transaction
		want bool
	}{
		{models.Transaction{Type: models.TransactionEarning, Description: "Referral commission from a@b.c"}, true},
		{models.Transaction{Type: models.TransactionEarning, Description: "COMMISSION bonus"}, true},
		{models.Transaction{Type: models.TransactionEarning, Description: "task reward", RefereeID: "x"}, true},
		{models.Transaction{Type: models.TransactionEarning, Description: "task reward"}, false},
		{models.Transaction{Type: models.TransactionWithdrawal, Description: "commission"}, false},
	}
	for _, tt := range tests {
		if got := referral.IsCommission(tt.tx); got != tt.want {
			t.Errorf("IsCommission(%+v) = %v, want %v", tt.tx, got, tt.want)
		}
	}
}

func TestBackfillSingleReferee(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	alice := refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "alice@example.com", baseTime)
	legacy1 := earning(store, referrer.ID, "12.50", "Referral commission", baseTime.Add(day))
	legacy2 := earning(store, referrer.ID, "40", "Referral commission", baseTime.Add(30*day))
	earning(store, referrer.ID, "99", "Task reward", baseTime)
	svc := newService(store)
	ctx := context.Background()

	report, err := svc.Backfill(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(report.Matched) != 2 || len(report.Ambiguous) != 0 || len(report.Unmatched) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, id := range []string{legacy1.ID, legacy2.ID} {
		tx, _ := store.Transaction(id)
		if tx.Description != "Referral commission from alice@example.com" || tx.RefereeID != alice.ID {
			t.Fatalf("transaction %s not attributed: %+v", id, tx)
		}
	}

	edge, _ := store.Referral(alice.ID)
	if !edge.TotalCommission.Equal(decimal.RequireFromString("52.50")) {
		t.Fatalf("total commission = %s, want 52.50", edge.TotalCommission)
	}

	users, err := svc.GetReferredUsersList(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || !users[0].CommissionEarned.Equal(decimal.RequireFromString("52.50")) {
		t.Fatalf("unexpected users %+v", users)
	}

	// Already attributed rows are skipped on a second run.
	again, err := svc.Backfill(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if len(again.Matched) != 0 {
		t.Fatalf("second backfill matched %d", len(again.Matched))
	}
}

func TestBackfillHeuristicTolerance(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	a := refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "a@example.com", baseTime)
	b := refer(store, referrer.ID, "bbbbbbbb-0000-0000-0000-000000000003", "b@example.com", baseTime.Add(time.Minute))
	withdrawal(store, a.ID, "500", baseTime)
	withdrawal(store, b.ID, "495", baseTime)
	legacy := earning(store, referrer.ID, "50", "Referral commission", baseTime.Add(day))
	svc := newService(store)
	ctx := context.Background()

	report, err := svc.Backfill(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(report.Matched) != 1 || report.Matched[0].RefereeID != a.ID || report.Matched[0].SingleReferee {
		t.Fatalf("unexpected report %+v", report)
	}

	tx, _ := store.Transaction(legacy.ID)
	if tx.Description != "Referral commission from a@example.com" {
		t.Fatalf("description = %q", tx.Description)
	}

	users, err := svc.GetReferredUsersList(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[string]decimal.Decimal{}
	for _, u := range users {
		got[u.ID] = u.CommissionEarned
	}
	if !got[a.ID].Equal(decimal.NewFromInt(50)) || !got[b.ID].IsZero() {
		t.Fatalf("commission per referee = %v", got)
	}
	// Newest join first.
	if users[0].ID != b.ID {
		t.Fatalf("expected newest referee first, got %s", users[0].ID)
	}
}

func TestBackfillAmbiguousLeftForReview(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	a := refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "a@example.com", baseTime)
	b := refer(store, referrer.ID, "bbbbbbbb-0000-0000-0000-000000000003", "b@example.com", baseTime.Add(time.Minute))
	withdrawal(store, a.ID, "500", baseTime)
	withdrawal(store, b.ID, "500.20", baseTime.Add(-day))
	legacy := earning(store, referrer.ID, "50", "Referral commission", baseTime.Add(day))
	svc := newService(store)
	ctx := context.Background()

	report, err := svc.Backfill(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(report.Ambiguous) != 1 || len(report.Matched) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	amb := report.Ambiguous[0]
	if amb.TransactionID != legacy.ID || len(amb.CandidateIDs) != 2 {
		t.Fatalf("unexpected ambiguous match %+v", amb)
	}
	tx, _ := store.Transaction(legacy.ID)
	if tx.Description != "Referral commission" || tx.RefereeID != "" {
		t.Fatalf("ambiguous transaction was modified: %+v", tx)
	}

	// Manual review resolves it.
	att, err := svc.AttributeTransaction(ctx, legacy.ID, b.ID)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if att.RefereeID != b.ID {
		t.Fatalf("attributed to %s", att.RefereeID)
	}
	edge, _ := store.Referral(b.ID)
	if !edge.TotalCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("b total = %s", edge.TotalCommission)
	}

	// Re-attribution moves the total between referees.
	if _, err := svc.AttributeTransaction(ctx, legacy.ID, a.ID); err != nil {
		t.Fatalf("re-attribute: %v", err)
	}
	edgeA, _ := store.Referral(a.ID)
	edgeB, _ := store.Referral(b.ID)
	if !edgeA.TotalCommission.Equal(decimal.NewFromInt(50)) || !edgeB.TotalCommission.IsZero() {
		t.Fatalf("totals a=%s b=%s", edgeA.TotalCommission, edgeB.TotalCommission)
	}
}

func TestAttributeTransactionMovesEmailMatchedCommission(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	a := refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "a@example.com", baseTime)
	b := refer(store, referrer.ID, "bbbbbbbb-0000-0000-0000-000000000003", "b@example.com", baseTime.Add(time.Minute))
	commission := earning(store, referrer.ID, "50", "Referral commission from A@example.com", baseTime)
	svc := newService(store)
	ctx := context.Background()

	if _, err := svc.RecomputeCommission(ctx, referrer.ID, a.ID, a.Email); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if edge, _ := store.Referral(a.ID); !edge.TotalCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("a total = %s, want 50", edge.TotalCommission)
	}

	if _, err := svc.AttributeTransaction(ctx, commission.ID, b.ID); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	edgeA, _ := store.Referral(a.ID)
	edgeB, _ := store.Referral(b.ID)
	if !edgeA.TotalCommission.IsZero() || !edgeB.TotalCommission.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("totals a=%s b=%s, want 0 and 50", edgeA.TotalCommission, edgeB.TotalCommission)
	}

	users, err := svc.GetReferredUsersList(ctx, referrer.ID)
	if err != nil || len(users) != 2 {
		t.Fatalf("list = %v, %v", users, err)
	}
	for _, u := range users {
		if edge, _ := store.Referral(u.ID); !edge.TotalCommission.Equal(u.CommissionEarned) {
			t.Fatalf("%s: edge total %s, ledger %s", u.Email, edge.TotalCommission, u.CommissionEarned)
		}
	}
}

func TestBackfillOutsideWindowIsUnmatched(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	a := refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "a@example.com", baseTime)
	refer(store, referrer.ID, "bbbbbbbb-0000-0000-0000-000000000003", "b@example.com", baseTime.Add(time.Minute))
	withdrawal(store, a.ID, "500", baseTime)
	// A failed withdrawal never backs a commission.
	store.AddTransaction(models.Transaction{
		UserID:    a.ID,
		Type:      models.TransactionWithdrawal,
		Amount:    decimal.NewFromInt(300),
		Status:    models.TransactionFailed,
		CreatedAt: baseTime.Add(10 * day),
	})
	legacyLate := earning(store, referrer.ID, "50", "Referral commission", baseTime.Add(4*day))
	legacyFailed := earning(store, referrer.ID, "30", "Referral commission", baseTime.Add(10*day))
	svc := newService(store)

	report, err := svc.Backfill(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if len(report.Unmatched) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	want := map[string]bool{legacyLate.ID: true, legacyFailed.ID: true}
	for _, id := range report.Unmatched {
		if !want[id] {
			t.Fatalf("unexpected unmatched %s", id)
		}
	}
}

func TestBackfillAllContinuesPastFailures(t *testing.T) {
	store := referraltest.New()
	r1 := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "r1@example.com")
	r2 := addUser(store, "rrrrrrrr-0000-0000-0000-000000000002", "r2@example.com")
	refer(store, r1.ID, "aaaaaaaa-0000-0000-0000-000000000003", "a@example.com", baseTime)
	refer(store, r2.ID, "bbbbbbbb-0000-0000-0000-000000000004", "b@example.com", baseTime)
	earning(store, r1.ID, "5", "Referral commission", baseTime)
	earning(store, r2.ID, "6", "Referral commission", baseTime)
	svc := newService(store)

	report, err := svc.BackfillAll(context.Background())
	if err != nil {
		t.Fatalf("backfill all: %v", err)
	}
	if len(report.Matched) != 2 {
		t.Fatalf("matched = %d, want 2", len(report.Matched))
	}

	store.Err = errors.New("boom")
	if _, err := svc.BackfillAll(context.Background()); !errors.Is(err, referral.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}

func TestAttributeTransactionRejectsStranger(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	stranger := addUser(store, "ssssssss-0000-0000-0000-000000000002", "s@example.com")
	legacy := earning(store, referrer.ID, "5", "Referral commission", baseTime)
	reward := earning(store, referrer.ID, "5", "Task reward", baseTime)
	svc := newService(store)
	ctx := context.Background()

	if _, err := svc.AttributeTransaction(ctx, legacy.ID, stranger.ID); !errors.Is(err, referral.ErrNotReferee) {
		t.Fatalf("err = %v, want ErrNotReferee", err)
	}
	if _, err := svc.AttributeTransaction(ctx, reward.ID, stranger.ID); !errors.Is(err, referral.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
	if _, err := svc.AttributeTransaction(ctx, "missing", stranger.ID); !errors.Is(err, referral.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}
