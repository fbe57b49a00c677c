package referral_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral/referraltest"
)

func TestGetReferralStatsFallsBackToEdgeTotals(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "a@example.com", baseTime)
	store.AddReferral(models.Referral{
		ReferrerID:      referrer.ID,
		RefereeID:       "bbbbbbbb-0000-0000-0000-000000000003",
		Status:          models.ReferralInactive,
		TotalCommission: decimal.RequireFromString("25.50"),
		CreatedAt:       baseTime,
	})
	earning(store, referrer.ID, "99", "Task reward", baseTime)
	svc := newService(store)

	stats, err := svc.GetReferralStats(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReferrals != 2 || stats.ActiveReferrals != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", stats.TotalReferrals, stats.ActiveReferrals)
	}
	if !stats.TotalCommissionEarned.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("commission = %s, want 25.50", stats.TotalCommissionEarned)
	}
	if !stats.PendingCommission.IsZero() {
		t.Fatalf("pending = %s, want 0", stats.PendingCommission)
	}
}

func TestGetReferralStatsSumsCommissionTransactions(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	refer(store, referrer.ID, "aaaaaaaa-0000-0000-0000-000000000002", "a@example.com", baseTime)
	earning(store, referrer.ID, "10", "Referral commission from a@example.com", baseTime)
	earning(store, referrer.ID, "2.25", "Referral commission", baseTime)
	earning(store, referrer.ID, "99", "Task reward", baseTime)
	svc := newService(store)

	stats, err := svc.GetReferralStats(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.TotalCommissionEarned.Equal(decimal.RequireFromString("12.25")) {
		t.Fatalf("commission = %s, want 12.25", stats.TotalCommissionEarned)
	}
}

func TestGetReferredUsersListEmpty(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	svc := newService(store)

	users, err := svc.GetReferredUsersList(context.Background(), referrer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Fatalf("users = %#v, want empty slice", users)
	}
}

func TestStatsViewCachesUntilChange(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	newbie := addUser(store, "cccccccc-0000-0000-0000-000000000003", "newbie@example.com")
	svc := newService(store, referral.WithHub(referral.NewHub()))
	view := referral.NewStatsView(svc)
	ctx := context.Background()

	stats, err := view.Get(ctx, referrer.ID)
	if err != nil || stats.TotalReferrals != 0 {
		t.Fatalf("initial stats %+v, %v", stats, err)
	}

	// A write that bypasses the service is not seen until a change is published.
	refer(store, referrer.ID, "dddddddd-0000-0000-0000-000000000004", "d@example.com", baseTime)
	if stats, _ := view.Get(ctx, referrer.ID); stats.TotalReferrals != 0 {
		t.Fatalf("expected cached stats, got %+v", stats)
	}

	if _, err := svc.ApplyReferralCode(ctx, referral.GenerateCode(referrer.ID), newbie.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if stats, _ := view.Get(ctx, referrer.ID); stats.TotalReferrals != 2 {
		t.Fatalf("expected refreshed stats, got %+v", stats)
	}
}

func TestStatsViewWatch(t *testing.T) {
	store := referraltest.New()
	referrer := addUser(store, "rrrrrrrr-0000-0000-0000-000000000001", "ref@example.com")
	newbie := addUser(store, "cccccccc-0000-0000-0000-000000000003", "newbie@example.com")
	svc := newService(store, referral.WithHub(referral.NewHub()))
	view := referral.NewStatsView(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan models.ReferralStats)
	done := make(chan error, 1)
	go func() { done <- view.Watch(ctx, referrer.ID, out) }()

	recv := func() models.ReferralStats {
		t.Helper()
		select {
		case s := <-out:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stats")
			return models.ReferralStats{}
		}
	}

	if s := recv(); s.TotalReferrals != 0 {
		t.Fatalf("initial stats %+v", s)
	}
	if _, err := svc.ApplyReferralCode(context.Background(), referral.GenerateCode(referrer.ID), newbie.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s := recv(); s.TotalReferrals != 1 || s.ActiveReferrals != 1 {
		t.Fatalf("updated stats %+v", s)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestHubCoalescesSignals(t *testing.T) {
	hub := referral.NewHub()
	ch, release := hub.Subscribe("u1")
	other, releaseOther := hub.Subscribe("u2")
	defer releaseOther()

	var hooked []string
	hub.OnPublish(func(id string) { hooked = append(hooked, id) })

	hub.Publish("u1", "", "u1")
	select {
	case <-ch:
	default:
		t.Fatal("expected a signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}
	select {
	case <-other:
		t.Fatal("u2 should not be signalled")
	default:
	}
	if len(hooked) != 2 {
		t.Fatalf("hooks ran %d times, want 2", len(hooked))
	}

	release()
	release()
	hub.Publish("u1")
	select {
	case <-ch:
		t.Fatal("released subscription still signalled")
	default:
	}
}
