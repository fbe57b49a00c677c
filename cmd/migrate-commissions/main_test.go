package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral/referraltest"
)

func TestParseOptions(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts, err := parseOptions(fs, []string{"-referrer", "r1", "-reconcile", "-timeout", "30s"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.referrerID != "r1" || !opts.reconcile || opts.timeout != 30*time.Second {
		t.Fatalf("opts = %+v", opts)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := parseOptions(fs, []string{"-timeout", "0s"}); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestPrepareMigratesFirst(t *testing.T) {
	store := referraltest.New()
	ctx := context.Background()

	failing := errors.New("relation does not exist")
	if svc, err := prepare(ctx, func(context.Context) error { return failing }, store, zap.NewNop()); !errors.Is(err, failing) || svc != nil {
		t.Fatalf("prepare = %v, %v; want migration error", svc, err)
	}

	migrated := false
	svc, err := prepare(ctx, func(context.Context) error {
		migrated = true
		return nil
	}, store, zap.NewNop())
	if err != nil || !migrated {
		t.Fatalf("prepare: migrated=%v err=%v", migrated, err)
	}
	var out bytes.Buffer
	if err := run(ctx, svc, options{timeout: time.Minute}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRun(t *testing.T) {
	store := referraltest.New()
	referrer := store.AddProfile(models.Profile{Email: "ref@example.com"})
	referrerID := referrer.ID
	referee := store.AddProfile(models.Profile{Email: "only@example.com", ReferredBy: &referrerID})
	// Dangling: the edge exists but the profile field was never written.
	orphan := store.AddProfile(models.Profile{Email: "orphan@example.com"})
	store.AddReferral(models.Referral{ReferrerID: referrer.ID, RefereeID: referee.ID})
	store.AddReferral(models.Referral{ReferrerID: referrer.ID, RefereeID: orphan.ID})
	store.AddTransaction(models.Transaction{
		UserID: referrer.ID, Type: models.TransactionEarning, Amount: decimal.NewFromInt(20),
		Description: "Referral commission", CreatedAt: time.Now(),
	})

	svc := referral.NewService(store)
	var out bytes.Buffer
	if err := run(context.Background(), svc, options{reconcile: true}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var res struct {
		Repaired int `json:"repaired"`
		Report   struct {
			Matched   []referral.Attribution    `json:"matched"`
			Ambiguous []referral.AmbiguousMatch `json:"ambiguous"`
			Unmatched []string                  `json:"unmatched"`
		} `json:"report"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode %s: %v", out.String(), err)
	}
	if res.Repaired != 1 {
		t.Fatalf("repaired = %d, want 1", res.Repaired)
	}
	// Two referees and no withdrawals: nothing to match against.
	if len(res.Report.Matched) != 0 || len(res.Report.Unmatched) != 1 {
		t.Fatalf("report = %+v", res.Report)
	}
}

func TestRunSingleReferrer(t *testing.T) {
	store := referraltest.New()
	referrer := store.AddProfile(models.Profile{Email: "ref@example.com"})
	referrerID := referrer.ID
	referee := store.AddProfile(models.Profile{Email: "only@example.com", ReferredBy: &referrerID})
	store.AddReferral(models.Referral{ReferrerID: referrer.ID, RefereeID: referee.ID})
	legacy := store.AddTransaction(models.Transaction{
		UserID: referrer.ID, Type: models.TransactionEarning, Amount: decimal.NewFromInt(20),
		Description: "Referral commission", CreatedAt: time.Now(),
	})

	var out bytes.Buffer
	if err := run(context.Background(), referral.NewService(store), options{referrerID: referrer.ID}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	tx, _ := store.Transaction(legacy.ID)
	if tx.RefereeID != referee.ID {
		t.Fatalf("referee = %q, want %q", tx.RefereeID, referee.ID)
	}
	edge, _ := store.Referral(referee.ID)
	if !edge.TotalCommission.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("edge total = %s", edge.TotalCommission)
	}
}
