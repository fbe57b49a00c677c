// Command migrate-commissions attributes legacy referral commissions to
// referees and prints the backfill report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
	"github.com/Pawankshetri11/payoutclickmain-sub001/database"
	"github.com/Pawankshetri11/payoutclickmain-sub001/logging"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

type options struct {
	referrerID string
	reconcile  bool
	timeout    time.Duration
}

func parseOptions(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	fs.StringVar(&opts.referrerID, "referrer", "", "backfill only this referrer id (default: all referrers)")
	fs.BoolVar(&opts.reconcile, "reconcile", false, "repair referee profiles missing referred_by before backfilling")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.timeout <= 0 {
		return opts, fmt.Errorf("timeout must be positive")
	}
	return opts, nil
}

type result struct {
	Repaired int                      `json:"repaired"`
	Report   *referral.BackfillReport `json:"report"`
	Error    string                   `json:"error,omitempty"`
}

func run(ctx context.Context, svc *referral.Service, opts options, out io.Writer) error {
	var res result
	if opts.reconcile {
		n, err := svc.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		res.Repaired = n
	}

	var err error
	if opts.referrerID != "" {
		res.Report, err = svc.Backfill(ctx, opts.referrerID)
	} else {
		res.Report, err = svc.BackfillAll(ctx)
	}
	if err != nil {
		if res.Report == nil {
			return fmt.Errorf("backfill: %w", err)
		}
		res.Error = err.Error()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}
	return err
}

// prepare brings the schema up to date before the store is used. Older
// databases lack transactions.referee_id, which every ledger query reads.
func prepare(ctx context.Context, migrate func(context.Context) error, store referral.Store, logger *zap.Logger) (*referral.Service, error) {
	if err := migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return referral.NewService(store, referral.WithLogger(logger)), nil
}

func main() {
	opts, err := parseOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.IsRelease(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	svc, err := prepare(ctx, func(ctx context.Context) error {
		return database.Migrate(ctx, pool, cfg.Referral.NotifyChannel, logger)
	}, database.NewStore(pool), logger)
	if err != nil {
		logger.Error("prepare", zap.Error(err))
		pool.Close()
		os.Exit(1)
	}
	if err := run(ctx, svc, opts, os.Stdout); err != nil {
		logger.Error("migration finished with errors", zap.Error(err))
		pool.Close()
		os.Exit(1)
	}
}
