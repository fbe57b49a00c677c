package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
)

// Connect opens the pool and checks the connection.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema. Every statement is idempotent so it runs on
// each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, channel string, logger *zap.Logger) error {
	if !ValidChannel(channel) {
		return fmt.Errorf("invalid notify channel %q", channel)
	}
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"profiles", createProfilesTable},
		{"referrals", createReferralsTable},
		{"transactions", createTransactionsTable},
		{"notify triggers", func(ctx context.Context, pool *pgxpool.Pool) error {
			return createNotifyTriggers(ctx, pool, channel)
		}},
	}
	for _, step := range steps {
		if err := step.fn(ctx, pool); err != nil {
			return fmt.Errorf("failed to create %s: %w", step.name, err)
		}
		logger.Info("schema ready", zap.String("part", step.name))
	}
	return nil
}

func createProfilesTable(ctx context.Context, pool *pgxpool.Pool) error {
	// pgcrypto for gen_random_uuid()
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return err
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(100) NOT NULL DEFAULT '',
			password_hash VARCHAR(255),
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			referred_by UUID REFERENCES profiles(id),
			referral_code TEXT GENERATED ALWAYS AS
				('REF' || upper(substr(replace(id::text, '-', ''), 1, 8))) STORED,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (referred_by IS NULL OR referred_by <> id)
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_profiles_referral_code ON profiles(referral_code);
		CREATE INDEX IF NOT EXISTS idx_profiles_referred_by ON profiles(referred_by);
	`)
	return err
}

func createReferralsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS referrals (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			referrer_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			referee_id UUID NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			commission_rate NUMERIC(5,4) NOT NULL DEFAULT 0.10,
			total_commission NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (referrer_id <> referee_id)
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON referrals(referrer_id);`)
	return err
}

func createTransactionsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			type VARCHAR(20) NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'completed',
			referee_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	// Older databases predate structured attribution.
	_, err = pool.Exec(ctx, `
		ALTER TABLE transactions ADD COLUMN IF NOT EXISTS referee_id UUID REFERENCES profiles(id) ON DELETE SET NULL;
		CREATE INDEX IF NOT EXISTS idx_transactions_user_type ON transactions(user_id, type);
	`)
	return err
}

// createNotifyTriggers publishes the affected user ids on channel whenever an
// edge or ledger row changes. Listener forwards them to the hub.
func createNotifyTriggers(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION notify_referral_event() RETURNS trigger AS $$
		BEGIN
			IF TG_TABLE_NAME = 'referrals' THEN
				PERFORM pg_notify('%[1]s', NEW.referrer_id::text);
				PERFORM pg_notify('%[1]s', NEW.referee_id::text);
			ELSE
				PERFORM pg_notify('%[1]s', NEW.user_id::text);
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;

		DROP TRIGGER IF EXISTS referrals_notify ON referrals;
		CREATE TRIGGER referrals_notify AFTER INSERT OR UPDATE ON referrals
			FOR EACH ROW EXECUTE FUNCTION notify_referral_event();

		DROP TRIGGER IF EXISTS transactions_notify ON transactions;
		CREATE TRIGGER transactions_notify AFTER INSERT OR UPDATE ON transactions
			FOR EACH ROW EXECUTE FUNCTION notify_referral_event();
	`, channel))
	return err
}
