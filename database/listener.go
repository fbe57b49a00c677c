package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidChannel reports whether name can be used as a notification channel.
func ValidChannel(name string) bool {
	return channelPattern.MatchString(name)
}

// Listener forwards Postgres notifications on one channel to a hub. Each
// payload is a user id.
type Listener struct {
	pool    *pgxpool.Pool
	hub     *referral.Hub
	channel string
	logger  *zap.Logger
}

func NewListener(pool *pgxpool.Pool, hub *referral.Hub, channel string, logger *zap.Logger) (*Listener, error) {
	if !ValidChannel(channel) {
		return nil, fmt.Errorf("invalid notify channel %q", channel)
	}
	return &Listener{pool: pool, hub: hub, channel: channel, logger: logger}, nil
}

// Run listens until ctx is done, reconnecting with exponential backoff when
// the connection drops.
func (l *Listener) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := l.listen(ctx, b.Reset)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		l.logger.Warn("notification listener disconnected", zap.String("channel", l.channel), zap.Error(err))
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
	)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (l *Listener) listen(ctx context.Context, connected func()) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	connected()
	l.logger.Info("listening for referral events", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.hub.Publish(n.Payload)
	}
}
