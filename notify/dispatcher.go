// Package notify delivers referral ledger notifications: admin notices go to
// a Telegram chat, user notices go out by email.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Pawankshetri11/payoutclickmain-sub001/monitoring"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

// Sender delivers one notification over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n referral.Notification) error
}

// Dispatcher queues notifications and delivers them from Run. When the
// queue is full new notifications are dropped.
type Dispatcher struct {
	admin   []Sender
	users   []Sender
	queue   chan referral.Notification
	timeout time.Duration
	logger  *zap.Logger
}

var _ referral.Notifier = (*Dispatcher)(nil)

func NewDispatcher(size int, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   make(chan referral.Notification, size),
		timeout: timeout,
		logger:  logger,
	}
}

// AddAdmin registers a sender for notices without a recipient email.
func (d *Dispatcher) AddAdmin(s Sender) { d.admin = append(d.admin, s) }

// AddUser registers a sender for notices addressed to a user.
func (d *Dispatcher) AddUser(s Sender) { d.users = append(d.users, s) }

// Enabled reports whether any sender is registered.
func (d *Dispatcher) Enabled() bool { return len(d.admin)+len(d.users) > 0 }

func (d *Dispatcher) Notify(n referral.Notification) {
	select {
	case d.queue <- n:
	default:
		monitoring.NotificationsTotal.WithLabelValues("queue", "dropped").Inc()
		d.logger.Warn("notification dropped: queue full", zap.String("kind", n.Kind))
	}
}

// Run delivers queued notifications until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n referral.Notification) {
	senders := d.users
	if n.Email == "" {
		senders = d.admin
	}
	for _, s := range senders {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Send(sctx, n)
		cancel()
		if err != nil {
			monitoring.NotificationsTotal.WithLabelValues(s.Name(), "error").Inc()
			d.logger.Error("notification failed",
				zap.String("channel", s.Name()),
				zap.String("kind", n.Kind),
				zap.String("user_id", n.UserID),
				zap.Error(err))
			continue
		}
		monitoring.NotificationsTotal.WithLabelValues(s.Name(), "sent").Inc()
	}
}
