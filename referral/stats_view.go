package referral

import (
	"context"
	"sync"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/monitoring"
)

// StatsView caches per-user referral stats. Entries are dropped when the hub
// reports a change for the user and recomputed on the next read.
type StatsView struct {
	svc *Service

	mu    sync.Mutex
	cache map[string]models.ReferralStats
	// gen bumps on every invalidation so a read racing a change is not
	// cached. One counter for all users keeps memory bounded by the cache.
	gen uint64
}

// NewStatsView wires a view to svc's hub. svc must have a hub.
func NewStatsView(svc *Service) *StatsView {
	v := &StatsView{svc: svc, cache: make(map[string]models.ReferralStats)}
	svc.hub.OnPublish(v.Invalidate)
	return v
}

func (v *StatsView) Invalidate(userID string) {
	v.mu.Lock()
	delete(v.cache, userID)
	v.gen++
	v.mu.Unlock()
}

func (v *StatsView) Get(ctx context.Context, userID string) (models.ReferralStats, error) {
	v.mu.Lock()
	stats, ok := v.cache[userID]
	gen := v.gen
	v.mu.Unlock()
	if ok {
		return stats, nil
	}

	stats, err := v.svc.GetReferralStats(ctx, userID)
	if err != nil {
		return stats, err
	}
	monitoring.ReferralStatsRecomputations.Inc()

	v.put(userID, stats, gen)
	return stats, nil
}

// put caches stats read at generation gen unless something was invalidated
// since.
func (v *StatsView) put(userID string, stats models.ReferralStats, gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen == gen {
		v.cache[userID] = stats
	}
}

// Watch sends fresh stats on out immediately and after every change for
// userID, until ctx is done. It returns the first read error.
func (v *StatsView) Watch(ctx context.Context, userID string, out chan<- models.ReferralStats) error {
	changes, cancel := v.svc.hub.Subscribe(userID)
	defer cancel()

	for {
		stats, err := v.Get(ctx, userID)
		if err != nil {
			return err
		}
		select {
		case out <- stats:
		case <-ctx.Done():
			return nil
		}
		select {
		case <-changes:
		case <-ctx.Done():
			return nil
		}
	}
}
