package referral

import "sync"

// Hub fans out "something changed for this user" signals. Signals carry no
// payload; subscribers re-read what they need. Delivery is coalescing: a slow
// subscriber sees at most one pending signal.
type Hub struct {
	mu    sync.RWMutex
	subs  map[string]map[chan struct{}]struct{}
	hooks []func(userID string)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// OnPublish registers fn to run synchronously, before subscribers are
// signalled, for every published user id.
func (h *Hub) OnPublish(fn func(userID string)) {
	h.mu.Lock()
	h.hooks = append(h.hooks, fn)
	h.mu.Unlock()
}

// Subscribe returns a channel signalled whenever userID changes and a func
// that releases it.
func (h *Hub) Subscribe(userID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan struct{}]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(userIDs ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range userIDs {
		if id == "" {
			continue
		}
		for _, fn := range h.hooks {
			fn(id)
		}
		for ch := range h.subs[id] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}
