// notify/hub.go
package notify

import (
	"sync"
	"time"
)

// WildcardLogin subscribes to snapshots for every account.
const WildcardLogin int64 = 0

const subscriberBuffer = 16

// Snapshot is one live equity observation pushed to subscribers.
type Snapshot struct {
	Event      string    `json:"event"`
	Login      int64     `json:"login"`
	Equity     float64   `json:"equity"`
	Balance    float64   `json:"balance"`
	FloatingPL float64   `json:"floating_pl"`
	At         time.Time `json:"timestamp"`
}

type subscriber struct {
	login int64
	ch    chan Snapshot
}

// Hub fans live account snapshots out to in-process subscribers. Sends are
// non-blocking: a subscriber that falls behind loses messages rather than
// stalling the monitor loop.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers interest in one login, or every login via
// WildcardLogin. The returned cancel func must be called to release the
// subscription; the channel is closed on cancel.
func (h *Hub) Subscribe(login int64) (<-chan Snapshot, func()) {
	sub := &subscriber{login: login, ch: make(chan Snapshot, subscriberBuffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers a snapshot to the login's subscribers and every wildcard
// subscriber. Full buffers drop the message for that subscriber only.
func (h *Hub) Publish(snap Snapshot) {
	if snap.Event == "" {
		snap.Event = "account_update"
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if sub.login != WildcardLogin && sub.login != snap.Login {
			continue
		}
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
