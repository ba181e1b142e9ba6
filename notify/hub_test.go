package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToLoginSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1001)
	defer cancel()

	h.Publish(Snapshot{Login: 1001, Equity: 99500})
	h.Publish(Snapshot{Login: 2002, Equity: 50000}) // different login, filtered

	select {
	case snap := <-ch:
		assert.Equal(t, int64(1001), snap.Login)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot for the subscribed login")
	}
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot for login %d", snap.Login)
	default:
	}
}

func TestHubWildcardSeesEveryLogin(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(WildcardLogin)
	defer cancel()

	h.Publish(Snapshot{Login: 1001})
	h.Publish(Snapshot{Login: 2002})

	seen := map[int64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case snap := <-ch:
			seen[snap.Login] = true
		case <-time.After(time.Second):
			t.Fatal("expected two snapshots on the wildcard subscription")
		}
	}
	assert.True(t, seen[1001])
	assert.True(t, seen[2002])
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1001)
	defer cancel()

	// Publish past the buffer without draining; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish(Snapshot{Login: 1001, Equity: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1001)
	require.Equal(t, 1, h.SubscriberCount())

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount())

	// Publishing after cancel must not panic.
	h.Publish(Snapshot{Login: 1001})
}
