package api

import (
	"testing"
	"time"
)

func TestRedisBrokerUnsubscribeClosesChannelOnce(t *testing.T) {
	// No server is listening; subscribe/teardown bookkeeping must still hold.
	b, err := NewRedisBroker("redis://127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	ch := b.Subscribe("run-1")

	b.mu.Lock()
	_, tracked := b.subs[ch]
	b.mu.Unlock()
	if !tracked {
		t.Fatal("subscription not tracked")
	}

	b.Unsubscribe("run-1", ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	b.mu.Lock()
	_, tracked = b.subs[ch]
	b.mu.Unlock()
	if tracked {
		t.Fatal("subscription still tracked after unsubscribe")
	}

	// a second unsubscribe of the same channel is a harmless no-op
	b.Unsubscribe("run-1", ch)
}
