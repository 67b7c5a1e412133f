package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	rid := "run-1"
	ch := b.Subscribe(rid)

	evt := RunEvent{Type: "run.progress", Data: map[string]any{"gen": 3}}
	b.Publish(rid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["gen"].(int) != 3 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(rid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		// acceptable if already drained and closed
	}
}

func TestBrokerIsolatesRuns(t *testing.T) {
	b := NewBroker()
	chA := b.Subscribe("run-a")
	chB := b.Subscribe("run-b")
	defer b.Unsubscribe("run-a", chA)
	defer b.Unsubscribe("run-b", chB)

	b.Publish("run-a", RunEvent{Type: "run.progress"})
	select {
	case <-chA:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("subscriber on run-a got nothing")
	}
	select {
	case evt := <-chB:
		t.Fatalf("subscriber on run-b got %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
