package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"phishtrainer/internal/events"
)

func TestNewBroadcaster(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Mu.Lock()
	if len(b.Clients) != 1 {
		t.Errorf("clients count = %d, want 1", len(b.Clients))
	}
	b.Mu.Unlock()

	b.Unsubscribe(ch)

	b.Mu.Lock()
	if len(b.Clients) != 0 {
		t.Errorf("clients count after unsubscribe = %d, want 0", len(b.Clients))
	}
	b.Mu.Unlock()
}

func TestBroadcaster_Fanout(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Broadcast("tick", events.TickEvent{SessionID: "s1", Elapsed: 3})

	for _, ch := range []chan EventMessage{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "tick" {
				t.Errorf("event = %q, want tick", msg.Event)
			}
			var ev events.TickEvent
			if err := json.Unmarshal([]byte(msg.Data), &ev); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			if ev.Elapsed != 3 {
				t.Errorf("elapsed = %d, want 3", ev.Elapsed)
			}
		case <-time.After(1 * time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()

	// Fill the channel buffer (capacity 10)
	for i := 0; i < 10; i++ {
		b.Broadcast("fill", events.TickEvent{Elapsed: i})
	}

	// This should not block even though channel is full
	done := make(chan bool)
	go func() {
		b.Broadcast("overflow", events.TickEvent{Elapsed: 11})
		done <- true
	}()

	select {
	case <-done:
		// Success - didn't block
	case <-time.After(1 * time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_CloseStopsDrain(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()
	b.Close()
	b.Close() // safe to repeat

	// Give the drain goroutine a moment to observe the stop.
	time.Sleep(50 * time.Millisecond)
	bus.PublishStatus(events.StatusChangeEvent{SessionID: "s1", Status: "failed"})

	select {
	case msg := <-ch:
		t.Fatalf("got %+v after close, want nothing", msg)
	case <-time.After(100 * time.Millisecond):
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_BusForwarding(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)

	ch := b.Subscribe()

	bus.PublishStatus(events.StatusChangeEvent{SessionID: "s1", Status: "succeeded"})

	select {
	case msg := <-ch:
		if msg.Event != "status" {
			t.Errorf("event = %q, want status", msg.Event)
		}
		var ev events.StatusChangeEvent
		if err := json.Unmarshal([]byte(msg.Data), &ev); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if ev.Status != "succeeded" {
			t.Errorf("status = %q, want succeeded", ev.Status)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for status broadcast")
	}

	b.Unsubscribe(ch)
}
