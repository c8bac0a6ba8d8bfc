package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"phishtrainer/internal/events"
)

// EventMessage is one named SSE payload.
type EventMessage struct {
	Event string
	Data  string
}

// Broadcaster fans session events out to every subscribed watcher. Close
// stops the drain goroutine once the owning session is removed.
type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan EventMessage]bool

	stop     chan struct{}
	stopOnce sync.Once
}

func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan EventMessage]bool),
		stop:    make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-b.stop:
				return
			case ev := <-bus.StatusChanges:
				b.Broadcast("status", ev)
			case ev := <-bus.StageChanges:
				b.Broadcast("stage", ev)
			case ev := <-bus.PopupChanges:
				b.Broadcast("popup", ev)
			case ev := <-bus.Ticks:
				b.Broadcast("tick", ev)
			}
		}
	}()
	return b
}

// Close stops draining the bus. Safe to call more than once.
func (b *Broadcaster) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *Broadcaster) Subscribe() chan EventMessage {
	ch := make(chan EventMessage, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan EventMessage) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

// Broadcast marshals the payload and delivers it to every subscriber.
func (b *Broadcaster) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Broadcast] Marshal error: %v\n", err)
		return
	}

	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- EventMessage{Event: event, Data: string(data)}:
		default:
			// skip clients with full data channels
		}
	}
}
