package sessions

import (
	"encoding/json"
	"sync"
	"time"

	"phishtrainer/internal/broadcast"
	"phishtrainer/internal/catalog"
	"phishtrainer/internal/events"
	"phishtrainer/internal/session"
	"phishtrainer/internal/wshub"
)

// Finished sessions linger briefly so the player can fetch the summary;
// anything older gets swept.
const staleTTL = 30 * time.Minute

// Active bundles one live session with its event plumbing.
type Active struct {
	Session     *session.Session
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	CreatedAt   time.Time
}

// Store tracks active play-throughs by session id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Active
	saver    session.Saver
}

func NewStore(saver session.Saver) *Store {
	s := &Store{
		sessions: make(map[string]*Active),
		saver:    saver,
	}
	go s.sweepStale()
	return s
}

// Create starts a new session for the level and spins up its clock.
func (s *Store) Create(lvl *catalog.Level, playerID string) *Active {
	bus := events.NewBus()
	sess := session.New(lvl, playerID, bus, s.saver)
	a := &Active{
		Session:     sess,
		Broadcaster: broadcast.NewBroadcaster(bus),
		Hub:         wshub.NewHub(),
		CreatedAt:   time.Now(),
	}

	// WebSocket watchers see the same event stream as SSE subscribers.
	// The pipe lives exactly as long as the session: once it ends, any
	// queued events are flushed and the subscription is dropped.
	go func() {
		ch := a.Broadcaster.Subscribe()
		defer a.Broadcaster.Unsubscribe(ch)
		for {
			select {
			case <-sess.Done():
				for {
					select {
					case msg := <-ch:
						a.Hub.Broadcast(toServerMessage(msg))
					default:
						return
					}
				}
			case msg := <-ch:
				a.Hub.Broadcast(toServerMessage(msg))
			}
		}
	}()

	s.mu.Lock()
	s.sessions[sess.ID] = a
	s.mu.Unlock()

	go sess.RunClock()
	return a
}

func (s *Store) Get(id string) *Active {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func toServerMessage(msg broadcast.EventMessage) wshub.ServerMessage {
	return wshub.ServerMessage{
		Type:    "event",
		Event:   msg.Event,
		Payload: json.RawMessage(msg.Data),
	}
}

// Delete removes a session and stops its event plumbing.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.sessions[id]; ok {
		a.Broadcaster.Close()
		delete(s.sessions, id)
	}
}

func (s *Store) List() []*Active {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Active, 0, len(s.sessions))
	for _, a := range s.sessions {
		list = append(list, a)
	}
	return list
}

func (s *Store) sweepStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, a := range s.sessions {
			if now.Sub(a.CreatedAt) > staleTTL {
				a.Session.Abandon()
				a.Broadcaster.Close()
				delete(s.sessions, id)
			}
		}
		s.mu.Unlock()
	}
}
