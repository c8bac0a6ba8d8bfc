package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"phishtrainer/internal/rules"
	"phishtrainer/internal/wshub"
)

// handleSessionWS attaches a live watcher to the session. The socket
// receives the same event stream SSE subscribers get, and accepts click
// messages in place of the REST endpoints.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	active := s.getSession(r)
	if active == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[WS] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	client := &wshub.Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 16),
	}
	active.Hub.Register(client)
	defer active.Hub.Unregister(client.ID)

	go client.WritePump(r.Context())

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "click":
			verdict := active.Session.Click(rules.Input{ActionID: msg.ActionID, IsRealHint: msg.IsRealHint})
			if verdict == rules.PenalizeContinue || verdict == rules.PenalizeFail {
				wrongClicksTotal.WithLabelValues(active.Session.Level.ID).Inc()
			}
		case "popup":
			verdict := active.Session.ClickPopup(msg.PopupID, msg.Act)
			if verdict == rules.PenalizeContinue {
				wrongClicksTotal.WithLabelValues(active.Session.Level.ID).Inc()
			}
		}
	}
}
