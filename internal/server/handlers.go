package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"phishtrainer/internal/catalog"
	"phishtrainer/internal/leaderboard"
	"phishtrainer/internal/rules"
	"phishtrainer/internal/sessions"
)

type Server struct {
	Levels   *catalog.Set
	Sessions *sessions.Store
	Board    *leaderboard.Recorder
	TopLimit int
}

// playerID resolves the caller's identity from the player_id cookie,
// minting one for anonymous players.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie("player_id"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "player_id",
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

// getSession resolves the session from the request path.
func (s *Server) getSession(r *http.Request) *sessions.Active {
	return s.Sessions.Get(r.PathValue("id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

type levelView struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Mode             catalog.Mode      `json:"mode"`
	TimeLimitSeconds int               `json:"time_limit_seconds"`
	BaseScore        int               `json:"base_score"`
	Elements         []catalog.Element `json:"elements,omitempty"`
	Stages           []catalog.Stage   `json:"stages,omitempty"`
}

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	list := s.Levels.List()
	views := make([]levelView, 0, len(list))
	for _, lvl := range list {
		views = append(views, levelView{
			ID:               lvl.ID,
			Name:             lvl.Name,
			Mode:             lvl.Mode,
			TimeLimitSeconds: lvl.TimeLimitSeconds,
			BaseScore:        lvl.BaseScore,
			Elements:         lvl.Elements,
			Stages:           lvl.Stages,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LevelID string `json:"level_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	lvl := s.Levels.Get(req.LevelID)
	if lvl == nil {
		http.Error(w, "Level not found", http.StatusNotFound)
		return
	}

	active := s.Sessions.Create(lvl, s.playerID(w, r))
	sessionsStarted.WithLabelValues(lvl.ID).Inc()
	log.Printf("[Session] Started %s on level %s\n", active.Session.ID, lvl.ID)
	writeJSON(w, http.StatusCreated, active.Session.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	active := s.getSession(r)
	if active == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, active.Session.Snapshot())
}

type clickResponse struct {
	Verdict rules.Verdict `json:"verdict"`
	Session any           `json:"session"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	active := s.getSession(r)
	if active == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	var in rules.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	verdict := active.Session.Click(in)
	if verdict == rules.PenalizeContinue || verdict == rules.PenalizeFail {
		wrongClicksTotal.WithLabelValues(active.Session.Level.ID).Inc()
	}
	writeJSON(w, http.StatusOK, clickResponse{Verdict: verdict, Session: active.Session.Snapshot()})
}

func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	active := s.getSession(r)
	if active == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Act bool `json:"act"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	verdict := active.Session.ClickPopup(r.PathValue("pid"), req.Act)
	if verdict == rules.PenalizeContinue {
		wrongClicksTotal.WithLabelValues(active.Session.Level.ID).Inc()
	}
	writeJSON(w, http.StatusOK, clickResponse{Verdict: verdict, Session: active.Session.Snapshot()})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	active := s.getSession(r)
	if active == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	active.Session.Abandon()
	s.Sessions.Delete(active.Session.ID)
	writeJSON(w, http.StatusOK, active.Session.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	active := s.getSession(r)
	if active == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := active.Broadcaster.Subscribe()
	defer active.Broadcaster.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Data, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	levelID := r.PathValue("level")
	if s.Levels.Get(levelID) == nil {
		http.Error(w, "Level not found", http.StatusNotFound)
		return
	}
	entries, err := s.Board.Top(r.Context(), levelID, s.TopLimit)
	if err != nil {
		log.Printf("[Leaderboard] Top error: %v\n", err)
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level_id": levelID,
		"entries":  entries,
	})
}

// handlePriorAttempt returns the caller's best recorded attempt for the
// level, or null. Display-only: it never resumes a running session.
func (s *Server) handlePriorAttempt(w http.ResponseWriter, r *http.Request) {
	levelID := r.PathValue("level")
	if s.Levels.Get(levelID) == nil {
		http.Error(w, "Level not found", http.StatusNotFound)
		return
	}
	best, err := s.Board.Best(r.Context(), levelID, s.playerID(w, r))
	if err != nil {
		log.Printf("[Leaderboard] Best error: %v\n", err)
		http.Error(w, "Failed to load prior attempt", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{"status":"ok"}`)
}
