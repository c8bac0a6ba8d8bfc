package leaderboard

import (
	"context"
	"log"
	"time"

	"phishtrainer/internal/session"
)

// Record is the persistence shape of one finished attempt.
type Record struct {
	LevelID        string    `json:"level_id"`
	PlayerID       string    `json:"player_id"`
	Score          int       `json:"score"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	WrongClicks    int       `json:"wrong_clicks"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Entry is one leaderboard row.
type Entry struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Store is the narrow contract both storage media implement: Postgres when
// configured, SQLite on disk otherwise.
type Store interface {
	RecordAttempt(ctx context.Context, r Record) error
	UpsertBest(ctx context.Context, r Record) error
	BestAttempt(ctx context.Context, levelID, playerID string) (*Record, error)
	TopScores(ctx context.Context, levelID string, limit int) ([]Entry, error)
	Close() error
}

// Recorder accepts finished attempts and writes them in the background.
// Saves are best effort: a full buffer drops the attempt, a failed write is
// logged, and neither ever reaches the session.
type Recorder struct {
	store Store
	buf   chan session.Attempt
}

func NewRecorder(store Store) *Recorder {
	r := &Recorder{
		store: store,
		buf:   make(chan session.Attempt, 256),
	}
	go r.writer()
	return r
}

// SaveAttempt implements session.Saver. Never blocks.
func (r *Recorder) SaveAttempt(a session.Attempt) {
	select {
	case r.buf <- a:
	default:
		log.Println("[Leaderboard] attempt buffer full, dropping attempt")
	}
}

// Best returns the player's best recorded attempt for a level, or nil.
func (r *Recorder) Best(ctx context.Context, levelID, playerID string) (*Record, error) {
	return r.store.BestAttempt(ctx, levelID, playerID)
}

// Top returns the level's leaderboard, best score first.
func (r *Recorder) Top(ctx context.Context, levelID string, limit int) ([]Entry, error) {
	return r.store.TopScores(ctx, levelID, limit)
}

func (r *Recorder) writer() {
	for a := range r.buf {
		rec := Record{
			LevelID:        a.LevelID,
			PlayerID:       a.PlayerID,
			Score:          a.Score,
			ElapsedSeconds: a.ElapsedSeconds,
			WrongClicks:    a.WrongClicks,
			Status:         string(a.Status),
			UpdatedAt:      time.Now(),
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.RecordAttempt(ctx, rec); err != nil {
			log.Printf("[Leaderboard] RecordAttempt error: %v\n", err)
		}
		if a.Status == session.StatusSucceeded {
			if err := r.store.UpsertBest(ctx, rec); err != nil {
				log.Printf("[Leaderboard] UpsertBest error: %v\n", err)
			}
		}
		cancel()
	}
}
