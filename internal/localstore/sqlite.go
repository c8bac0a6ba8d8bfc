package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"phishtrainer/internal/leaderboard"
)

// SQLiteStore is the on-disk fallback attempt store, used when no remote
// database is configured.
type SQLiteStore struct {
	db *sql.DB
}

func New(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			wrong_clicks INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_level_player ON attempts (level_id, player_id);`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			level_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			wrong_clicks INTEGER NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (level_id, player_id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, r leaderboard.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (level_id, player_id, score, elapsed_seconds, wrong_clicks, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.LevelID, r.PlayerID, r.Score, r.ElapsedSeconds, r.WrongClicks, r.Status)
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertBest(ctx context.Context, r leaderboard.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leaderboard (level_id, player_id, score, elapsed_seconds, wrong_clicks, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (level_id, player_id) DO UPDATE
		SET score = excluded.score,
		    elapsed_seconds = excluded.elapsed_seconds,
		    wrong_clicks = excluded.wrong_clicks,
		    updated_at = datetime('now')
		WHERE excluded.score > leaderboard.score
	`, r.LevelID, r.PlayerID, r.Score, r.ElapsedSeconds, r.WrongClicks)
	if err != nil {
		return fmt.Errorf("upserting best score: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BestAttempt(ctx context.Context, levelID, playerID string) (*leaderboard.Record, error) {
	var r leaderboard.Record
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT level_id, player_id, score, elapsed_seconds, wrong_clicks, updated_at
		FROM leaderboard
		WHERE level_id = ? AND player_id = ?
	`, levelID, playerID).Scan(&r.LevelID, &r.PlayerID, &r.Score, &r.ElapsedSeconds, &r.WrongClicks, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting best attempt: %w", err)
	}
	r.Status = "succeeded"
	return &r, nil
}

func (s *SQLiteStore) TopScores(ctx context.Context, levelID string, limit int) ([]leaderboard.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, score
		FROM leaderboard
		WHERE level_id = ?
		ORDER BY score DESC, updated_at ASC
		LIMIT ?
	`, levelID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting top scores: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.PlayerID, &e.Score); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
