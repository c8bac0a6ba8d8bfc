package db

import (
	"context"
	"database/sql"
	"fmt"

	"phishtrainer/internal/leaderboard"
)

// RecordAttempt appends one finished attempt to the history table.
func (d *DB) RecordAttempt(ctx context.Context, r leaderboard.Record) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO attempts (level_id, player_id, score, elapsed_seconds, wrong_clicks, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.LevelID, r.PlayerID, r.Score, r.ElapsedSeconds, r.WrongClicks, r.Status)
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// UpsertBest keeps the leaderboard row only when the new score beats the
// stored one. Best score wins; ties keep the earlier attempt.
func (d *DB) UpsertBest(ctx context.Context, r leaderboard.Record) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO leaderboard (level_id, player_id, score, elapsed_seconds, wrong_clicks, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (level_id, player_id) DO UPDATE
		SET score = EXCLUDED.score,
		    elapsed_seconds = EXCLUDED.elapsed_seconds,
		    wrong_clicks = EXCLUDED.wrong_clicks,
		    updated_at = now()
		WHERE EXCLUDED.score > leaderboard.score
	`, r.LevelID, r.PlayerID, r.Score, r.ElapsedSeconds, r.WrongClicks)
	if err != nil {
		return fmt.Errorf("upserting best score: %w", err)
	}
	return nil
}

// BestAttempt returns the player's leaderboard row for a level, or nil.
func (d *DB) BestAttempt(ctx context.Context, levelID, playerID string) (*leaderboard.Record, error) {
	var r leaderboard.Record
	err := d.conn.QueryRowContext(ctx, `
		SELECT level_id, player_id, score, elapsed_seconds, wrong_clicks, updated_at
		FROM leaderboard
		WHERE level_id = $1 AND player_id = $2
	`, levelID, playerID).Scan(&r.LevelID, &r.PlayerID, &r.Score, &r.ElapsedSeconds, &r.WrongClicks, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting best attempt: %w", err)
	}
	r.Status = "succeeded"
	return &r, nil
}

// TopScores returns the level leaderboard, best first.
func (d *DB) TopScores(ctx context.Context, levelID string, limit int) ([]leaderboard.Entry, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT player_id, score
		FROM leaderboard
		WHERE level_id = $1
		ORDER BY score DESC, updated_at ASC
		LIMIT $2
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
