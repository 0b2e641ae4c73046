package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GameResult is one player's final line in a finished game.
type GameResult struct {
	RoomCode   string
	PlayerID   string
	PlayerName string
	Total      int
	Won        bool
	FinishedAt time.Time
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	PlayerName string `json:"playerName"`
	Total      int    `json:"total"`
	FinishedAt string `json:"finishedAt"`
}

// ResultsStore persists finished-game results. This is auxiliary history for
// the leaderboard; live session state never touches the database.
type ResultsStore struct {
	db *pgxpool.Pool
}

func NewResultsStore(db *pgxpool.Pool) *ResultsStore {
	return &ResultsStore{db: db}
}

// Record writes every player's final total for one game in a single batch.
func (s *ResultsStore) Record(ctx context.Context, results []GameResult) error {
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO game_results (room_code, player_id, player_name, total, won, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, r.RoomCode, r.PlayerID, r.PlayerName, r.Total, r.Won, r.FinishedAt)
	}
	return s.db.SendBatch(ctx, batch).Close()
}

// Top returns the best totals, newest first among equals.
func (s *ResultsStore) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT player_name, total, finished_at
		FROM game_results
		ORDER BY total DESC, finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		var at time.Time
		if err := rows.Scan(&e.PlayerName, &e.Total, &at); err != nil {
			return nil, err
		}
		e.FinishedAt = at.UTC().Format(time.RFC3339)
		out = append(out, e)
	}
	return out, rows.Err()
}
