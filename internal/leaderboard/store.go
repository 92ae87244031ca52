package leaderboard

import (
	"context"
	"database/sql"
)

// Store reads and writes leaderboard_entries.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Add inserts a validated submission and returns the stored entry.
func (s *Store) Add(ctx context.Context, sub Submission) (Entry, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries(player_name, score, level, time_completed)
		VALUES(?,?,?,?)`, sub.PlayerName, sub.Score, sub.Level, sub.TimeCompleted,
	)
	if err != nil {
		return Entry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:            id,
		PlayerName:    sub.PlayerName,
		Score:         sub.Score,
		Level:         sub.Level,
		TimeCompleted: sub.TimeCompleted,
	}, nil
}

// Top returns the best entries, highest score first. Ties go to the
// earlier entry.
func (s *Store) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = TopN
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_name, score, level, time_completed
		FROM leaderboard_entries
		ORDER BY score DESC, id ASC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PlayerName, &e.Score, &e.Level, &e.TimeCompleted); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
