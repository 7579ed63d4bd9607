package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/room"
)

// DefaultListLimit caps ListByRoom when the caller passes a non-positive limit.
const DefaultListLimit = 50

// MatchRecord is a stored match result.
type MatchRecord struct {
	ID int64
	room.MatchResult
}

// MatchRepository stores and queries finished combat matches.
// It satisfies room.MatchRecorder.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a MatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// RecordMatch inserts one finished match.
//
// Postcondition: The match is stored, or a non-nil error is returned.
func (r *MatchRepository) RecordMatch(ctx context.Context, m room.MatchResult) error {
	finished := m.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO match_results (room, winner, loser, winner_hp, loser_hp, rounds, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.Room, m.Winner, m.Loser, m.WinnerHP, m.LoserHP, m.Rounds, finished,
	)
	if err != nil {
		return fmt.Errorf("inserting match result for room %s: %w", m.Room, err)
	}
	return nil
}

// ListByRoom returns the most recent matches for roomName, newest first. An
// empty roomName lists every room.
//
// Postcondition: Returns at most limit records (DefaultListLimit when limit <= 0).
func (r *MatchRepository) ListByRoom(ctx context.Context, roomName string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, room, winner, loser, winner_hp, loser_hp, rounds, finished_at
		 FROM match_results
		 WHERE $1 = '' OR room = $1
		 ORDER BY finished_at DESC, id DESC
		 LIMIT $2`,
		roomName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying match results: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MatchRecord, error) {
		var rec MatchRecord
		err := row.Scan(
			&rec.ID, &rec.Room, &rec.Winner, &rec.Loser,
			&rec.WinnerHP, &rec.LoserHP, &rec.Rounds, &rec.FinishedAt,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning match results: %w", err)
	}
	return records, nil
}
