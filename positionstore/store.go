// Package positionstore keeps the positions a training session found hard
// to solve, in a sqlite database.
package positionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS hard_positions (
	sequence    TEXT PRIMARY KEY,
	num_moves   INTEGER NOT NULL,
	best_move   INTEGER NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	found_at    INTEGER NOT NULL
);`

// HardPosition is a position whose best move took long to find.
type HardPosition struct {
	Sequence string
	NumMoves int
	BestMove int
	Elapsed  time.Duration
	FoundAt  time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("position-store-opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add records hp. It returns false if the sequence was already stored.
func (s *Store) Add(ctx context.Context, hp HardPosition) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO hard_positions
		 (sequence, num_moves, best_move, elapsed_ms, found_at) VALUES (?, ?, ?, ?, ?)`,
		hp.Sequence, hp.NumMoves, hp.BestMove, hp.Elapsed.Milliseconds(), hp.FoundAt.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Seen reports whether sequence is stored.
func (s *Store) Seen(ctx context.Context, sequence string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM hard_positions WHERE sequence = ?`, sequence).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hard_positions`).Scan(&n)
	return n, err
}

// All returns every stored position, slowest first.
func (s *Store) All(ctx context.Context) ([]HardPosition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence, num_moves, best_move, elapsed_ms, found_at
		 FROM hard_positions ORDER BY elapsed_ms DESC, sequence`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HardPosition
	for rows.Next() {
		var hp HardPosition
		var ms, at int64
		if err := rows.Scan(&hp.Sequence, &hp.NumMoves, &hp.BestMove, &ms, &at); err != nil {
			return nil, err
		}
		hp.Elapsed = time.Duration(ms) * time.Millisecond
		hp.FoundAt = time.Unix(at, 0)
		out = append(out, hp)
	}
	return out, rows.Err()
}
