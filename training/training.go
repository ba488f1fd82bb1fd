// Package training runs self-play sessions that look for positions the
// solver finds slow. Every such position has its children solved into the
// opening map and is written out so it can be added to a warmup book.
package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/positionstore"
	"github.com/domino14/c4solver/solver"
)

type Options struct {
	InitialSequence string
	// ResetPly restarts the game from InitialSequence once this many
	// moves have been played.
	ResetPly int
	// A move that takes at least Timeout to find marks a hard position.
	Timeout time.Duration
	// MaxIterations stops the session after this many moves. 0 runs until
	// ctx is done.
	MaxIterations int
	// RandomPly, if positive, plays a random column at that ply instead of
	// the best one so sessions do not repeat the same game.
	RandomPly int

	// HardMoves receives one sequence per line. Optional.
	HardMoves io.Writer
	// Store deduplicates hard positions across sessions. Optional.
	Store *positionstore.Store
}

// OptionsFromConfig fills the timing and reset options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InitialSequence: cfg.GetString(config.ConfigTrainingSequence),
		ResetPly:        cfg.GetInt(config.ConfigTrainingResetPly),
		Timeout:         time.Duration(cfg.GetInt(config.ConfigTrainingTimeout)) * time.Millisecond,
	}
}

type Result struct {
	Iterations int
	Games      int
	Hard       []string
}

// Run plays the solver against itself until ctx is done or
// opts.MaxIterations moves have been made.
func Run(ctx context.Context, s *solver.Solver, opts Options) (*Result, error) {
	initial, err := board.FromSequence(opts.InitialSequence)
	if err != nil {
		return nil, err
	}
	res := &Result{Games: 1}
	seen := map[string]bool{}
	seq := opts.InitialSequence
	pos := initial

	restart := func() {
		seq = opts.InitialSequence
		pos = initial
		res.Games++
	}

	log.Info().Str("initial-sequence", seq).Dur("timeout", opts.Timeout).
		Int("reset-ply", opts.ResetPly).Msg("training-session-started")
	for opts.MaxIterations == 0 || res.Iterations < opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return res, err
		}
		if pos.NumMoves() >= opts.ResetPly {
			restart()
		}

		s.Reset()
		ts := time.Now()
		move, err := s.FindBestMove(pos)
		elapsed := time.Since(ts)
		if errors.Is(err, solver.ErrNoLegalMove) {
			restart()
			continue
		} else if err != nil {
			return res, err
		}
		res.Iterations++

		if elapsed >= opts.Timeout && !seen[seq] {
			seen[seq] = true
			recorded, err := record(ctx, s, opts, pos, seq, move, elapsed)
			if err != nil {
				return res, err
			}
			if recorded {
				res.Hard = append(res.Hard, seq)
			}
		}

		if opts.RandomPly > 0 && pos.NumMoves() == opts.RandomPly {
			move = randomPlayable(s, pos)
		}
		if pos.IsWinningMove(move) {
			log.Debug().Str("sequence", seq).Int("winning-move", move+1).Msg("training-game-over")
			restart()
			continue
		}
		pos.PlayColumn(move)
		seq += string(rune('1' + move))
	}
	log.Info().Int("iterations", res.Iterations).Int("games", res.Games).
		Int("hard-positions", len(res.Hard)).Msg("training-session-finished")
	return res, nil
}

// record solves the children of a hard position into the opening map and
// reports whether the position is new to the store.
func record(ctx context.Context, s *solver.Solver, opts Options, pos board.Position,
	seq string, move int, elapsed time.Duration) (bool, error) {

	s.Insert(pos)
	if opts.Store != nil {
		added, err := opts.Store.Add(ctx, positionstore.HardPosition{
			Sequence: seq,
			NumMoves: pos.NumMoves(),
			BestMove: move,
			Elapsed:  elapsed,
			FoundAt:  time.Now(),
		})
		if err != nil || !added {
			return false, err
		}
	}
	log.Info().Str("sequence", seq).Dur("elapsed", elapsed).Msg("hard-position-found")
	if opts.HardMoves != nil {
		if _, err := fmt.Fprintln(opts.HardMoves, seq); err != nil {
			return false, err
		}
	}
	return true, nil
}

func randomPlayable(s *solver.Solver, pos board.Position) int {
	for {
		if col := s.RandomMove(); pos.CanPlay(col) {
			return col
		}
	}
}
