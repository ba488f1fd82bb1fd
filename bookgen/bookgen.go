// Package bookgen builds opening books by solving positions in parallel.
package bookgen

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/openingbook"
	"github.com/domino14/c4solver/solver"
)

// Sequences returns one move sequence for every distinct position reachable
// in exactly depth moves where no one has won. Mirrored positions count once.
func Sequences(depth int) []string {
	seen := map[uint64]bool{}
	var out []string
	var walk func(p board.Position, seq []byte)
	walk = func(p board.Position, seq []byte) {
		if len(seq) == depth {
			if k := p.Key(); !seen[k] {
				seen[k] = true
				out = append(out, string(seq))
			}
			return
		}
		for col := 0; col < board.Width; col++ {
			if !p.CanPlay(col) || p.IsWinningMove(col) {
				continue
			}
			child := p
			child.PlayColumn(col)
			walk(child, append(seq, byte('1'+col)))
		}
	}
	walk(board.New(), make([]byte, 0, depth))
	return out
}

// Generate solves every position in seqs with threads independent solvers
// and returns one record per distinct position, in input order.
func Generate(ctx context.Context, seqs []string, threads int,
	newSolver func() (*solver.Solver, error)) ([]openingbook.Record, error) {

	threads = max(threads, 1)
	positions := make([]board.Position, len(seqs))
	for i, seq := range seqs {
		p, err := board.FromSequence(seq)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", seq, err)
		}
		positions[i] = p
	}
	solvers := make([]*solver.Solver, threads)
	for i := range solvers {
		s, err := newSolver()
		if err != nil {
			return nil, err
		}
		solvers[i] = s
	}

	scores := make([]int, len(positions))
	work := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range positions {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for t, s := range solvers {
		g.Go(func() error {
			for i := range work {
				s.Reset()
				scores[i] = s.Solve(positions[i])
				log.Debug().Int("thread", t).Str("sequence", seqs[i]).
					Int("score", scores[i]).Msg("book-position-solved")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[uint64]bool, len(positions))
	recs := make([]openingbook.Record, 0, len(positions))
	for i, p := range positions {
		k := p.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		recs = append(recs, openingbook.Record{Key: k, Score: solver.EncodeScore(scores[i])})
	}
	log.Info().Int("positions", len(positions)).Int("records", len(recs)).
		Int("threads", threads).Msg("book-generated")
	return recs, nil
}
