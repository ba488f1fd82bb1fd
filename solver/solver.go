// Package solver computes exact Connect-Four scores and best moves.
//
// Scores are from the point of view of the side to move. A positive score
// means the mover wins; the larger it is, the sooner. A negative score means
// the mover loses, and 0 is a draw. A win with the mover's k-th stone (of 21)
// scores 22-k.
package solver

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/cache"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/openingbook"
	"github.com/domino14/c4solver/ttable"
)

// DefaultFirstMove is played on an empty board.
const DefaultFirstMove = board.CenterColumn

var ErrNoLegalMove = errors.New("no legal move")

// Rand is the source of randomness used to break ties between equally
// scored columns.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

type Option func(*Solver)

// WithRand makes the solver use r for every random choice.
func WithRand(r Rand) Option {
	return func(s *Solver) {
		s.rng = r
	}
}

// Solver owns a transposition table and is not safe for concurrent use.
// Run one Solver per goroutine.
type Solver struct {
	tt          *ttable.TranspositionTable
	nodeCount   uint64
	columnOrder [board.Width]int
	rng         Rand
}

// New creates a solver whose transposition table has size slots.
func New(size int, opts ...Option) (*Solver, error) {
	tt, err := ttable.New(size)
	if err != nil {
		return nil, err
	}
	s := &Solver{tt: tt}
	for i := 0; i < board.Width; i++ {
		s.columnOrder[i] = board.Width/2 + (2*(i%2)-1)*((i+1)/2)
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = frand.New()
	}
	return s, nil
}

// NewFromConfig creates a solver sized and seeded by cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Solver, error) {
	size := cfg.GetInt(config.ConfigTTSize)
	if f := cfg.GetFloat64(config.ConfigTTFractionOfMem); f > 0 {
		size = ttable.SizeForMemory(f, size)
	}
	if seed := cfg.GetString(config.ConfigSeed); seed != "" {
		opts = append([]Option{WithRand(SeededRand(seed))}, opts...)
	}
	return New(size, opts...)
}

// SeededRand returns a deterministic generator derived from seed.
func SeededRand(seed string) *frand.RNG {
	var b [32]byte
	for i := 0; i < len(b)/8; i++ {
		binary.LittleEndian.PutUint64(b[i*8:], xxhash.Sum64String(fmt.Sprintf("%d:%s", i, seed)))
	}
	return frand.NewCustom(b[:], 1024, 12)
}

// EncodeScore biases a score into the 1..37 range the table stores.
func EncodeScore(score int) uint8 {
	return uint8(score - board.MinScore + 1)
}

// DecodeScore undoes EncodeScore.
func DecodeScore(v uint8) int {
	return int(v) + board.MinScore - 1
}

// Reset clears the node counter and the search table. Opening entries
// survive.
func (s *Solver) Reset() {
	s.nodeCount = 0
	s.tt.Reset()
}

// NodeCount returns the number of nodes explored since the last Reset.
func (s *Solver) NodeCount() uint64 {
	return s.nodeCount
}

func (s *Solver) TranspositionTable() *ttable.TranspositionTable {
	return s.tt
}

func (s *Solver) loadBook(path string) (openingbook.Stats, error) {
	obj, err := cache.Load(path, func(key string) (any, error) {
		recs, st, err := openingbook.ReadFile(key)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", key).Int("records", st.Records).
			Str("digest", fmt.Sprintf("%016x", st.Digest)).Msg("opening-book-decoded")
		return recs, nil
	})
	if err != nil {
		return openingbook.Stats{}, err
	}
	recs := obj.([]openingbook.Record)
	st := openingbook.Stats{Records: len(recs)}
	for _, r := range recs {
		if s.tt.PutOpening(r.Key, r.Score) {
			st.Inserted++
		}
	}
	return st, nil
}

// LoadOpeningBook loads the book at path into the opening map.
func (s *Solver) LoadOpeningBook(path string) (openingbook.Stats, error) {
	return s.loadBook(path)
}

// Warmup loads a warmup book. Keys already present in the opening map are
// not overwritten, so load it after the opening book.
func (s *Solver) Warmup(path string) (openingbook.Stats, error) {
	return s.loadBook(path)
}

// GetReady loads the opening book and then the warmup book. A book that
// cannot be read is logged and skipped.
func (s *Solver) GetReady(openingPath, warmupPath string) {
	ts := time.Now()
	st, err := s.LoadOpeningBook(openingPath)
	if err != nil {
		log.Warn().Err(err).Str("path", openingPath).Msg("opening-book-not-loaded")
	}
	log.Info().Int("positions", st.Inserted).Dur("elapsed", time.Since(ts)).
		Msg("opening-book-loaded")

	ts = time.Now()
	st, err = s.Warmup(warmupPath)
	if err != nil {
		log.Warn().Err(err).Str("path", warmupPath).Msg("warmup-book-not-loaded")
	}
	log.Info().Int("positions", st.Inserted).Dur("elapsed", time.Since(ts)).
		Msg("warmup-book-loaded")
}

// RandomMove returns a uniformly random column index. The column may be
// full.
func (s *Solver) RandomMove() int {
	return s.rng.Intn(board.Width)
}

// Insert solves every child of p and records the results in the opening
// map, so later searches through p never repeat the work. The search table
// is cleared first so that no child score is read back from a bound.
func (s *Solver) Insert(p board.Position) int {
	s.tt.Reset()
	n := 0
	for col := 0; col < board.Width; col++ {
		if !p.CanPlay(col) || p.IsWinningMove(col) {
			continue
		}
		child := p
		child.PlayColumn(col)
		if s.tt.PutOpening(child.Key(), EncodeScore(s.Solve(child))) {
			n++
		}
	}
	return n
}
