package solver

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/c4solver/board"
)

// InvalidScore marks a full column in ScoreColumns. It is below any
// reachable score.
const InvalidScore = board.MinScore - 1

// FindBestMove returns the column to play in p. An immediately winning
// column is returned without searching. Otherwise every column is solved
// and one of the best is chosen at random.
func (s *Solver) FindBestMove(p board.Position) (int, error) {
	col, _, err := s.bestMove(p)
	return col, err
}

// bestMove returns the chosen column and its score for the side to move.
func (s *Solver) bestMove(p board.Position) (int, int, error) {
	if p.IsEmpty() {
		return DefaultFirstMove, s.Solve(p), nil
	}
	var best []int
	bestScore := InvalidScore
	for col := 0; col < board.Width; col++ {
		if !p.CanPlay(col) {
			continue
		}
		if p.IsWinningMove(col) {
			return col, (board.NumCells + 1 - p.NumMoves()) / 2, nil
		}
		child := p
		child.PlayColumn(col)
		score := -s.Solve(child)
		if score > bestScore {
			bestScore = score
			best = best[:0]
			best = append(best, col)
		} else if score == bestScore {
			best = append(best, col)
		}
	}
	if len(best) == 0 {
		return 0, 0, ErrNoLegalMove
	}
	return best[s.rng.Intn(len(best))], bestScore, nil
}

// Analyze ranks the playable columns of p into tiers of equal score, best
// tier first. The order inside a tier is random. If p has immediately
// winning columns, they are the only tier.
func (s *Solver) Analyze(p board.Position) [][]int {
	if p.IsEmpty() {
		return [][]int{{DefaultFirstMove}}
	}
	var wins []int
	for col := 0; col < board.Width; col++ {
		if p.CanPlay(col) && p.IsWinningMove(col) {
			wins = append(wins, col)
		}
	}
	if len(wins) > 0 {
		s.shuffle(wins)
		return [][]int{wins}
	}

	scores := s.ScoreColumns(p)
	playable := lo.Filter(lo.Range(board.Width), func(col int, _ int) bool {
		return scores[col] != InvalidScore
	})
	groups := lo.GroupBy(playable, func(col int) int {
		return scores[col]
	})
	keys := lo.Keys(groups)
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	tiers := make([][]int, 0, len(keys))
	for _, k := range keys {
		cols := groups[k]
		s.shuffle(cols)
		tiers = append(tiers, cols)
	}
	return tiers
}

// ScoreColumns returns the score of playing each column of p, from the
// point of view of the side to move. Full columns get InvalidScore.
func (s *Solver) ScoreColumns(p board.Position) []int {
	scores := make([]int, board.Width)
	for col := 0; col < board.Width; col++ {
		switch {
		case !p.CanPlay(col):
			scores[col] = InvalidScore
		case p.IsWinningMove(col):
			scores[col] = (board.NumCells + 1 - p.NumMoves()) / 2
		default:
			child := p
			child.PlayColumn(col)
			scores[col] = -s.Solve(child)
		}
	}
	return scores
}

func (s *Solver) shuffle(cols []int) {
	s.rng.Shuffle(len(cols), func(i, j int) {
		cols[i], cols[j] = cols[j], cols[i]
	})
}

// BestMoveResult describes one best-move query.
type BestMoveResult struct {
	Move    int           `json:"move" yaml:"move"`
	Score   int           `json:"score" yaml:"score"`
	Nodes   uint64        `json:"nodes" yaml:"nodes"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// BestMove picks a move for p and reports its score and the work done. It
// starts from an empty search table, so the score is exact even when the
// solver has answered other queries before.
func (s *Solver) BestMove(p board.Position) (BestMoveResult, error) {
	ts := time.Now()
	s.Reset()
	move, score, err := s.bestMove(p)
	if err != nil {
		return BestMoveResult{}, err
	}
	res := BestMoveResult{
		Move:    move,
		Score:   score,
		Nodes:   s.nodeCount,
		Elapsed: time.Since(ts),
	}
	log.Debug().Int("num-moves", p.NumMoves()).Int("score", score).
		Uint64("nodes", res.Nodes).Dur("elapsed", res.Elapsed).
		Int("best-move", move+1).Msg("best-move")
	return res, nil
}
