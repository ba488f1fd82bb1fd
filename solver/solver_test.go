package solver

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/openingbook"
	"github.com/domino14/c4solver/ttable"
)

const testTableSize = 1<<16 + 1

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func newTestSolver(t *testing.T) *Solver {
	s, err := New(testTableSize, WithRand(SeededRand("c4-test")))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func pos(t *testing.T, seq string) board.Position {
	p, err := board.FromSequence(seq)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// invalid marks a full column in the expectations below.
const invalid = InvalidScore

var goldenPositions = []struct {
	seq    string
	score  int
	scores []int
}{
	{"627633133147122711166373754662", 5, []int{invalid, 2, invalid, 5, 5, invalid, 2}},
	{"442137631224666112243163351236", -6, []int{invalid, invalid, invalid, -6, -6, invalid, -6}},
	{"156445151117145745776566727624", 5, []int{invalid, -6, 5, -6, invalid, -6, invalid}},
	{"542451516416164575142631656342", -2, []int{invalid, -6, -6, invalid, invalid, invalid, -2}},
	{"31727414553247124473643666", -2, []int{-8, -2, -8, invalid, -8, -8, -8}},
	{"37167453674322466435246571", -3, []int{-3, -3, -7, -3, -8, -3, -3}},
	{"64225247215215164713277176", 6, []int{-8, invalid, -8, 6, -8, -8, -8}},
	{"17155424443175156412427127", -5, []int{invalid, -8, -8, invalid, -8, -5, -8}},
	{"51552624111122215574266576", -1, []int{invalid, invalid, -1, -8, invalid, -8, -8}},
	{"44122621374742531372736217", -8, []int{-8, invalid, -8, -8, -8, -8, -8}},
	{"3547561232347216216354664126", 6, []int{2, 5, 5, 5, 6, invalid, 5}},
	{"4444563636554132137411671667", 2, []int{-7, -7, 2, invalid, -7, invalid, -7}},
	{"2635742365726342337623112557", 2, []int{-7, invalid, invalid, 2, -7, -7, -7}},
}

func TestNewNonPositiveSize(t *testing.T) {
	is := is.New(t)
	_, err := New(0)
	is.Equal(err, ttable.ErrNonPositiveCapacity)
	_, err = New(-5)
	is.Equal(err, ttable.ErrNonPositiveCapacity)
}

func TestColumnOrder(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	is.Equal(s.columnOrder, [board.Width]int{3, 4, 2, 5, 1, 6, 0})
}

func TestScoreEncoding(t *testing.T) {
	is := is.New(t)
	is.Equal(EncodeScore(board.MinScore), uint8(1))
	is.Equal(EncodeScore(board.MaxScore), uint8(37))
	for sc := board.MinScore; sc <= board.MaxScore; sc++ {
		is.Equal(DecodeScore(EncodeScore(sc)), sc)
	}
}

func TestSolveEmpty(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	is.Equal(s.Solve(board.New()), 1)
	is.Equal(s.NodeCount(), uint64(0))
}

func TestSolveImmediateWin(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	// x wins with its fourth stone.
	is.Equal(s.Solve(pos(t, "445566")), 18)
	is.Equal(s.NodeCount(), uint64(0))
}

func TestSolveForcedLoss(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	// o cannot stop x completing the bottom row with its fifth stone.
	is.Equal(s.Solve(pos(t, "4455661")), -17)
}

func TestSolveGolden(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		t.Run(tc.seq, func(t *testing.T) {
			is := is.New(t)
			s.Reset()
			is.Equal(s.Solve(pos(t, tc.seq)), tc.score)
		})
	}
}

func TestSolveMirror(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		is := is.New(t)
		s.Reset()
		is.Equal(s.Solve(pos(t, tc.seq).Mirror()), tc.score)
	}
}

func TestScoreColumnsGolden(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		t.Run(tc.seq, func(t *testing.T) {
			is := is.New(t)
			s.Reset()
			is.Equal(s.ScoreColumns(pos(t, tc.seq)), tc.scores)
		})
	}
}

func TestScoreColumnsWinningColumn(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	scores := s.ScoreColumns(pos(t, "445566"))
	is.Equal(scores[2], 18)
	is.Equal(scores[6], 18)
}

func TestNegamaxWindow(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		p := pos(t, tc.seq)
		if p.CanWinNext() {
			continue
		}
		for _, w := range [][2]int{{-18, 18}, {tc.score - 1, tc.score + 1}, {tc.score, tc.score + 1}, {tc.score - 1, tc.score}} {
			is := is.New(t)
			s.Reset()
			r := s.negamax(p, w[0], w[1])
			switch {
			case tc.score <= w[0]:
				is.True(tc.score <= r && r <= w[0])
			case tc.score >= w[1]:
				is.True(w[1] <= r && r <= tc.score)
			default:
				is.Equal(r, tc.score)
			}
		}
	}
}

func TestFindBestMoveEmpty(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	m, err := s.FindBestMove(board.New())
	is.NoErr(err)
	is.Equal(m, 3)
	is.Equal(s.Analyze(board.New()), [][]int{{3}})
}

func TestFindBestMoveImmediateWin(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	// x threatens both ends of its bottom row; column 1 is the lowest win.
	m, err := s.FindBestMove(pos(t, "262636"))
	is.NoErr(err)
	is.Equal(m, 0)
	is.Equal(s.NodeCount(), uint64(0))

	// columns left of the lowest winning column are still solved.
	m, err = s.FindBestMove(pos(t, "445566"))
	is.NoErr(err)
	is.Equal(m, 2)
}

func TestFindBestMoveGolden(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		is := is.New(t)
		s.Reset()
		m, err := s.FindBestMove(pos(t, tc.seq))
		is.NoErr(err)
		is.Equal(tc.scores[m], tc.score)
	}
}

func TestFindBestMoveDeterministic(t *testing.T) {
	is := is.New(t)
	a, err := New(testTableSize, WithRand(SeededRand("same")))
	is.NoErr(err)
	b, err := New(testTableSize, WithRand(SeededRand("same")))
	is.NoErr(err)
	// five columns tie here.
	p := pos(t, "37167453674322466435246571")
	for i := 0; i < 10; i++ {
		ma, err := a.FindBestMove(p)
		is.NoErr(err)
		mb, err := b.FindBestMove(p)
		is.NoErr(err)
		is.Equal(ma, mb)
	}
}

func TestFindBestMoveFullBoard(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	grid := [][]int{
		{2, 1, 2, 1, 2, 1, 2},
		{2, 1, 2, 1, 2, 1, 2},
		{1, 2, 1, 2, 1, 2, 1},
		{1, 2, 1, 2, 1, 2, 1},
		{2, 1, 2, 1, 2, 1, 2},
		{1, 2, 1, 2, 1, 2, 1},
	}
	_, err := s.FindBestMove(board.FromGrid(grid))
	is.Equal(err, ErrNoLegalMove)
}

func TestAnalyzeTiers(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	tiers := s.Analyze(pos(t, "37167453674322466435246571"))
	is.Equal(len(tiers), 3)
	first := append([]int(nil), tiers[0]...)
	sort.Ints(first)
	is.Equal(first, []int{0, 1, 3, 5, 6})
	is.Equal(tiers[1], []int{2})
	is.Equal(tiers[2], []int{4})
}

func TestAnalyzeGolden(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		is := is.New(t)
		s.Reset()
		tiers := s.Analyze(pos(t, tc.seq))
		seen := 0
		prev := board.MaxScore + 1
		for _, tier := range tiers {
			is.True(len(tier) > 0)
			sc := tc.scores[tier[0]]
			is.True(sc < prev)
			for _, col := range tier {
				is.Equal(tc.scores[col], sc)
				seen++
			}
			prev = sc
		}
		is.Equal(tc.scores[tiers[0][0]], tc.score)
		playable := 0
		for _, sc := range tc.scores {
			if sc != invalid {
				playable++
			}
		}
		is.Equal(seen, playable)
	}
}

func TestAnalyzeWinningTier(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	tiers := s.Analyze(pos(t, "445566"))
	is.Equal(len(tiers), 1)
	cols := append([]int(nil), tiers[0]...)
	sort.Ints(cols)
	is.Equal(cols, []int{2, 6})
}

func TestRandomMove(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	for i := 0; i < 100; i++ {
		m := s.RandomMove()
		is.True(m >= 0 && m < board.Width)
	}
}

func TestInsert(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	tc := goldenPositions[5]
	p := pos(t, tc.seq)
	n := s.Insert(p)
	is.Equal(n, 7)
	is.Equal(s.TranspositionTable().OpeningSize(), 7)
	s.Reset()
	for col := 0; col < board.Width; col++ {
		child := p
		child.PlayColumn(col)
		// the opening map survives Reset.
		is.Equal(DecodeScore(s.TranspositionTable().Get(child.Key())), -tc.scores[col])
	}
}

func TestGetReadyPrecedence(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	opening := filepath.Join(dir, "opening.book")
	warmup := filepath.Join(dir, "warmup.book")
	p := pos(t, "4453")
	key := p.Key()
	is.NoErr(openingbook.WriteFile(opening, []openingbook.Record{{Key: key, Score: EncodeScore(-2)}}))
	is.NoErr(openingbook.WriteFile(warmup, []openingbook.Record{
		{Key: key, Score: EncodeScore(4)},
		{Key: 12345, Score: EncodeScore(1)},
	}))

	s := newTestSolver(t)
	s.GetReady(opening, warmup)
	is.Equal(s.TranspositionTable().OpeningSize(), 2)
	// book scores are returned as-is.
	is.Equal(s.Solve(p), -2)
	is.Equal(s.NodeCount(), uint64(0))
}

func TestGetReadyMissingBooks(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	s := newTestSolver(t)
	s.GetReady(filepath.Join(dir, "none.book"), filepath.Join(dir, "none2.book"))
	is.Equal(s.TranspositionTable().OpeningSize(), 0)
	_, err := s.LoadOpeningBook(filepath.Join(dir, "none.book"))
	is.True(err != nil)
}

func TestBestMove(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	tc := goldenPositions[6]
	res, err := s.BestMove(pos(t, tc.seq))
	is.NoErr(err)
	is.Equal(res.Score, tc.score)
	is.Equal(res.Move, 3)
	is.True(res.Nodes > 0)
}

func TestBestMoveAfterEarlierQueries(t *testing.T) {
	s := newTestSolver(t)
	for _, tc := range goldenPositions {
		is := is.New(t)
		// leave the search table full of bounds from the parent's search.
		s.Solve(pos(t, tc.seq[:len(tc.seq)-2]))
		res, err := s.BestMove(pos(t, tc.seq))
		is.NoErr(err)
		is.Equal(res.Score, tc.score)
		is.Equal(tc.scores[res.Move], tc.score)
	}
}

func TestInsertAfterEarlierQueries(t *testing.T) {
	is := is.New(t)
	s := newTestSolver(t)
	tc := goldenPositions[4]
	p := pos(t, tc.seq)
	s.Solve(pos(t, tc.seq[:len(tc.seq)-2]))
	s.ScoreColumns(p)
	s.Insert(p)
	for col := 0; col < board.Width; col++ {
		if tc.scores[col] == invalid {
			continue
		}
		child := p
		child.PlayColumn(col)
		is.Equal(DecodeScore(s.TranspositionTable().Get(child.Key())), -tc.scores[col])
	}
}
