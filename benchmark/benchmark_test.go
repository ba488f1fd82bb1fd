package benchmark

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/c4solver/solver"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

const testSet = `# late middlegame positions
627633133147122711166373754662 5
442137631224666112243163351236 -6

31727414553247124473643666 -2
64225247215215164713277176 6
4444563636554132137411671667 2
`

func newSolver() (*solver.Solver, error) {
	return solver.New(1<<16+1, solver.WithRand(solver.SeededRand("bench")))
}

func TestParseTestSet(t *testing.T) {
	is := is.New(t)
	cases, err := ParseTestSet(strings.NewReader(testSet))
	is.NoErr(err)
	is.Equal(len(cases), 5)
	is.Equal(cases[1], TestCase{Sequence: "442137631224666112243163351236", Score: -6})
}

func TestParseTestSetErrors(t *testing.T) {
	is := is.New(t)
	_, err := ParseTestSet(strings.NewReader("4453 1\n4453\n"))
	is.True(err != nil && strings.Contains(err.Error(), "line 2"))
	_, err = ParseTestSet(strings.NewReader("4453 x\n"))
	is.True(err != nil && strings.Contains(err.Error(), "line 1"))
}

func TestRun(t *testing.T) {
	is := is.New(t)
	cases, err := ParseTestSet(strings.NewReader(testSet))
	is.NoErr(err)
	rep, err := Run(context.Background(), "late", cases, Options{Threads: 2, NewSolver: newSolver})
	is.NoErr(err)
	is.Equal(len(rep.Mismatches), 0)
	is.Equal(rep.Cases, 5)
	is.Equal(rep.Micros.N, 5)
	is.Equal(rep.Nodes.N, 5)
	is.True(rep.Nodes.Mean > 0)

	out, err := rep.YAML()
	is.NoErr(err)
	is.True(strings.Contains(string(out), "cases: 5"))
	is.True(strings.Contains(string(out), "threads: 2"))

	var buf bytes.Buffer
	is.NoErr(rep.Histogram(&buf, 5))
	is.True(buf.Len() > 0)
}

func TestRunMismatch(t *testing.T) {
	is := is.New(t)
	cases := []TestCase{{Sequence: "445566", Score: 3}}
	rep, err := Run(context.Background(), "wrong", cases, Options{Threads: 1, NewSolver: newSolver})
	is.NoErr(err)
	is.Equal(len(rep.Mismatches), 1)
	is.Equal(rep.Mismatches[0].Got, 18)
}

func TestRunInvalidSequence(t *testing.T) {
	is := is.New(t)
	cases := []TestCase{{Sequence: "4444444", Score: 0}}
	_, err := Run(context.Background(), "bad", cases, Options{Threads: 1, NewSolver: newSolver})
	is.True(err != nil)
}
