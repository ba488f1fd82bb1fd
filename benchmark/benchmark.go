// Package benchmark solves test sets of positions with known scores and
// reports timing and node statistics.
package benchmark

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/solver"
	"github.com/domino14/c4solver/stats"
)

const confidence = 95

// TestCase is one line of a test set: a move sequence and its exact score.
type TestCase struct {
	Sequence string `yaml:"sequence"`
	Score    int    `yaml:"score"`
}

// Mismatch is a test case the solver scored differently.
type Mismatch struct {
	TestCase `yaml:",inline"`
	Got      int `yaml:"got"`
}

type Report struct {
	Name       string        `yaml:"name"`
	Cases      int           `yaml:"cases"`
	Threads    int           `yaml:"threads"`
	Elapsed    time.Duration `yaml:"elapsed"`
	Micros     stats.Summary `yaml:"micros"`
	Nodes      stats.Summary `yaml:"nodes"`
	Mismatches []Mismatch    `yaml:"mismatches,omitempty"`

	nodeSamples []float64
}

type Options struct {
	Threads int
	// NewSolver is called once per worker.
	NewSolver func() (*solver.Solver, error)
}

// ParseTestSet reads `sequence score` pairs, one per line. Blank lines and
// lines starting with # are skipped.
func ParseTestSet(r io.Reader) ([]TestCase, error) {
	var cases []TestCase
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected `sequence score`, got %q", ln, line)
		}
		score, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln, err)
		}
		cases = append(cases, TestCase{Sequence: fields[0], Score: score})
	}
	return cases, sc.Err()
}

func LoadTestSet(path string) ([]TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTestSet(f)
}

type sample struct {
	micros float64
	nodes  float64
}

// Run solves every case with opts.Threads independent solvers. Each
// position is solved from an empty search table.
func Run(ctx context.Context, name string, cases []TestCase, opts Options) (*Report, error) {
	threads := max(opts.Threads, 1)
	work := make(chan int)
	var mu sync.Mutex
	rep := &Report{Name: name, Cases: len(cases), Threads: threads}
	var micros, nodes stats.Statistic

	solvers := make([]*solver.Solver, threads)
	for t := range solvers {
		s, err := opts.NewSolver()
		if err != nil {
			return nil, err
		}
		solvers[t] = s
	}

	ts := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range cases {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for _, s := range solvers {
		g.Go(func() error {
			var lmicros, lnodes stats.Statistic
			var samples []float64
			var mismatches []Mismatch
			for i := range work {
				tc := cases[i]
				p, err := board.FromSequence(tc.Sequence)
				if err != nil {
					return fmt.Errorf("test case %d: %w", i+1, err)
				}
				s.Reset()
				start := time.Now()
				got := s.Solve(p)
				el := time.Since(start)
				lmicros.Push(float64(el.Microseconds()))
				lnodes.Push(float64(s.NodeCount()))
				samples = append(samples, float64(s.NodeCount()))
				if got != tc.Score {
					log.Error().Str("sequence", tc.Sequence).Int("expected", tc.Score).
						Int("got", got).Msg("benchmark-score-mismatch")
					mismatches = append(mismatches, Mismatch{TestCase: tc, Got: got})
				}
			}
			mu.Lock()
			defer mu.Unlock()
			micros.Merge(&lmicros)
			nodes.Merge(&lnodes)
			rep.nodeSamples = append(rep.nodeSamples, samples...)
			rep.Mismatches = append(rep.Mismatches, mismatches...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	rep.Elapsed = time.Since(ts)
	rep.Micros = micros.Summarize(confidence)
	rep.Nodes = nodes.Summarize(confidence)
	log.Info().Str("name", name).Int("cases", rep.Cases).Int("mismatches", len(rep.Mismatches)).
		Float64("mean-micros", rep.Micros.Mean).Float64("mean-nodes", rep.Nodes.Mean).
		Dur("elapsed", rep.Elapsed).Msg("benchmark-finished")
	return rep, nil
}

// YAML serializes the report.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// Histogram writes an ASCII histogram of nodes explored per position.
func (r *Report) Histogram(w io.Writer, bins int) error {
	if len(r.nodeSamples) == 0 {
		_, err := fmt.Fprintln(w, "no samples")
		return err
	}
	h := histogram.Hist(bins, r.nodeSamples)
	return histogram.Fprint(w, h, histogram.Linear(40))
}
