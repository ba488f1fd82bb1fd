// analyze reads move sequences from stdin, one per line, and prints the
// score and best move of each.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/solver"
)

// analyzeLine writes the result line for one sequence.
func analyzeLine(w io.Writer, s *solver.Solver, seq string) error {
	p, err := board.FromSequence(seq)
	if err != nil {
		_, err = fmt.Fprintf(w, "Invalid move: %s\n", seq)
		return err
	}
	res, err := s.BestMove(p)
	if err != nil {
		_, err = fmt.Fprintf(w, "%s: %d moves, no legal move\n", seq, p.NumMoves())
		return err
	}
	_, err = fmt.Fprintf(w, "%s: %d moves, Score: %d, Nodes: %d, Time: %.3f ms, Best move: column %d\n",
		seq, p.NumMoves(), res.Score, res.Nodes, float64(res.Elapsed.Microseconds())/1000, res.Move+1)
	return err
}

func run(r io.Reader, w io.Writer, s *solver.Solver) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		seq := strings.TrimSpace(scanner.Text())
		if err := analyzeLine(w, s, seq); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.AdjustRelativePaths(exPath)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	s, err := solver.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-create-solver")
	}
	s.GetReady(cfg.GetString(config.ConfigOpeningBook), cfg.GetString(config.ConfigWarmupBook))

	out := bufio.NewWriter(os.Stdout)
	err = run(os.Stdin, out, s)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		log.Fatal().Err(err).Msg("analyze-failed")
	}
}
