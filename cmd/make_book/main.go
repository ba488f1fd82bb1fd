// make_book solves a set of positions and writes them as an opening book.
// Positions come from sequence arguments, from every position at a given
// depth, from a text file of sequences or from the hard-positions database.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/c4solver/bookgen"
	"github.com/domino14/c4solver/openingbook"
	"github.com/domino14/c4solver/positionstore"
	"github.com/domino14/c4solver/solver"
)

type options struct {
	out      string
	depth    int
	from     string
	fromDB   string
	threads  int
	ttSize   int
	appendTo bool
	seqs     []string
}

func readSequences(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var seqs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seqs = append(seqs, strings.Fields(line)[0])
	}
	return seqs, scanner.Err()
}

func collect(ctx context.Context, opts options) ([]string, error) {
	seqs := append([]string(nil), opts.seqs...)
	if opts.depth >= 0 {
		seqs = append(seqs, bookgen.Sequences(opts.depth)...)
	}
	if opts.from != "" {
		more, err := readSequences(opts.from)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, more...)
	}
	if opts.fromDB != "" {
		store, err := positionstore.Open(ctx, opts.fromDB)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		hps, err := store.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, hp := range hps {
			seqs = append(seqs, hp.Sequence)
		}
	}
	return seqs, nil
}

func build(ctx context.Context, opts options) (int, error) {
	seqs, err := collect(ctx, opts)
	if err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 0, fmt.Errorf("no positions given")
	}
	log.Info().Int("positions", len(seqs)).Int("threads", opts.threads).Msg("generating-book")
	recs, err := bookgen.Generate(ctx, seqs, opts.threads, func() (*solver.Solver, error) {
		return solver.New(opts.ttSize)
	})
	if err != nil {
		return 0, err
	}
	if opts.appendTo {
		err = openingbook.AppendFile(opts.out, recs)
	} else {
		err = openingbook.WriteFile(opts.out, recs)
	}
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func main() {
	var opts options
	fs := pflag.NewFlagSet("make_book", pflag.ExitOnError)
	fs.StringVar(&opts.out, "out", "opening.book", "output book file")
	fs.IntVar(&opts.depth, "depth", -1, "add every position reachable in this many moves")
	fs.StringVar(&opts.from, "from", "", "text file with one sequence per line")
	fs.StringVar(&opts.fromDB, "from-db", "", "hard-positions sqlite database")
	fs.IntVar(&opts.threads, "threads", 1, "number of independent solvers")
	fs.IntVar(&opts.ttSize, "tt-size", 8388617, "transposition table slots per solver")
	fs.BoolVar(&opts.appendTo, "append", false, "append to the output book instead of replacing it")
	debug := fs.Bool("debug", false, "debug logging")
	fs.Parse(os.Args[1:])
	opts.seqs = fs.Args()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := build(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("make-book-failed")
	}
	log.Info().Int("records", n).Str("out", opts.out).Msg("book-written")
}
