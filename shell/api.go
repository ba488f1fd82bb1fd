package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/benchmark"
	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/bookgen"
	"github.com/domino14/c4solver/cache"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/game"
	"github.com/domino14/c4solver/openingbook"
	"github.com/domino14/c4solver/positionstore"
	"github.com/domino14/c4solver/solver"
	"github.com/domino14/c4solver/training"
)

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) position(cmd *shellcmd) (board.Position, string, error) {
	seq := ""
	if len(cmd.args) > 0 {
		seq = cmd.args[0]
	}
	p, err := board.FromSequence(seq)
	if err != nil {
		return p, seq, fmt.Errorf("invalid move sequence %q: %w", seq, err)
	}
	return p, seq, nil
}

func intOption(cmd *shellcmd, key string, def int) (int, error) {
	v, ok := cmd.options[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option -%s: %w", key, err)
	}
	return n, nil
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	p, seq, err := sc.position(cmd)
	if err != nil {
		return nil, err
	}
	sc.solver.Reset()
	ts := time.Now()
	score := sc.solver.Solve(p)
	el := time.Since(ts)
	return msg(sc.printer.Sprintf("%s: %d moves, Score: %d, Nodes: %d, Time: %.3f ms",
		seq, p.NumMoves(), score, sc.solver.NodeCount(), float64(el.Microseconds())/1000)), nil
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	p, seq, err := sc.position(cmd)
	if err != nil {
		return nil, err
	}
	res, err := sc.solver.BestMove(p)
	if err != nil {
		return nil, err
	}
	return msg(sc.printer.Sprintf("%s: %d moves, Score: %d, Nodes: %d, Time: %.3f ms, Best move: column %d",
		seq, p.NumMoves(), res.Score, res.Nodes, float64(res.Elapsed.Microseconds())/1000, res.Move+1)), nil
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	p, _, err := sc.position(cmd)
	if err != nil {
		return nil, err
	}
	sc.solver.Reset()
	var sb strings.Builder
	for i, tier := range sc.solver.Analyze(p) {
		cols := make([]string, len(tier))
		for j, c := range tier {
			cols[j] = strconv.Itoa(c + 1)
		}
		fmt.Fprintf(&sb, "Tier %d: %s\n", i+1, strings.Join(cols, " "))
	}
	return msg(strings.TrimSuffix(sb.String(), "\n")), nil
}

func (sc *ShellController) scores(cmd *shellcmd) (*Response, error) {
	p, seq, err := sc.position(cmd)
	if err != nil {
		return nil, err
	}
	sc.solver.Reset()
	ts := time.Now()
	scores := sc.solver.ScoreColumns(p)
	el := time.Since(ts)

	best := 0
	strs := make([]string, len(scores))
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
		if s == solver.InvalidScore {
			strs[i] = "-"
		} else {
			strs[i] = strconv.Itoa(s)
		}
	}
	var sb strings.Builder
	sb.WriteString("Sequence: " + seq + "\n")
	sb.WriteString(p.ToDisplayText())
	sb.WriteString("Scores: " + strings.Join(strs, " ") + "\n")
	if scores[best] != solver.InvalidScore {
		fmt.Fprintf(&sb, "Best move: column %d.\n", best+1)
	}
	sb.WriteString(sc.printer.Sprintf("Nodes explored: %d.\n", sc.solver.NodeCount()))
	fmt.Fprintf(&sb, "Time taken: %.3f ms.", float64(el.Microseconds())/1000)
	return msg(sb.String()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	p, _, err := sc.position(cmd)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimSuffix(p.ToDisplayText(), "\n")), nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	humanFirst := true
	if len(cmd.args) > 0 {
		switch cmd.args[0] {
		case "first", "1":
		case "second", "2":
			humanFirst = false
		default:
			return nil, errors.New("usage: play [first|second]")
		}
	}
	outcome, err := game.PlayVsBot(sc.in, sc.out, sc.solver, humanFirst)
	if err != nil {
		return nil, err
	}
	return msg("Game over: " + outcome.String()), nil
}

func (sc *ShellController) botgame(cmd *shellcmd) (*Response, error) {
	outcome, err := game.BotVsBot(sc.out, sc.solver)
	if err != nil {
		return nil, err
	}
	return msg("Game over: " + outcome.String()), nil
}

func (sc *ShellController) train(cmd *shellcmd) (*Response, error) {
	opts := training.OptionsFromConfig(sc.config)
	var err error
	if opts.MaxIterations, err = intOption(cmd, "iters", 0); err != nil {
		return nil, err
	}
	ms, err := intOption(cmd, "timeout", int(opts.Timeout.Milliseconds()))
	if err != nil {
		return nil, err
	}
	opts.Timeout = time.Duration(ms) * time.Millisecond
	if seq, ok := cmd.options["sequence"]; ok {
		opts.InitialSequence = seq
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbPath := sc.config.GetString(config.ConfigHardPositionsDB)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	store, err := positionstore.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	opts.Store = store

	f, err := os.OpenFile(sc.config.GetString(config.ConfigHardMovesFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	opts.HardMoves = f

	sc.showMessage("TRAINING SESSION STARTED! Press Ctrl-C to stop.")
	res, err := training.Run(ctx, sc.solver, opts)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Training finished: %d moves, %d games, %d new hard positions.",
		res.Iterations, res.Games, len(res.Hard))), nil
}

func (sc *ShellController) newSolver() (*solver.Solver, error) {
	return solver.NewFromConfig(sc.config)
}

func (sc *ShellController) bench(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: bench <test-set-file> [-threads n]")
	}
	threads, err := intOption(cmd, "threads", sc.config.GetInt(config.ConfigBenchThreads))
	if err != nil {
		return nil, err
	}
	path := cmd.args[0]
	cases, err := benchmark.LoadTestSet(path)
	if err != nil {
		return nil, err
	}
	rep, err := benchmark.Run(context.Background(), path, cases,
		benchmark.Options{Threads: threads, NewSolver: sc.newSolver})
	if err != nil {
		return nil, err
	}
	out, err := rep.YAML()
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.Write(out)
	sb.WriteString("nodes per position:\n")
	if err := rep.Histogram(&sb, 10); err != nil {
		return nil, err
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) book(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: book <output-file> [-depth n | sequence...]")
	}
	out := cmd.args[0]
	seqs := cmd.args[1:]
	if d, ok := cmd.options["depth"]; ok {
		depth, err := strconv.Atoi(d)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, bookgen.Sequences(depth)...)
	}
	if len(seqs) == 0 {
		return nil, errors.New("no positions given")
	}
	threads, err := intOption(cmd, "threads", sc.config.GetInt(config.ConfigBenchThreads))
	if err != nil {
		return nil, err
	}
	recs, err := bookgen.Generate(context.Background(), seqs, threads, sc.newSolver)
	if err != nil {
		return nil, err
	}
	if err := openingbook.WriteFile(out, recs); err != nil {
		return nil, err
	}
	cache.Evict(out)
	return msg(fmt.Sprintf("wrote %d positions to %s", len(recs), out)), nil
}

func (sc *ShellController) reset(cmd *shellcmd) (*Response, error) {
	sc.solver.Reset()
	return msg("search table cleared"), nil
}

func (sc *ShellController) stats(cmd *shellcmd) (*Response, error) {
	tt := sc.solver.TranspositionTable()
	return msg(sc.printer.Sprintf(
		"Nodes explored: %d\nTable size: %d\nTable entries: %d\nCollisions: %d\nBook positions: %d",
		sc.solver.NodeCount(), tt.Size(), tt.Entries(), tt.Collisions(), tt.OpeningSize())), nil
}

// settings that need a new solver when changed.
var solverSettings = map[string]bool{
	config.ConfigTTSize:          true,
	config.ConfigTTFractionOfMem: true,
	config.ConfigSeed:            true,
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		settings := sc.config.SanitizedSettings()
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString("Settings:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, settings[k])
		}
		return msg(strings.TrimSuffix(sb.String(), "\n")), nil
	}
	key := cmd.args[0]
	if len(cmd.args) == 1 {
		return msg(fmt.Sprintf("%s: %v", key, sc.config.Get(key))), nil
	}
	value := strings.Join(cmd.args[1:], " ")
	sc.config.Set(key, value)
	if solverSettings[key] {
		s, err := sc.newSolver()
		if err != nil {
			return nil, err
		}
		s.GetReady(sc.config.GetString(config.ConfigOpeningBook), sc.config.GetString(config.ConfigWarmupBook))
		sc.solver = s
		log.Info().Str("key", key).Msg("solver-recreated")
	}
	return msg("set " + key + " to " + value), nil
}
