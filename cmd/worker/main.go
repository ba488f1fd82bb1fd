// worker answers analysis requests published on a NATS subject.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/solver"
	"github.com/domino14/c4solver/worker"
)

const connectAttempts = 10

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ex, err := os.Executable()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get executable path")
	}
	cfg.AdjustRelativePaths(filepath.Dir(ex))
	log.Info().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")

	s, err := solver.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-create-solver")
	}
	s.GetReady(cfg.GetString(config.ConfigOpeningBook), cfg.GetString(config.ConfigWarmupBook))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	nc, err := worker.Connect(ctx, cfg.GetString(config.ConfigNatsURL), connectAttempts)
	if err != nil {
		log.Fatal().Err(err).Msg("nats-connect-failed")
	}
	defer nc.Close()

	w := worker.New(s)
	if err := w.Serve(ctx, nc, cfg.GetString(config.ConfigWorkerSubject)); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}
