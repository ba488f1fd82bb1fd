package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/shell"
)

var (
	GitVersion string
)

//go:embed c4.txt
var banner string

func consoleLogger(w io.Writer, debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// startCPUProfile starts profiling into path. The returned func stops it.
func startCPUProfile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func writeHeapProfile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.WriteHeapProfile(f)
}

func main() {
	// Relative data paths are resolved against the executable directory.
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

	logger := consoleLogger(os.Stderr, cfg.GetBool(config.ConfigDebug))
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	log.Debug().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")

	stopProfile, err := startCPUProfile(cfg.GetString(config.ConfigCPUProfile))
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-start-cpu-profile")
	}

	sc, err := shell.NewShellController(cfg, exPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could-not-start-shell")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	if argsLine := strings.TrimSpace(strings.Join(cfg.Args(), " ")); argsLine != "" {
		// one-shot mode: run the command line and quit.
		sc.Execute(sig, argsLine)
	} else {
		fmt.Println(banner)
		fmt.Println(GitVersion)
		go sc.Loop(sig)
		<-sig
	}

	stopProfile()
	if err := writeHeapProfile(cfg.GetString(config.ConfigMemProfile)); err != nil {
		log.Err(err).Msg("could-not-write-heap-profile")
	}
	sc.Cleanup()
}
