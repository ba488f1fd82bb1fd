package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigOpeningBook      = "opening-book"
	ConfigWarmupBook       = "warmup-book"
	ConfigTTSize           = "tt-size"
	ConfigTTFractionOfMem  = "tt-fraction-of-mem"
	ConfigSeed             = "seed"
	ConfigDebug            = "debug"
	ConfigNatsURL          = "nats-url"
	ConfigWorkerSubject    = "worker-subject"
	ConfigTrainingTimeout  = "training-timeout-ms"
	ConfigTrainingResetPly = "training-reset-ply"
	ConfigTrainingSequence = "training-initial-sequence"
	ConfigHardPositionsDB  = "hard-positions-db"
	ConfigHardMovesFile    = "hard-moves-file"
	ConfigBenchThreads     = "bench-threads"
	ConfigCPUProfile       = "cpu-profile"
	ConfigMemProfile       = "mem-profile"
)

// paths that are resolved against the executable directory when relative.
var pathKeys = []string{ConfigOpeningBook, ConfigWarmupBook, ConfigHardPositionsDB}

type Config struct {
	*viper.Viper
}

// DefaultConfig returns a config with every default set and no flags,
// environment or file applied. Tests use it.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigOpeningBook, "./data/opening.book")
	c.SetDefault(ConfigWarmupBook, "./data/warmup.book")
	c.SetDefault(ConfigTTSize, 8388617)
	c.SetDefault(ConfigTTFractionOfMem, 0.0)
	c.SetDefault(ConfigSeed, "")
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigNatsURL, "nats://127.0.0.1:4222")
	c.SetDefault(ConfigWorkerSubject, "c4.analyze")
	c.SetDefault(ConfigTrainingTimeout, 2000)
	c.SetDefault(ConfigTrainingResetPly, 20)
	c.SetDefault(ConfigTrainingSequence, "44444")
	c.SetDefault(ConfigHardPositionsDB, "./data/hard_positions.db")
	c.SetDefault(ConfigHardMovesFile, "hard_moves.txt")
	c.SetDefault(ConfigBenchThreads, 1)
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
}

// Load reads configuration from (in increasing precedence) defaults, an
// optional c4.yaml in the working directory, C4_* environment variables and
// command-line flags. Unknown flags are an error; positional arguments are
// left in Args.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	c.setDefaults()

	fs := pflag.NewFlagSet("c4", pflag.ContinueOnError)
	fs.String(ConfigOpeningBook, c.GetString(ConfigOpeningBook), "path of the opening book")
	fs.String(ConfigWarmupBook, c.GetString(ConfigWarmupBook), "path of the warmup book")
	fs.Int(ConfigTTSize, c.GetInt(ConfigTTSize), "number of transposition table slots")
	fs.Float64(ConfigTTFractionOfMem, 0, "size the transposition table to this fraction of system memory (0 to use tt-size)")
	fs.String(ConfigSeed, "", "seed for tie-breaking randomness; empty for a random seed")
	fs.Bool(ConfigDebug, false, "debug logging")
	fs.String(ConfigNatsURL, c.GetString(ConfigNatsURL), "NATS server URL")
	fs.String(ConfigWorkerSubject, c.GetString(ConfigWorkerSubject), "NATS subject the analysis worker listens on")
	fs.Int(ConfigTrainingTimeout, c.GetInt(ConfigTrainingTimeout), "a move that takes longer than this many ms is a hard position")
	fs.Int(ConfigTrainingResetPly, c.GetInt(ConfigTrainingResetPly), "training restarts from the initial sequence at this ply")
	fs.String(ConfigTrainingSequence, c.GetString(ConfigTrainingSequence), "initial training sequence")
	fs.String(ConfigHardPositionsDB, c.GetString(ConfigHardPositionsDB), "sqlite database of hard positions")
	fs.String(ConfigHardMovesFile, c.GetString(ConfigHardMovesFile), "text file hard sequences are appended to")
	fs.Int(ConfigBenchThreads, c.GetInt(ConfigBenchThreads), "number of independent solvers used by benchmarks")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.Set("args", fs.Args())

	c.SetEnvPrefix("c4")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	c.SetConfigName("c4")
	c.SetConfigType("yaml")
	c.AddConfigPath(".")
	if err := c.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// Args returns the positional arguments left over after flag parsing.
func (c *Config) Args() []string {
	return c.GetStringSlice("args")
}

// AdjustRelativePaths resolves relative data paths against basepath, the
// directory of the running executable.
func (c *Config) AdjustRelativePaths(basepath string) {
	for _, k := range pathKeys {
		p := c.GetString(k)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		abs := filepath.Join(basepath, p)
		log.Debug().Str("key", k).Str("path", abs).Msg("adjusted-relative-path")
		c.Set(k, abs)
	}
}

// SanitizedSettings returns all settings as a map for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}
