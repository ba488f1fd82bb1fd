package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/solver"
	"github.com/domino14/c4solver/worker"
)

var cfg *config.Config
var nc *nats.Conn
var w *worker.Worker

// HandleRequest answers one analysis request. When the request names a reply
// channel the answer is also sent there over NATS.
func HandleRequest(ctx context.Context, req worker.Request) (worker.Response, error) {
	logger := log.With().
		Str("sequence", req.Sequence).
		Str("mode", req.Mode).
		Logger()

	resp := w.Handle(req)
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	logger.Info().Uint64("nodes", resp.Nodes).Int64("elapsed-ms", resp.ElapsedMs).Msg("request-answered")

	if req.ReplyChannel != "" {
		if nc == nil {
			return resp, fmt.Errorf("no NATS connection for reply channel %s", req.ReplyChannel)
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return resp, err
		}
		logger.Info().Msg("answer-sending-via-nats")
		if err := worker.Relay(nc, req.ReplyChannel, data); err != nil {
			logger.Err(err).Msg("relay-failed")
		}
	}
	logger.Info().Msg("exiting-fn")
	return resp, nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg = config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.AdjustRelativePaths(exPath)
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
	w = worker.New(s)

	nc, err = nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}

	lambda.Start(HandleRequest)
}
