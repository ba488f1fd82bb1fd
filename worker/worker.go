// Package worker answers analysis requests over NATS. Requests and replies
// are small JSON documents; columns in them are 1-based, like move
// sequences.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/solver"
)

const (
	ModeSolve   = "solve"
	ModeBest    = "best"
	ModeAnalyze = "analyze"
	ModeScores  = "scores"
)

var ErrUnknownMode = errors.New("unknown mode")

type Request struct {
	Sequence string `json:"sequence"`
	Mode     string `json:"mode"`
	// ReplyChannel is used by the lambda handler, which answers on NATS
	// rather than through its return value.
	ReplyChannel string `json:"reply_channel,omitempty"`
}

type Response struct {
	Sequence string `json:"sequence"`
	Mode     string `json:"mode"`
	Score    *int   `json:"score,omitempty"`
	Move     int    `json:"move,omitempty"`
	// Tiers are groups of equally good columns, best first.
	Tiers [][]int `json:"tiers,omitempty"`
	// Scores has one entry per column; full columns are null.
	Scores    []*int `json:"scores,omitempty"`
	Nodes     uint64 `json:"nodes"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// Worker serializes requests onto a single solver.
type Worker struct {
	mu sync.Mutex
	s  *solver.Solver
}

func New(s *solver.Solver) *Worker {
	return &Worker{s: s}
}

func oneBased(cols []int) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c + 1
	}
	return out
}

func errorResponse(req Request, err error) Response {
	return Response{Sequence: req.Sequence, Mode: req.Mode, Error: err.Error()}
}

// Handle answers one request.
func (w *Worker) Handle(req Request) Response {
	p, err := board.FromSequence(req.Sequence)
	if err != nil {
		return errorResponse(req, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	resp := Response{Sequence: req.Sequence, Mode: req.Mode}
	// every request starts from an empty search table; book entries stay.
	w.s.Reset()
	ts := time.Now()
	switch req.Mode {
	case ModeSolve, "":
		resp.Mode = ModeSolve
		sc := w.s.Solve(p)
		resp.Score = &sc
	case ModeBest:
		res, err := w.s.BestMove(p)
		if err != nil {
			return errorResponse(req, err)
		}
		resp.Score = &res.Score
		resp.Move = res.Move + 1
	case ModeAnalyze:
		for _, tier := range w.s.Analyze(p) {
			resp.Tiers = append(resp.Tiers, oneBased(tier))
		}
	case ModeScores:
		for _, sc := range w.s.ScoreColumns(p) {
			if sc == solver.InvalidScore {
				resp.Scores = append(resp.Scores, nil)
				continue
			}
			resp.Scores = append(resp.Scores, &sc)
		}
	default:
		return errorResponse(req, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode))
	}
	resp.Nodes = w.s.NodeCount()
	resp.ElapsedMs = time.Since(ts).Milliseconds()
	return resp
}

// HandleBytes decodes a JSON request and encodes the response.
func (w *Worker) HandleBytes(data []byte) []byte {
	var req Request
	var resp Response
	if err := json.Unmarshal(data, &req); err != nil {
		resp = Response{Error: fmt.Sprintf("bad request: %v", err)}
	} else {
		resp = w.Handle(req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		// Should never happen.
		return []byte(`{"error":"` + err.Error() + `"}`)
	}
	return out
}

// Serve answers requests on subject until ctx is done.
func (w *Worker) Serve(ctx context.Context, nc *nats.Conn, subject string) error {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		log.Debug().Int("bytes", len(m.Data)).Str("subject", m.Subject).Msg("request-received")
		if err := m.Respond(w.HandleBytes(m.Data)); err != nil {
			log.Err(err).Msg("respond-failed")
		}
	})
	if err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Str("subject", subject).Msg("worker-listening")
	<-ctx.Done()
	log.Info().Msg("worker-shutting-down")
	return sub.Drain()
}
