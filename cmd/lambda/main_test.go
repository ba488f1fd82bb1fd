package main

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/c4solver/solver"
	"github.com/domino14/c4solver/worker"
)

func setup(t *testing.T) {
	s, err := solver.New(1<<16+1, solver.WithRand(solver.SeededRand("lambda")))
	if err != nil {
		t.Fatal(err)
	}
	w = worker.New(s)
	nc = nil
}

func TestHandleRequest(t *testing.T) {
	is := is.New(t)
	setup(t)
	resp, err := HandleRequest(context.Background(), worker.Request{
		Sequence: "64225247215215164713277176",
		Mode:     worker.ModeBest,
	})
	is.NoErr(err)
	is.Equal(*resp.Score, 6)
	is.Equal(resp.Move, 4)
}

func TestHandleRequestErrors(t *testing.T) {
	is := is.New(t)
	setup(t)
	_, err := HandleRequest(context.Background(), worker.Request{Sequence: "4444444"})
	is.True(err != nil)

	// a reply channel needs a NATS connection.
	_, err = HandleRequest(context.Background(), worker.Request{
		Sequence: "445566", ReplyChannel: "c4.reply",
	})
	is.True(err != nil)
}
