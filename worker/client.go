package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Connect dials NATS, retrying with backoff.
func Connect(ctx context.Context, url string, attempts uint) (*nats.Conn, error) {
	return retry.DoWithData(
		func() (*nats.Conn, error) {
			return nats.Connect(url, nats.Name("c4-worker"))
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("n", n).Str("url", url).Msg("nats-connect-retry")
		}),
	)
}

// Client sends requests to a worker.
type Client struct {
	nc      *nats.Conn
	subject string
}

func NewClient(nc *nats.Conn, subject string) *Client {
	return &Client{nc: nc, subject: subject}
}

func (c *Client) Request(ctx context.Context, req Request) (*Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Err(c.nc.LastError()).Msg("nats-last-error")
		}
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return &resp, errors.New("worker returned: " + resp.Error)
	}
	return &resp, nil
}

// Relay publishes an already-encoded response to a reply channel and waits
// for an acknowledgement, retrying with backoff.
func Relay(nc *nats.Conn, channel string, data []byte) error {
	return retry.Do(
		func() error {
			_, err := nc.Request(channel, data, 3*time.Second)
			return err
		},
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Err(err).Uint("n", n).Msg("did-not-receive-ack-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}
