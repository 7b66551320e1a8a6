package srt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/tspacket/internal/ingest"
)

const dialTimeout = 10 * time.Second

// ErrStreamKeyInUse is returned by Pull when another input already holds
// the requested key.
var ErrStreamKeyInUse = errors.New("srt: stream key already in use")

// PullRequest describes a remote SRT listener to pull from.
type PullRequest struct {
	Address   string
	StreamKey string
	StreamID  string
}

// Caller dials remote SRT listeners and streams their data into the
// ingest registry.
type Caller struct {
	log      *slog.Logger
	registry *ingest.Registry
}

// NewCaller creates a Caller. If log is nil, slog.Default() is used.
func NewCaller(registry *ingest.Registry, log *slog.Logger) *Caller {
	if log == nil {
		log = slog.Default()
	}
	return &Caller{
		log:      log.With("component", "srt-caller"),
		registry: registry,
	}
}

// Pull dials req.Address and streams into the registry until the remote
// side closes or ctx is cancelled. Dialing gives up after dialTimeout.
func (c *Caller) Pull(ctx context.Context, req PullRequest) error {
	if req.Address == "" {
		return fmt.Errorf("address is required")
	}
	if req.StreamKey == "" {
		return fmt.Errorf("streamKey is required")
	}
	streamID := req.StreamID
	if streamID == "" {
		streamID = "live/" + req.StreamKey
	}

	c.log.Info("dialing", "address", req.Address, "stream_key", req.StreamKey)

	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs
	cfg.StreamID = streamID

	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(req.Address, cfg)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(dialTimeout)
	defer timer.Stop()

	var conn *srtgo.Conn
	select {
	case res := <-ch:
		if res.err != nil {
			return fmt.Errorf("SRT dial failed: %w", res.err)
		}
		conn = res.conn
	case <-timer.C:
		go drain(ch)
		return fmt.Errorf("SRT dial timed out after %s", dialTimeout)
	case <-ctx.Done():
		go drain(ch)
		return ctx.Err()
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	c.log.Info("connected", "address", req.Address, "stream_key", req.StreamKey)

	stream, w, ok := c.registry.Register(req.StreamKey)
	if !ok {
		return fmt.Errorf("%w: %q", ErrStreamKeyInUse, req.StreamKey)
	}
	stream.SetRemoteAddr(req.Address)

	pump(ctx, c.log, conn, stream, w)

	stats := stream.Stats()
	c.registry.Unregister(stream)
	c.log.Info("pull ended", "stream_key", req.StreamKey,
		"bytes", stats.BytesReceived, "reads", stats.ReadCount,
		"uptime_ms", stats.UptimeMs)
	return nil
}

type dialResult struct {
	conn *srtgo.Conn
	err  error
}

// drain closes a connection that finished dialing after Pull gave up.
func drain(ch <-chan dialResult) {
	if res := <-ch; res.conn != nil {
		res.conn.Close()
	}
}
