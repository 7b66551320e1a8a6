// Package pipeline orchestrates the read-to-probe data flow for a single
// live stream: it splits the ingest byte stream into packets, recovering
// from sync loss, and feeds each packet to an Observer while collecting
// telemetry.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zsiec/tspacket/internal/probe"
	"github.com/zsiec/tspacket/internal/tsio"
	"github.com/zsiec/tspacket/mpegts"
)

// Observer is the subset of probe.Probe the pipeline feeds. Accepting an
// interface keeps the pipeline testable with stubs.
type Observer interface {
	Observe(b *mpegts.Buffer)
	Snapshot() probe.Snapshot
}

// StreamSnapshot is a point-in-time view of one stream's health.
type StreamSnapshot struct {
	Timestamp int64          `json:"ts"`
	UptimeMs  int64          `json:"uptimeMs"`
	Protocol  string         `json:"protocol,omitempty"`
	Packets   int64          `json:"packets"`
	Skipped   int64          `json:"skippedBytes"`
	Probe     probe.Snapshot `json:"probe"`
}

// Pipeline bridges a single stream's input and its Observer.
type Pipeline struct {
	log       *slog.Logger
	reader    *tsio.Reader
	observer  Observer
	streamKey string
	startTime time.Time
	protocol  string

	packets atomic.Int64
	skipped atomic.Int64
}

// New creates a Pipeline that reads packets from input and hands them to
// obs. The reader always resyncs, since live input can start mid-packet.
func New(streamKey string, input io.Reader, obs Observer) *Pipeline {
	log := slog.With("stream", streamKey)
	return &Pipeline{
		log:       log,
		reader:    tsio.NewReader(input, &tsio.ReaderOptions{Resync: true, Log: log}),
		observer:  obs,
		streamKey: streamKey,
		startTime: time.Now(),
	}
}

// SetProtocol records the ingest protocol name (e.g. "SRT") for the
// snapshot. Call it before Run.
func (p *Pipeline) SetProtocol(proto string) {
	p.protocol = proto
}

// StreamSnapshot returns the current stream health.
func (p *Pipeline) StreamSnapshot() StreamSnapshot {
	return StreamSnapshot{
		Timestamp: time.Now().UnixMilli(),
		UptimeMs:  time.Since(p.startTime).Milliseconds(),
		Protocol:  p.protocol,
		Packets:   p.packets.Load(),
		Skipped:   p.skipped.Load(),
		Probe:     p.observer.Snapshot(),
	}
}

// Run reads until the input ends or ctx is cancelled. A clean end of
// input returns nil; a stream cut mid-packet returns the read error.
func (p *Pipeline) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() {
		readErr <- p.read()
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-readErr:
		if errors.Is(err, io.EOF) {
			p.log.Info("input finished", "packets", p.packets.Load())
			return nil
		}
		p.log.Info("input failed", "error", err)
		return err
	}
}

func (p *Pipeline) read() error {
	var b mpegts.Buffer
	for {
		if err := p.reader.Read(&b); err != nil {
			return err
		}
		p.observer.Observe(&b)
		p.packets.Store(p.reader.Packets())
		p.skipped.Store(p.reader.Skipped())
	}
}
