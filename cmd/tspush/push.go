package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	srt "github.com/zsiec/srtgo"

	"github.com/zsiec/tspacket/internal/restamp"
	"github.com/zsiec/tspacket/internal/tsio"
	"github.com/zsiec/tspacket/mpegts"
)

// chunkPackets is the number of transport packets per SRT payload.
const chunkPackets = 7

const (
	fallbackSeconds = 60.0
	retryDelay      = time.Second
	logInterval     = 10 * time.Second
)

// selectDuration picks the pass duration in seconds: an explicit override
// wins, then the PCR span, then a fixed fallback.
func selectDuration(override, pcrSeconds float64) float64 {
	if override > 0 {
		return override
	}
	if pcrSeconds > 0 {
		return pcrSeconds
	}
	return fallbackSeconds
}

// padder spreads null packets evenly between source packets so the output
// reaches a target packet rate.
type padder struct {
	ratio float64 // nulls per source packet
	acc   float64
}

func newPadder(padKbps int, sourcePPS float64) padder {
	if padKbps <= 0 || sourcePPS <= 0 {
		return padder{}
	}
	targetPPS := float64(padKbps) * 1000 / 8 / mpegts.PacketSize
	if targetPPS <= sourcePPS {
		return padder{}
	}
	return padder{ratio: (targetPPS - sourcePPS) / sourcePPS}
}

// next returns how many null packets to emit after the current source
// packet.
func (p *padder) next() int {
	if p.ratio == 0 {
		return 0
	}
	p.acc += p.ratio
	n := int(p.acc)
	p.acc -= float64(n)
	return n
}

// chunkWriter batches whole packets into SRT sized writes.
type chunkWriter struct {
	w   io.Writer
	buf []byte
}

func newChunkWriter(w io.Writer) *chunkWriter {
	return &chunkWriter{w: w, buf: make([]byte, 0, mpegts.PacketSize*chunkPackets)}
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	if len(c.buf) >= mpegts.PacketSize*chunkPackets {
		if err := c.flush(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (c *chunkWriter) flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	_, err := c.w.Write(c.buf)
	c.buf = c.buf[:0]
	return err
}

type pusher struct {
	key         string
	data        []byte
	scratch     []byte
	span        restamp.Span
	rs          *restamp.Restamper
	bytesPerSec float64
	pad         padder
	loops       int
	log         *slog.Logger

	sent  int64
	nulls int64
}

// newPusher reads the entry's file and scans its PCR timeline. A trailing
// partial packet is dropped.
func newPusher(entry StreamEntry, log *slog.Logger) (*pusher, error) {
	data, err := os.ReadFile(entry.File)
	if err != nil {
		return nil, err
	}
	if rem := len(data) % mpegts.PacketSize; rem != 0 {
		log.Warn("file size not a multiple of packet size", "file", entry.File, "trailing_bytes", rem)
		data = data[:len(data)-rem]
	}
	return newPusherFromData(entry, data, log)
}

func newPusherFromData(entry StreamEntry, data []byte, log *slog.Logger) (*pusher, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "tspush", "stream_key", entry.Key)
	if len(data) == 0 {
		return nil, fmt.Errorf("no packets to push")
	}

	span, err := restamp.Scan(data)
	if err != nil {
		return nil, err
	}
	seconds := selectDuration(entry.Seconds, span.Seconds())
	packets := len(data) / mpegts.PacketSize

	p := &pusher{
		key:         entry.Key,
		data:        data,
		scratch:     make([]byte, len(data)),
		span:        span,
		rs:          restamp.New(),
		bytesPerSec: float64(len(data)) / seconds,
		pad:         newPadder(entry.PadKbps, float64(packets)/seconds),
		loops:       entry.Loops,
		log:         log,
	}
	log.Info("loaded",
		"packets", packets,
		"seconds", seconds,
		"pcr_pid", span.PID,
		"pcr_count", span.PCRCount,
		"bytes_per_sec", int64(p.bytesPerSec),
	)
	return p, nil
}

// push dials addr and streams until every pass is sent or ctx is done,
// reconnecting after a second whenever the connection fails.
func (p *pusher) push(ctx context.Context, addr string) error {
	for {
		p.log.Info("connecting", "addr", addr)

		cfg := srt.DefaultConfig()
		cfg.StreamID = "live/" + p.key

		conn, err := srt.Dial(addr, cfg)
		if err != nil {
			p.log.Warn("SRT connect failed, retrying", "error", err)
		} else {
			p.log.Info("connected", "remote", conn.RemoteAddr())
			err = p.stream(ctx, conn)
			conn.Close()
			if err == nil {
				p.log.Info("all passes sent", "loops", p.rs.Loops(), "nulls", p.nulls)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("connection lost, reconnecting", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// stream writes passes over the file to w, pacing source bytes against a
// clock that starts with the call so pass boundaries carry no gap. It
// returns nil once the configured number of passes is complete.
func (p *pusher) stream(ctx context.Context, w io.Writer) error {
	start := time.Now()
	lastLog := start
	var paced int64

	cw := newChunkWriter(w)
	tw := tsio.NewWriter(cw)

	for p.loops == 0 || p.rs.Loops() < p.loops {
		copy(p.scratch, p.data)
		p.rs.ApplyAll(p.scratch)

		for off := 0; off < len(p.scratch); off += mpegts.PacketSize {
			b := (*mpegts.Buffer)(p.scratch[off : off+mpegts.PacketSize])
			if err := tw.WritePacket(b); err != nil {
				return err
			}
			n := p.pad.next()
			if err := tw.WriteNull(n); err != nil {
				return err
			}
			p.nulls += int64(n)
			paced += mpegts.PacketSize

			if (off/mpegts.PacketSize+1)%chunkPackets != 0 {
				continue
			}
			if err := p.pace(ctx, start, paced); err != nil {
				return err
			}
			if time.Since(lastLog) >= logInterval {
				p.log.Info("progress",
					"loop", p.rs.Loops()+1,
					"offset_pct", fmt.Sprintf("%.1f", float64(off)/float64(len(p.scratch))*100),
					"rate", int64(float64(paced)/time.Since(start).Seconds()),
					"target", int64(p.bytesPerSec),
				)
				lastLog = time.Now()
			}
		}
		if err := cw.flush(); err != nil {
			return err
		}

		p.sent += int64(len(p.scratch))
		p.rs.NextLoop(p.span)
		p.log.Debug("loop complete",
			"loop", p.rs.Loops(),
			"pcr_offset", p.rs.Offset(),
			"total_mb", fmt.Sprintf("%.1f", float64(p.sent)/(1024*1024)),
			"elapsed", time.Since(start).Truncate(time.Second),
		)
	}
	return nil
}

// pace sleeps until paced bytes are due at the source rate.
func (p *pusher) pace(ctx context.Context, start time.Time, paced int64) error {
	if p.bytesPerSec <= 0 {
		return nil
	}
	due := time.Duration(float64(paced) / p.bytesPerSec * float64(time.Second))
	wait := due - time.Since(start)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
