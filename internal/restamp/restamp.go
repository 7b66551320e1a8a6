// Package restamp rewrites continuity counters and PCRs so a recorded
// transport stream can be replayed in a loop as one continuous stream.
package restamp

import (
	"fmt"

	"github.com/zsiec/tspacket/mpegts"
)

// minPCRField is the adaptation field length needed to carry a PCR: one
// flags byte plus six PCR bytes.
const minPCRField = mpegts.HeaderSizePCR - mpegts.HeaderSize - 1

// Span describes the PCR timeline of one pass over a file.
type Span struct {
	PID      uint16 // PID carrying the PCR
	FirstPCR uint64 // 27 MHz
	LastPCR  uint64 // 27 MHz
	PCRCount int
	Packets  int
}

// Duration returns the time covered by one pass in 27 MHz ticks, including
// one average PCR interval so the next pass starts one interval after the
// last PCR instead of on top of it.
func (s Span) Duration() uint64 {
	if s.PCRCount < 2 {
		return 0
	}
	d := pcrDelta(s.FirstPCR, s.LastPCR)
	return d + d/uint64(s.PCRCount-1)
}

// Seconds returns Duration in seconds.
func (s Span) Seconds() float64 {
	return float64(s.Duration()) / mpegts.PCRRate
}

func pcrDelta(from, to uint64) uint64 {
	if to >= from {
		return to - from
	}
	return mpegts.PCRMax - from + to
}

func hasPCR(b *mpegts.Buffer) bool {
	return mpegts.HasAdaptationField(b) &&
		mpegts.AdaptationField(b) >= minPCRField &&
		mpegts.HasPCR(b)
}

// Scan walks data packet by packet and returns the PCR span of the first
// PID seen carrying a PCR. data must be packet aligned.
func Scan(data []byte) (Span, error) {
	if len(data)%mpegts.PacketSize != 0 {
		return Span{}, fmt.Errorf("restamp: %d bytes is not a whole number of packets", len(data))
	}
	var (
		span  Span
		found bool
	)
	for off := 0; off < len(data); off += mpegts.PacketSize {
		b := (*mpegts.Buffer)(data[off : off+mpegts.PacketSize])
		if err := mpegts.Validate(b); err != nil {
			return Span{}, fmt.Errorf("restamp: packet %d: %w", off/mpegts.PacketSize, err)
		}
		span.Packets++
		if !hasPCR(b) {
			continue
		}
		pid := mpegts.PID(b)
		if !found {
			span.PID = pid
			found = true
		}
		if pid != span.PID {
			continue
		}
		pcr := mpegts.PCR27(b)
		if span.PCRCount == 0 {
			span.FirstPCR = pcr
		}
		span.LastPCR = pcr
		span.PCRCount++
	}
	return span, nil
}

// Restamper keeps per-PID continuity counters running and shifts every PCR
// by the accumulated loop offset. It is not safe for concurrent use.
type Restamper struct {
	next   map[uint16]uint8
	offset uint64
	loops  int
}

// New creates a Restamper with no offset.
func New() *Restamper {
	return &Restamper{next: make(map[uint16]uint8)}
}

// Apply rewrites b in place. Null packets are left alone.
func (r *Restamper) Apply(b *mpegts.Buffer) {
	pid := mpegts.PID(b)
	if pid == mpegts.NullPID {
		return
	}

	cc := mpegts.ContinuityCounter(b)
	next, ok := r.next[pid]
	switch {
	case !ok:
		// The first packet on a PID keeps its counter.
		r.next[pid] = (cc + 1) & 0x0F
	case mpegts.HasPayload(b):
		mpegts.SetContinuityCounter(b, next)
		r.next[pid] = (next + 1) & 0x0F
	default:
		// Adaptation-only packets repeat the previous counter.
		mpegts.SetContinuityCounter(b, next-1)
	}

	if r.offset != 0 && hasPCR(b) {
		mpegts.SetPCR27(b, mpegts.PCR27(b)+r.offset)
	}
}

// ApplyAll rewrites every packet in data in place.
func (r *Restamper) ApplyAll(data []byte) {
	for off := 0; off+mpegts.PacketSize <= len(data); off += mpegts.PacketSize {
		r.Apply((*mpegts.Buffer)(data[off : off+mpegts.PacketSize]))
	}
}

// NextLoop advances the PCR offset by one pass of span.
func (r *Restamper) NextLoop(span Span) {
	r.offset = (r.offset + span.Duration()) % mpegts.PCRMax
	r.loops++
}

// Offset returns the current PCR offset in 27 MHz ticks.
func (r *Restamper) Offset() uint64 { return r.offset }

// Loops returns how many times NextLoop has been called.
func (r *Restamper) Loops() int { return r.loops }
