// Package probe accumulates per-PID header statistics over a packet
// sequence: continuity errors, PCR presence, scrambling, transport errors.
// It reads every field through the mpegts codec and never looks past the
// adaptation field.
package probe

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/zsiec/tspacket/mpegts"
)

// PIDStats summarizes the packets seen on one PID.
type PIDStats struct {
	PID             uint16 `json:"pid"`
	Packets         int64  `json:"packets"`
	UnitStarts      int64  `json:"unitStarts"`
	RandomAccess    int64  `json:"randomAccess"`
	CCErrors        int64  `json:"ccErrors"`
	Duplicates      int64  `json:"duplicates"`
	Discontinuities int64  `json:"discontinuities"`
	TransportErrors int64  `json:"transportErrors"`
	Scrambled       int64  `json:"scrambled"`
	PCRs            int64  `json:"pcrs"`
	FirstPCR        uint64 `json:"firstPcr,omitempty"`
	LastPCR         uint64 `json:"lastPcr,omitempty"`
}

// Snapshot is a point-in-time copy of a Probe's counters.
type Snapshot struct {
	Packets     int64      `json:"packets"`
	NullPackets int64      `json:"nullPackets"`
	PIDs        []PIDStats `json:"pids"`
}

type pidState struct {
	stats  PIDStats
	lastCC uint8
	seen   bool
}

// Probe is safe for concurrent use; Observe and Snapshot may be called
// from different goroutines.
type Probe struct {
	log *slog.Logger

	mu      sync.Mutex
	packets int64
	nulls   int64
	pids    map[uint16]*pidState
}

// New creates a Probe. If log is nil, slog.Default() is used.
func New(log *slog.Logger) *Probe {
	if log == nil {
		log = slog.Default()
	}
	return &Probe{
		log:  log.With("component", "probe"),
		pids: make(map[uint16]*pidState),
	}
}

// Observe records one packet. The caller keeps ownership of b.
func (p *Probe) Observe(b *mpegts.Buffer) {
	pid := mpegts.PID(b)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.packets++
	if pid == mpegts.NullPID {
		p.nulls++
		return
	}

	st, ok := p.pids[pid]
	if !ok {
		st = &pidState{stats: PIDStats{PID: pid}}
		p.pids[pid] = st
		p.log.Debug("new pid", "pid", pid)
	}
	s := &st.stats
	s.Packets++

	if mpegts.HasTransportError(b) {
		s.TransportErrors++
		return
	}
	if mpegts.HasUnitStart(b) {
		s.UnitStarts++
	}
	if mpegts.Scrambling(b) != mpegts.ScramblingClear {
		s.Scrambled++
	}

	discontinuity := false
	if mpegts.HasAdaptationField(b) && mpegts.AdaptationField(b) > 0 {
		discontinuity = mpegts.HasDiscontinuity(b)
		if discontinuity {
			s.Discontinuities++
		}
		if mpegts.HasRandomAccess(b) {
			s.RandomAccess++
		}
		if mpegts.HasPCR(b) && mpegts.AdaptationField(b) >= mpegts.HeaderSizePCR-mpegts.HeaderSize-1 {
			pcr := mpegts.PCR27(b)
			if s.PCRs == 0 {
				s.FirstPCR = pcr
			}
			s.LastPCR = pcr
			s.PCRs++
		}
	}

	// The counter only advances on packets that carry payload.
	if !mpegts.HasPayload(b) {
		return
	}
	cc := mpegts.ContinuityCounter(b)
	if st.seen && !discontinuity {
		expected := (st.lastCC + 1) & 0x0F
		switch {
		case cc == expected:
		case cc == st.lastCC:
			s.Duplicates++
		default:
			s.CCErrors++
			p.log.Debug("continuity error", "pid", pid, "expected", expected, "got", cc)
		}
	}
	st.lastCC = cc
	st.seen = true
}

// Snapshot returns the counters so far, PIDs in ascending order.
func (p *Probe) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Packets:     p.packets,
		NullPackets: p.nulls,
		PIDs:        make([]PIDStats, 0, len(p.pids)),
	}
	for _, st := range p.pids {
		snap.PIDs = append(snap.PIDs, st.stats)
	}
	sort.Slice(snap.PIDs, func(i, j int) bool { return snap.PIDs[i].PID < snap.PIDs[j].PID })
	return snap
}

// CCErrors returns the total continuity errors across all PIDs.
func (s Snapshot) CCErrors() int64 {
	var n int64
	for _, p := range s.PIDs {
		n += p.CCErrors
	}
	return n
}
