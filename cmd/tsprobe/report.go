package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/zsiec/tspacket/internal/probe"
	"github.com/zsiec/tspacket/mpegts"
)

// reporter writes one report per input. Reports from concurrent inputs
// are serialized.
type reporter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

type jsonReport struct {
	Source string `json:"source"`
	probe.Snapshot
}

func (r *reporter) report(source string, snap probe.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.json {
		return json.NewEncoder(r.w).Encode(jsonReport{Source: source, Snapshot: snap})
	}

	fmt.Fprintf(r.w, "%s: %d packets, %d null\n", source, snap.Packets, snap.NullPackets)
	fmt.Fprintf(r.w, "  %-6s %9s %6s %6s %5s %5s %6s %6s %s\n",
		"PID", "packets", "pusi", "cc_err", "dup", "tei", "scrmb", "pcrs", "pcr_span")
	for _, p := range snap.PIDs {
		span := "-"
		if p.PCRs > 1 {
			d := p.LastPCR - p.FirstPCR
			if p.LastPCR < p.FirstPCR {
				d = mpegts.PCRMax - p.FirstPCR + p.LastPCR
			}
			span = fmt.Sprintf("%.3fs", float64(d)/mpegts.PCRRate)
		}
		fmt.Fprintf(r.w, "  0x%04X %9d %6d %6d %5d %5d %6d %6d %s\n",
			p.PID, p.Packets, p.UnitStarts, p.CCErrors, p.Duplicates,
			p.TransportErrors, p.Scrambled, p.PCRs, span)
	}
	return nil
}
