package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultAddr = "127.0.0.1:6000"

// Plan lists the streams to push in one run.
//
//	addr = "127.0.0.1:6000"
//
//	[[stream]]
//	file = "test/streams/stream_1.ts"
//	key = "cam1"
//	pad_kbps = 8000
type Plan struct {
	Addr    string        `toml:"addr"`
	Streams []StreamEntry `toml:"stream"`
}

// StreamEntry is one file to loop.
type StreamEntry struct {
	File    string  `toml:"file"`
	Key     string  `toml:"key"`
	Loops   int     `toml:"loops"`
	PadKbps int     `toml:"pad_kbps"`
	Seconds float64 `toml:"seconds"`
}

// loadPlan decodes a TOML plan, fills defaults and validates it. Relative
// file paths resolve against the plan's directory.
func loadPlan(path string) (Plan, error) {
	var p Plan
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Plan{}, fmt.Errorf("plan parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Plan{}, fmt.Errorf("plan %s: unknown key %q", path, undecoded[0].String())
	}
	if p.Addr == "" {
		p.Addr = defaultAddr
	}
	base := filepath.Dir(path)
	for i := range p.Streams {
		s := &p.Streams[i]
		if s.File != "" && !filepath.IsAbs(s.File) {
			s.File = filepath.Join(base, s.File)
		}
		if s.Key == "" {
			s.Key = keyFromFile(s.File)
		}
	}
	if err := validatePlan(p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func validatePlan(p Plan) error {
	if strings.TrimSpace(p.Addr) == "" {
		return fmt.Errorf("plan missing addr")
	}
	if len(p.Streams) == 0 {
		return fmt.Errorf("plan has no streams")
	}
	seen := make(map[string]bool, len(p.Streams))
	for i, s := range p.Streams {
		if strings.TrimSpace(s.File) == "" {
			return fmt.Errorf("stream[%d] missing file", i)
		}
		if s.Loops < 0 || s.PadKbps < 0 || s.Seconds < 0 {
			return fmt.Errorf("stream[%d] has a negative setting", i)
		}
		if seen[s.Key] {
			return fmt.Errorf("stream[%d] duplicate key %q", i, s.Key)
		}
		seen[s.Key] = true
	}
	return nil
}

func keyFromFile(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
