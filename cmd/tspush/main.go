// Command tspush loops transport stream files to an SRT listener in real
// time. Continuity counters and PCRs are rewritten on every pass so the
// receiver sees one unbroken stream, and null packets can pad the output
// up to a fixed bitrate.
//
//	tspush -file stream.ts -key cam1 -addr 127.0.0.1:6000
//	tspush -config push.toml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	configFlag := flag.String("config", "", "TOML push plan (overrides -file/-key/-loops/-pad-kbps)")
	fileFlag := flag.String("file", "", "Single TS file to push")
	keyFlag := flag.String("key", "", "Stream key (default: filename without extension)")
	addrFlag := flag.String("addr", envOr("SRT_ADDR", defaultAddr), "SRT server address (env SRT_ADDR)")
	loopsFlag := flag.Int("loops", 0, "Number of passes over the file, 0 for forever")
	padFlag := flag.Int("pad-kbps", 0, "Pad with null packets up to this bitrate")
	secondsFlag := flag.Float64("seconds", 0, "Known duration in seconds (skips the PCR scan)")
	flag.Parse()

	plan, err := buildPlan(*configFlag, *addrFlag, StreamEntry{
		File:    *fileFlag,
		Key:     *keyFlag,
		Loops:   *loopsFlag,
		PadKbps: *padFlag,
		Seconds: *secondsFlag,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tspush: %v\n", err)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  tspush -file stream.ts [-key name] [-addr host:port]\n")
		fmt.Fprintf(os.Stderr, "  tspush -config push.toml\n")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, plan); err != nil && ctx.Err() == nil {
		slog.Error("push failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildPlan loads the plan file when one is given, otherwise wraps the
// single stream described by flags.
func buildPlan(configPath, addr string, single StreamEntry) (Plan, error) {
	if configPath != "" {
		p, err := loadPlan(configPath)
		if err != nil {
			return Plan{}, err
		}
		return p, nil
	}
	if single.Key == "" && single.File != "" {
		single.Key = keyFromFile(single.File)
	}
	p := Plan{Addr: addr, Streams: []StreamEntry{single}}
	if err := validatePlan(p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// run pushes every stream of the plan concurrently. Streams are started
// 200ms apart so the listener does not see a burst of handshakes.
func run(ctx context.Context, plan Plan) error {
	pushers := make([]*pusher, 0, len(plan.Streams))
	for _, entry := range plan.Streams {
		p, err := newPusher(entry, slog.Default())
		if err != nil {
			return fmt.Errorf("stream %q: %w", entry.Key, err)
		}
		pushers = append(pushers, p)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range pushers {
		if i > 0 {
			select {
			case <-ctx.Done():
				return g.Wait()
			case <-time.After(200 * time.Millisecond):
			}
		}
		g.Go(func() error {
			return p.push(ctx, plan.Addr)
		})
	}
	return g.Wait()
}
