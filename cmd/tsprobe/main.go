// Command tsprobe reports per-PID header statistics for MPEG-TS input read
// from files or received over SRT.
//
//	tsprobe [-json] [-resync] file.ts...
//	tsprobe -listen :6000
//	tsprobe -pull host:port -key camera1
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tspacket/internal/ingest"
	srtingest "github.com/zsiec/tspacket/internal/ingest/srt"
	"github.com/zsiec/tspacket/internal/pipeline"
	"github.com/zsiec/tspacket/internal/probe"
	"github.com/zsiec/tspacket/internal/tsio"
	"github.com/zsiec/tspacket/mpegts"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	listenFlag := flag.String("listen", os.Getenv("SRT_ADDR"), "SRT listen address (env SRT_ADDR)")
	pullFlag := flag.String("pull", "", "Remote SRT listener to pull from")
	keyFlag := flag.String("key", "probe", "Stream key used with -pull")
	jsonFlag := flag.Bool("json", false, "Write reports as JSON to stdout")
	resyncFlag := flag.Bool("resync", false, "Skip garbage between packets instead of failing")
	intervalFlag := flag.Duration("interval", 10*time.Second, "Report interval for live input")
	flag.Parse()

	if err := checkInterval(*intervalFlag); err != nil {
		fmt.Fprintf(os.Stderr, "tsprobe: %v\n", err)
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := &reporter{w: os.Stdout, json: *jsonFlag}
	opts := &tsio.ReaderOptions{Resync: *resyncFlag}

	var err error
	switch {
	case *listenFlag != "" || *pullFlag != "":
		err = runLive(ctx, *listenFlag, *pullFlag, *keyFlag, *intervalFlag, out)
	case flag.NArg() > 0:
		err = runFiles(ctx, flag.Args(), opts, out)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func checkInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("-interval must be positive, got %s", d)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  tsprobe [-json] [-resync] file.ts...\n")
	fmt.Fprintf(os.Stderr, "  tsprobe -listen :6000 [-interval 10s]\n")
	fmt.Fprintf(os.Stderr, "  tsprobe -pull host:port [-key name]\n")
}

// probeReader feeds every packet from r into pr.
func probeReader(r io.Reader, pr *probe.Probe, opts *tsio.ReaderOptions) (*tsio.Reader, error) {
	rd := tsio.NewReader(r, opts)
	err := tsio.ForEach(rd, func(b *mpegts.Buffer) error {
		pr.Observe(b)
		return nil
	})
	return rd, err
}

func runFiles(ctx context.Context, paths []string, opts *tsio.ReaderOptions, out *reporter) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, path := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			pr := probe.New(slog.Default().With("file", path))
			rd, err := probeReader(f, pr, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			slog.Debug("file done", "file", path, "bytes", rd.Offset(), "skipped", rd.Skipped())
			return out.report(path, pr.Snapshot())
		})
	}
	return g.Wait()
}

// runLive probes SRT input until ctx is cancelled. A pull-only run also
// ends when the remote side closes.
func runLive(ctx context.Context, listenAddr, pullAddr, key string, interval time.Duration, out *reporter) error {
	g, ctx := errgroup.WithContext(ctx)

	registry := ingest.NewRegistry(func(s *ingest.Stream) {
		log := slog.Default().With("stream_key", s.Key)
		pl := pipeline.New(s.Key, s.Input(), s.Probe)
		pl.SetProtocol("SRT")
		if err := pl.Run(ctx); err != nil {
			log.Warn("probe stopped", "error", err)
		}
		snap := pl.StreamSnapshot()
		log.Debug("stream closed", "packets", snap.Packets, "skipped", snap.Skipped, "uptime_ms", snap.UptimeMs)
		if err := out.report(s.Key, snap.Probe); err != nil {
			log.Warn("report failed", "error", err)
		}
	})

	if listenAddr != "" {
		srv := srtingest.NewServer(listenAddr, registry, nil)
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	// finished stays nil, and never fires, while a listener is running.
	var finished chan struct{}
	if pullAddr != "" {
		pullDone := make(chan struct{})
		if listenAddr == "" {
			finished = pullDone
		}
		caller := srtingest.NewCaller(registry, nil)
		g.Go(func() error {
			defer close(pullDone)
			return caller.Pull(ctx, srtingest.PullRequest{Address: pullAddr, StreamKey: key})
		})
	}

	g.Go(func() error {
		logStats(ctx, registry, interval, finished)
		return nil
	})

	err := g.Wait()
	registry.Wait()
	return err
}

// logStats logs every active stream each interval until ctx is cancelled
// or finished is closed.
func logStats(ctx context.Context, registry *ingest.Registry, interval time.Duration, finished <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-finished:
			return
		case <-ticker.C:
			for _, k := range registry.Keys() {
				s, ok := registry.Get(k)
				if !ok {
					continue
				}
				snap := s.Probe.Snapshot()
				st := s.Stats()
				slog.Info("stream",
					"stream_key", k,
					"packets", snap.Packets,
					"pids", len(snap.PIDs),
					"cc_errors", snap.CCErrors(),
					"bytes", st.BytesReceived,
					"uptime_ms", st.UptimeMs,
				)
			}
		}
	}
}
