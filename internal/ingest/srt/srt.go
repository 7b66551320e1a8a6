package srt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/zsiec/tspacket/internal/ingest"
	"github.com/zsiec/tspacket/mpegts"
)

// readBufferSize holds ten SRT payloads of 7 transport packets each.
const readBufferSize = mpegts.PacketSize * 7 * 10

// latencyNs is the SRT latency setting in nanoseconds (120ms).
const latencyNs = 120_000_000

// pump copies conn into the stream's pipe until either side fails or ctx
// is cancelled.
func pump(ctx context.Context, log *slog.Logger, conn io.Reader, stream *ingest.Stream, w io.Writer) {
	buf := make([]byte, readBufferSize)
	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("read error", "stream_key", stream.Key, "error", err)
			}
			return
		}
		stream.RecordRead(n)
		if _, err := w.Write(buf[:n]); err != nil {
			log.Debug("pipe write error", "stream_key", stream.Key, "error", err)
			return
		}
	}
}

func extractStreamKey(streamID string) string {
	streamID = strings.TrimPrefix(streamID, "/")
	streamID = strings.TrimPrefix(streamID, "live/")
	if streamID == "" {
		return "default"
	}
	return streamID
}
