// Package tsio reads and writes whole 188-byte transport packets on byte
// streams. It is the ingest side that validates the sync byte, which the
// mpegts field codec deliberately never does.
package tsio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zsiec/tspacket/mpegts"
)

// readBufferSize holds 70 packets, ten SRT payloads of 7 packets each.
const readBufferSize = mpegts.PacketSize * 70

// SyncError reports a packet whose first byte is not the sync byte.
type SyncError struct {
	Offset int64
	Got    byte
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("tsio: sync lost at offset %d (got 0x%02X)", e.Offset, e.Got)
}

func (e *SyncError) Unwrap() error { return mpegts.ErrSyncByte }

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Resync skips bytes until the next sync byte instead of returning a
	// *SyncError.
	Resync bool
	Log    *slog.Logger
}

// Reader splits a byte stream into transport packets.
type Reader struct {
	log     *slog.Logger
	br      *bufio.Reader
	resync  bool
	offset  int64
	packets int64
	skipped int64
	lost    bool
}

// NewReader creates a Reader over r. A nil opts means strict mode with
// slog.Default().
func NewReader(r io.Reader, opts *ReaderOptions) *Reader {
	var o ReaderOptions
	if opts != nil {
		o = *opts
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return &Reader{
		log:    o.Log.With("component", "ts-reader"),
		br:     bufio.NewReaderSize(r, readBufferSize),
		resync: o.Resync,
	}
}

// Read fills b with the next packet. It returns io.EOF at a clean end of
// stream and io.ErrUnexpectedEOF when the stream ends mid-packet.
func (r *Reader) Read(b *mpegts.Buffer) error {
	for {
		first, err := r.br.ReadByte()
		if err != nil {
			return err
		}
		if first != mpegts.SyncByte {
			if !r.resync {
				err := &SyncError{Offset: r.offset, Got: first}
				r.offset++
				return err
			}
			if !r.lost {
				r.log.Warn("sync lost, scanning", "offset", r.offset, "got", first)
				r.lost = true
			}
			r.offset++
			r.skipped++
			continue
		}
		if r.lost && !r.confirmSync() {
			r.offset++
			r.skipped++
			continue
		}

		start := r.offset
		b[0] = first
		n, err := io.ReadFull(r.br, b[1:])
		r.offset += int64(n) + 1
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("tsio: packet at offset %d: %w", start, err)
		}
		if r.lost {
			r.log.Info("sync recovered", "offset", start, "skipped", r.skipped)
			r.lost = false
		}
		r.packets++
		return nil
	}
}

// confirmSync reports whether the byte one packet past the sync byte just
// read is also a sync byte. Near the end of the stream, where that byte is
// not available, the candidate is accepted.
func (r *Reader) confirmSync() bool {
	next, err := r.br.Peek(mpegts.PacketSize)
	if err != nil {
		return true
	}
	return next[mpegts.PacketSize-1] == mpegts.SyncByte
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// Packets returns the number of packets read.
func (r *Reader) Packets() int64 { return r.packets }

// Skipped returns the number of bytes dropped while resyncing.
func (r *Reader) Skipped() int64 { return r.skipped }

// ForEach reads packets until EOF, calling fn on each. fn must not keep b.
// A clean EOF returns nil.
func ForEach(r *Reader, fn func(b *mpegts.Buffer) error) error {
	var b mpegts.Buffer
	for {
		if err := r.Read(&b); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(&b); err != nil {
			return err
		}
	}
}
