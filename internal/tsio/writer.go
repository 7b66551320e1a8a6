package tsio

import (
	"fmt"
	"io"

	"github.com/zsiec/tspacket/mpegts"
)

// Writer writes whole packets to an io.Writer.
type Writer struct {
	w       io.Writer
	packets int64
	nulls   int64
	null    mpegts.Buffer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, null: mpegts.NullBuffer()}
}

// WritePacket writes b as-is.
func (w *Writer) WritePacket(b *mpegts.Buffer) error {
	if _, err := w.w.Write(b[:]); err != nil {
		return fmt.Errorf("tsio: write packet %d: %w", w.packets, err)
	}
	w.packets++
	return nil
}

// WriteNull writes n null packets, used to pad a stream up to a target
// rate.
func (w *Writer) WriteNull(n int) error {
	for i := 0; i < n; i++ {
		if err := w.WritePacket(&w.null); err != nil {
			return err
		}
		w.nulls++
	}
	return nil
}

// Packets returns the number of packets written, null packets included.
func (w *Writer) Packets() int64 { return w.packets }

// Nulls returns the number of null packets written by WriteNull.
func (w *Writer) Nulls() int64 { return w.nulls }
