package mpegts

import (
	"errors"
	"fmt"
)

// Sentinel errors for packet ingest. The field codec itself never fails;
// these are returned by the conversion and validation helpers only.
var (
	ErrPacketSize = errors.New("mpegts: invalid packet size")
	ErrSyncByte   = errors.New("mpegts: invalid sync byte")
)

// Validate checks the sync byte. Callers run it once on ingest; the field
// codec does not.
func Validate(b *Buffer) error {
	if b[0] != SyncByte {
		return fmt.Errorf("%w 0x%02X", ErrSyncByte, b[0])
	}
	return nil
}
