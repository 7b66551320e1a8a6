package mpegts

import (
	"errors"
	"testing"
)

func TestNullBuffer(t *testing.T) {
	t.Parallel()
	b := NullBuffer()

	if b[0] != SyncByte {
		t.Errorf("sync = 0x%02X, want 0x47", b[0])
	}
	if b[1] != 0x1F || b[2] != 0xFF || b[3] != 0x10 {
		t.Errorf("header = % X, want 1F FF 10", b[1:4])
	}
	if got := PID(&b); got != NullPID {
		t.Errorf("PID = 0x%X, want 0x1FFF", got)
	}
	if got := ContinuityCounter(&b); got != 0 {
		t.Errorf("CC = %d, want 0", got)
	}
	if !HasPayload(&b) {
		t.Error("HasPayload should be true")
	}
	if !HasDiscontinuity(&b) {
		t.Error("HasDiscontinuity should be true")
	}
	if HasAdaptationField(&b) {
		t.Error("HasAdaptationField should be false")
	}
	if HasTransportError(&b) || HasUnitStart(&b) || HasTransportPriority(&b) {
		t.Error("byte 1 flags should be clear")
	}
	if got := Scrambling(&b); got != ScramblingClear {
		t.Errorf("scrambling = %d, want 0", got)
	}
	payload := Payload(&b)
	if len(payload) != PayloadSize {
		t.Fatalf("payload length = %d, want %d", len(payload), PayloadSize)
	}
	for i, v := range payload {
		if v != 0xFF {
			t.Fatalf("payload[%d] = 0x%02X, want 0xFF", i, v)
		}
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		set  func(*Buffer)
		has  func(*Buffer) bool
		idx  int
		mask byte
	}{
		{"transport_error", SetTransportError, HasTransportError, 1, 0x80},
		{"unit_start", SetUnitStart, HasUnitStart, 1, 0x40},
		{"transport_priority", SetTransportPriority, HasTransportPriority, 1, 0x20},
		{"payload", SetPayload, HasPayload, 3, 0x10},
		{"discontinuity", SetDiscontinuity, HasDiscontinuity, 5, 0x80},
		{"random_access", SetRandomAccess, HasRandomAccess, 5, 0x40},
		{"stream_priority", SetStreamPriority, HasStreamPriority, 5, 0x20},
		{"pcr", func(b *Buffer) { SetPCR(b, 0) }, HasPCR, 5, 0x10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var b Buffer
			if tc.has(&b) {
				t.Fatal("flag set on zero buffer")
			}
			tc.set(&b)
			if !tc.has(&b) {
				t.Fatal("flag not set")
			}
			if b[tc.idx] != tc.mask {
				t.Errorf("byte %d = 0x%02X, want 0x%02X", tc.idx, b[tc.idx], tc.mask)
			}

			// Idempotent.
			once := b
			tc.set(&b)
			if b != once {
				t.Error("second set changed the buffer")
			}

			// Siblings untouched.
			b[tc.idx] = ^tc.mask
			tc.set(&b)
			if b[tc.idx] != 0xFF {
				t.Errorf("byte %d = 0x%02X after set over siblings, want 0xFF", tc.idx, b[tc.idx])
			}
		})
	}
}

func TestClearDiscontinuity(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	SetDiscontinuity(&b)
	if !HasDiscontinuity(&b) {
		t.Fatal("discontinuity should be set")
	}
	ClearDiscontinuity(&b)
	if HasDiscontinuity(&b) {
		t.Fatal("discontinuity should be clear")
	}
	if b[5] != 0x7F {
		t.Errorf("byte 5 = 0x%02X, want 0x7F", b[5])
	}
}

func TestPIDRoundTrip(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	for pid := uint16(0); pid <= MaxPID; pid++ {
		SetPID(&b, pid)
		if got := PID(&b); got != pid {
			t.Fatalf("PID(%d) = %d", pid, got)
		}
	}
}

func TestPIDTruncates(t *testing.T) {
	t.Parallel()
	var b Buffer
	SetPID(&b, 0xFFFF)
	if got := PID(&b); got != 0x1FFF {
		t.Errorf("PID = 0x%X, want 0x1FFF", got)
	}
	if b[1]&0xE0 != 0 {
		t.Errorf("flag bits written: byte 1 = 0x%02X", b[1])
	}
}

func TestContinuityCounterRoundTrip(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	for cc := uint8(0); cc <= 15; cc++ {
		SetContinuityCounter(&b, cc)
		if got := ContinuityCounter(&b); got != cc {
			t.Fatalf("CC(%d) = %d", cc, got)
		}
	}
	SetContinuityCounter(&b, 17)
	if got := ContinuityCounter(&b); got != 1 {
		t.Errorf("CC(17) = %d, want 1", got)
	}
}

func TestZeroContinuityCounter(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	SetScrambling(&b, ScramblingOdd)
	SetContinuityCounter(&b, 5)
	ZeroContinuityCounter(&b)
	if got := ContinuityCounter(&b); got != 0 {
		t.Errorf("CC = %d, want 0", got)
	}
	if b[3] != 0xD0 {
		t.Errorf("byte 3 = 0x%02X, want 0xD0", b[3])
	}
}

func TestAdaptationField(t *testing.T) {
	t.Parallel()

	t.Run("length_0", func(t *testing.T) {
		t.Parallel()
		b := NullBuffer()
		SetAdaptationField(&b, 0)
		if !HasAdaptationField(&b) {
			t.Fatal("HasAdaptationField should be true")
		}
		if got := AdaptationField(&b); got != 0 {
			t.Errorf("length = %d, want 0", got)
		}
		if b[5] != 0xFF {
			t.Errorf("byte 5 = 0x%02X, want untouched 0xFF", b[5])
		}
	})

	t.Run("length_1", func(t *testing.T) {
		t.Parallel()
		b := NullBuffer()
		SetAdaptationField(&b, 1)
		if got := AdaptationField(&b); got != 1 {
			t.Errorf("length = %d, want 1", got)
		}
		if b[5] != 0x00 {
			t.Errorf("byte 5 = 0x%02X, want 0x00", b[5])
		}
	})

	t.Run("length_2", func(t *testing.T) {
		t.Parallel()
		b := NullBuffer()
		SetAdaptationField(&b, 2)
		if !HasAdaptationField(&b) {
			t.Fatal("HasAdaptationField should be true")
		}
		if got := AdaptationField(&b); got != 2 {
			t.Errorf("length = %d, want 2", got)
		}
		if b[5] != 0x00 {
			t.Errorf("byte 5 = 0x%02X, want 0x00", b[5])
		}
		for i := 6; i < PacketSize; i++ {
			if b[i] != 0xFF {
				t.Fatalf("byte %d = 0x%02X, want 0xFF", i, b[i])
			}
		}
	})

	t.Run("fill_stops_at_length", func(t *testing.T) {
		t.Parallel()
		var b Buffer
		SetAdaptationField(&b, 10)
		for i := 6; i <= 14; i++ {
			if b[i] != 0xFF {
				t.Fatalf("byte %d = 0x%02X, want 0xFF", i, b[i])
			}
		}
		for i := 15; i < PacketSize; i++ {
			if b[i] != 0 {
				t.Fatalf("payload byte %d = 0x%02X, want untouched 0x00", i, b[i])
			}
		}
	})

	t.Run("max_length", func(t *testing.T) {
		t.Parallel()
		var b Buffer
		SetAdaptationField(&b, MaxAdaptationFieldLength)
		if b[PacketSize-1] != 0xFF {
			t.Errorf("last byte = 0x%02X, want 0xFF", b[PacketSize-1])
		}
	})

	t.Run("oversized_length", func(t *testing.T) {
		t.Parallel()
		var b Buffer
		SetAdaptationField(&b, 255) // must not index past the packet
		if got := AdaptationField(&b); got != 255 {
			t.Errorf("length = %d, want 255", got)
		}
	})

	t.Run("keeps_byte_3_siblings", func(t *testing.T) {
		t.Parallel()
		b := NullBuffer()
		SetContinuityCounter(&b, 9)
		SetScrambling(&b, ScramblingEven)
		SetAdaptationField(&b, 7)
		if ContinuityCounter(&b) != 9 || Scrambling(&b) != ScramblingEven || !HasPayload(&b) {
			t.Errorf("byte 3 = 0x%02X, want 0xB9", b[3])
		}
	})
}

func TestScrambling(t *testing.T) {
	t.Parallel()
	for _, mode := range []uint8{ScramblingClear, 1, ScramblingEven, ScramblingOdd} {
		b := NullBuffer()
		SetScrambling(&b, mode)
		if got := Scrambling(&b); got != mode {
			t.Errorf("Scrambling(%d) = %d", mode, got)
		}
		if b[3]&0x3F != 0x10 {
			t.Errorf("mode %d: low bits of byte 3 = 0x%02X, want 0x10", mode, b[3]&0x3F)
		}
	}

	var b Buffer
	SetScrambling(&b, 0xFE)
	if got := Scrambling(&b); got != 2 {
		t.Errorf("Scrambling(0xFE) = %d, want 2", got)
	}
}

func TestScramblingAfterContinuityCounter(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	SetContinuityCounter(&b, 5)
	SetScrambling(&b, ScramblingEven)
	if got := Scrambling(&b); got != ScramblingEven {
		t.Errorf("scrambling = %d, want 2", got)
	}
	if got := ContinuityCounter(&b); got != 5 {
		t.Errorf("CC = %d, want 5", got)
	}
}

func TestPIDAfterUnitStart(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	SetPID(&b, 256)
	SetUnitStart(&b)
	if got := PID(&b); got != 256 {
		t.Errorf("PID = %d, want 256", got)
	}
	if !HasUnitStart(&b) {
		t.Error("unit start should be set")
	}

	SetTransportError(&b)
	SetPID(&b, 0x1234)
	if !HasTransportError(&b) || !HasUnitStart(&b) {
		t.Errorf("SetPID cleared flags: byte 1 = 0x%02X", b[1])
	}
}

func TestPCRRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []uint64{0, 1, 23647, 90000, 1 << 32, 1<<33 - 2, 1<<33 - 1}
	for _, base := range tests {
		b := NullBuffer()
		SetAdaptationField(&b, 7)
		SetPCR(&b, base)
		if !HasPCR(&b) {
			t.Fatalf("base %d: HasPCR false", base)
		}
		if got := PCR(&b); got != base {
			t.Errorf("PCR(%d) = %d", base, got)
		}
		if b[10]&0x7E != 0x7E {
			t.Errorf("base %d: reserved bits = 0x%02X, want 0x7E", base, b[10]&0x7E)
		}
	}
}

func TestPCRTruncatesTo33Bits(t *testing.T) {
	t.Parallel()
	var b Buffer
	SetPCR(&b, 1<<33|42)
	if got := PCR(&b); got != 42 {
		t.Errorf("PCR = %d, want 42", got)
	}
}

func TestPCRExtRoundTrip(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	SetAdaptationField(&b, 7)
	SetPCR(&b, 0x1ABCDEFFF)
	for ext := uint16(0); ext <= 511; ext++ {
		SetPCRExt(&b, ext)
		if got := PCRExt(&b); got != ext {
			t.Fatalf("PCRExt(%d) = %d", ext, got)
		}
		if got := PCR(&b); got != 0x1ABCDEFFF {
			t.Fatalf("ext %d: base changed to 0x%X", ext, got)
		}
	}
}

func TestPCRBaseKeepsExtension(t *testing.T) {
	t.Parallel()
	var b Buffer
	SetPCRExt(&b, 0x12A)
	SetPCR(&b, 0x1ABCDEFFF)
	if got := PCRExt(&b); got != 0x12A {
		t.Errorf("ext = 0x%X, want 0x12A", got)
	}
	// Known layout: base 0x1ABCDEFFF, reserved ones, ext 0x12A.
	want := [6]byte{0xD5, 0xE6, 0xF7, 0xFF, 0xFF, 0x2A}
	if got := [6]byte(b[6:12]); got != want {
		t.Errorf("PCR bytes = % X, want % X", got, want)
	}
}

func TestPCR27RoundTrip(t *testing.T) {
	t.Parallel()
	// Sample across the whole 27 MHz domain, edges included.
	samples := []uint64{0, 1, 299, 300, 301, 27_000_000, PCRMax / 2, PCRMax - 300, PCRMax - 1}
	const step = PCRMax / 997
	for v := uint64(7); v < PCRMax; v += step {
		samples = append(samples, v)
	}
	b := NullBuffer()
	SetAdaptationField(&b, 7)
	for _, v := range samples {
		SetPCR27(&b, v)
		if got := PCR27(&b); got != v {
			t.Fatalf("PCR27(%d) = %d", v, got)
		}
		if PCRExt(&b) >= 300 {
			t.Fatalf("PCR27(%d): ext %d out of range", v, PCRExt(&b))
		}
	}

	SetPCR27(&b, PCRMax+5)
	if got := PCR27(&b); got != 5 {
		t.Errorf("PCR27 wrap = %d, want 5", got)
	}
}

// TestNonInterference sets every field in a fixed order, then again in
// reverse, and checks both orders decode to the same values.
func TestNonInterference(t *testing.T) {
	t.Parallel()

	setters := []func(*Buffer){
		func(b *Buffer) { SetAdaptationField(b, 7) },
		SetTransportError,
		SetUnitStart,
		SetTransportPriority,
		func(b *Buffer) { SetPID(b, 0x0ABC) },
		func(b *Buffer) { SetScrambling(b, ScramblingOdd) },
		func(b *Buffer) { SetContinuityCounter(b, 11) },
		SetPayload,
		SetDiscontinuity,
		SetRandomAccess,
		SetStreamPriority,
		func(b *Buffer) { SetPCR(b, 0x123456789) },
		func(b *Buffer) { SetPCRExt(b, 0x1FF) },
	}

	check := func(t *testing.T, b *Buffer) {
		t.Helper()
		if !HasTransportError(b) || !HasUnitStart(b) || !HasTransportPriority(b) {
			t.Errorf("byte 1 flags lost: 0x%02X", b[1])
		}
		if got := PID(b); got != 0x0ABC {
			t.Errorf("PID = 0x%X, want 0xABC", got)
		}
		if got := Scrambling(b); got != ScramblingOdd {
			t.Errorf("scrambling = %d, want 3", got)
		}
		if got := ContinuityCounter(b); got != 11 {
			t.Errorf("CC = %d, want 11", got)
		}
		if !HasPayload(b) || !HasAdaptationField(b) {
			t.Errorf("byte 3 presence bits lost: 0x%02X", b[3])
		}
		if got := AdaptationField(b); got != 7 {
			t.Errorf("AF length = %d, want 7", got)
		}
		if got := PCR(b); got != 0x123456789 {
			t.Errorf("PCR = 0x%X, want 0x123456789", got)
		}
		if got := PCRExt(b); got != 0x1FF {
			t.Errorf("PCR ext = 0x%X, want 0x1FF", got)
		}
	}

	var forward Buffer
	forward[0] = SyncByte
	for _, set := range setters {
		set(&forward)
	}
	t.Run("forward", func(t *testing.T) { check(t, &forward) })

	// SetAdaptationField resets byte 5, so it stays first in both orders.
	var reverse Buffer
	reverse[0] = SyncByte
	setters[0](&reverse)
	for i := len(setters) - 1; i > 0; i-- {
		setters[i](&reverse)
	}
	t.Run("reverse", func(t *testing.T) { check(t, &reverse) })

	if forward != reverse {
		t.Errorf("order dependent header:\n fwd % X\n rev % X", forward[:12], reverse[:12])
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	b := NullBuffer()
	if err := Validate(&b); err != nil {
		t.Fatalf("null packet: %v", err)
	}
	b[0] = 0x48
	err := Validate(&b)
	if !errors.Is(err, ErrSyncByte) {
		t.Fatalf("err = %v, want ErrSyncByte", err)
	}
}
