package mpegts

import "fmt"

// Packet owns a single transport packet and exposes the field codec as
// methods. Setters return the receiver so calls can be chained. The zero
// value is an all-zero buffer; use NullPacket for a well-formed default.
type Packet struct {
	buf Buffer
}

// NullPacket returns a Packet holding NullBuffer.
func NullPacket() Packet {
	return Packet{buf: NullBuffer()}
}

// FromBuffer wraps a copy of b.
func FromBuffer(b Buffer) Packet {
	return Packet{buf: b}
}

// ParsePacket copies a 188-byte slice into a Packet. Only the length is
// checked; see Validate for the sync byte.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) != PacketSize {
		return Packet{}, fmt.Errorf("%w: %d, expected %d", ErrPacketSize, len(data), PacketSize)
	}
	var p Packet
	copy(p.buf[:], data)
	return p, nil
}

// Buffer returns a copy of the underlying packet bytes.
func (p Packet) Buffer() Buffer { return p.buf }

// Bytes returns the packet as a slice aliasing p's storage.
func (p *Packet) Bytes() []byte { return p.buf[:] }

// Validate checks the sync byte.
func (p *Packet) Validate() error { return Validate(&p.buf) }

// SetTransportError sets the transport error indicator.
func (p *Packet) SetTransportError() *Packet {
	SetTransportError(&p.buf)
	return p
}

// HasTransportError reports whether the transport error indicator is set.
func (p *Packet) HasTransportError() bool { return HasTransportError(&p.buf) }

// SetUnitStart sets the payload unit start indicator.
func (p *Packet) SetUnitStart() *Packet {
	SetUnitStart(&p.buf)
	return p
}

// HasUnitStart reports whether the payload unit start indicator is set.
func (p *Packet) HasUnitStart() bool { return HasUnitStart(&p.buf) }

// SetTransportPriority sets the transport priority indicator.
func (p *Packet) SetTransportPriority() *Packet {
	SetTransportPriority(&p.buf)
	return p
}

// HasTransportPriority reports whether the transport priority indicator is set.
func (p *Packet) HasTransportPriority() bool { return HasTransportPriority(&p.buf) }

// SetPayload sets the payload present indicator.
func (p *Packet) SetPayload() *Packet {
	SetPayload(&p.buf)
	return p
}

// HasPayload reports whether the payload present indicator is set.
func (p *Packet) HasPayload() bool { return HasPayload(&p.buf) }

// Payload returns bytes 4..187, aliasing p's storage.
func (p *Packet) Payload() []byte { return Payload(&p.buf) }

// SetPID writes the PID, truncated to 13 bits.
func (p *Packet) SetPID(pid uint16) *Packet {
	SetPID(&p.buf, pid)
	return p
}

// PID returns the 13-bit packet identifier.
func (p *Packet) PID() uint16 { return PID(&p.buf) }

// SetContinuityCounter writes cc modulo 16.
func (p *Packet) SetContinuityCounter(cc uint8) *Packet {
	SetContinuityCounter(&p.buf, cc)
	return p
}

// ZeroContinuityCounter resets the continuity counter to 0.
func (p *Packet) ZeroContinuityCounter() *Packet {
	ZeroContinuityCounter(&p.buf)
	return p
}

// ContinuityCounter returns the 4-bit continuity counter.
func (p *Packet) ContinuityCounter() uint8 { return ContinuityCounter(&p.buf) }

// SetAdaptationField behaves as the package-level SetAdaptationField.
func (p *Packet) SetAdaptationField(length uint8) *Packet {
	SetAdaptationField(&p.buf, length)
	return p
}

// HasAdaptationField reports whether the adaptation field indicator is set.
func (p *Packet) HasAdaptationField() bool { return HasAdaptationField(&p.buf) }

// AdaptationField returns the adaptation field length byte.
func (p *Packet) AdaptationField() uint8 { return AdaptationField(&p.buf) }

// SetScrambling writes the 2-bit transport scrambling control.
func (p *Packet) SetScrambling(mode uint8) *Packet {
	SetScrambling(&p.buf, mode)
	return p
}

// Scrambling returns the 2-bit transport scrambling control.
func (p *Packet) Scrambling() uint8 { return Scrambling(&p.buf) }

// SetDiscontinuity sets the discontinuity indicator.
func (p *Packet) SetDiscontinuity() *Packet {
	SetDiscontinuity(&p.buf)
	return p
}

// ClearDiscontinuity clears the discontinuity indicator.
func (p *Packet) ClearDiscontinuity() *Packet {
	ClearDiscontinuity(&p.buf)
	return p
}

// HasDiscontinuity reports whether the discontinuity indicator is set.
func (p *Packet) HasDiscontinuity() bool { return HasDiscontinuity(&p.buf) }

// SetRandomAccess sets the random access indicator.
func (p *Packet) SetRandomAccess() *Packet {
	SetRandomAccess(&p.buf)
	return p
}

// HasRandomAccess reports whether the random access indicator is set.
func (p *Packet) HasRandomAccess() bool { return HasRandomAccess(&p.buf) }

// SetStreamPriority sets the elementary stream priority indicator.
func (p *Packet) SetStreamPriority() *Packet {
	SetStreamPriority(&p.buf)
	return p
}

// HasStreamPriority reports whether the elementary stream priority indicator is set.
func (p *Packet) HasStreamPriority() bool { return HasStreamPriority(&p.buf) }

// SetPCR sets the PCR flag and writes the 33-bit PCR base.
func (p *Packet) SetPCR(base uint64) *Packet {
	SetPCR(&p.buf, base)
	return p
}

// HasPCR reports whether the PCR flag is set.
func (p *Packet) HasPCR() bool { return HasPCR(&p.buf) }

// PCR returns the 33-bit PCR base.
func (p *Packet) PCR() uint64 { return PCR(&p.buf) }

// SetPCRExt writes the 9-bit PCR extension.
func (p *Packet) SetPCRExt(ext uint16) *Packet {
	SetPCRExt(&p.buf, ext)
	return p
}

// PCRExt returns the 9-bit PCR extension.
func (p *Packet) PCRExt() uint16 { return PCRExt(&p.buf) }

// SetPCR27 writes a 27 MHz clock value as PCR base and extension.
func (p *Packet) SetPCR27(v uint64) *Packet {
	SetPCR27(&p.buf, v)
	return p
}

// PCR27 returns the programme clock in 27 MHz ticks.
func (p *Packet) PCR27() uint64 { return PCR27(&p.buf) }
