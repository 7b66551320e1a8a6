package mpegts

// Buffer is one transport packet. The codec functions below read and write
// its header fields in place and never keep a reference to it.
type Buffer [PacketSize]byte

// NullBuffer returns a null (stuffing) packet: PID 0x1FFF, continuity
// counter 0, payload only, every byte after the header set to 0xFF. Since
// byte 5 is stuffing, HasDiscontinuity reports true on it.
func NullBuffer() Buffer {
	var b Buffer
	for i := range b {
		b[i] = StuffingByte
	}
	b[0] = SyncByte
	b[1] = NullPID >> 8
	b[2] = NullPID & 0xFF
	b[3] = payloadMask
	return b
}

// setBits replaces the bits selected by mask with v (already shifted).
func setBits(b *byte, mask, v byte) {
	*b = *b&^mask | v&mask
}

// SetTransportError sets the transport error indicator.
func SetTransportError(b *Buffer) { b[1] |= transportErrorMask }

// HasTransportError reports whether the transport error indicator is set.
func HasTransportError(b *Buffer) bool { return b[1]&transportErrorMask != 0 }

// SetUnitStart sets the payload unit start indicator.
func SetUnitStart(b *Buffer) { b[1] |= unitStartMask }

// HasUnitStart reports whether the payload unit start indicator is set.
func HasUnitStart(b *Buffer) bool { return b[1]&unitStartMask != 0 }

// SetTransportPriority sets the transport priority indicator.
func SetTransportPriority(b *Buffer) { b[1] |= transportPriorityMask }

// HasTransportPriority reports whether the transport priority indicator is set.
func HasTransportPriority(b *Buffer) bool { return b[1]&transportPriorityMask != 0 }

// SetPayload sets the payload present indicator.
func SetPayload(b *Buffer) { b[3] |= payloadMask }

// HasPayload reports whether the payload present indicator is set.
func HasPayload(b *Buffer) bool { return b[3]&payloadMask != 0 }

// Payload returns everything after the 4-byte header, adaptation field
// included. The slice aliases b.
func Payload(b *Buffer) []byte { return b[HeaderSize:] }

// SetPID writes the 13-bit packet identifier. Values above MaxPID are
// truncated. The three flag bits sharing byte 1 are preserved.
func SetPID(b *Buffer, pid uint16) {
	setBits(&b[1], pidHighMask, byte(pid>>8))
	b[2] = byte(pid)
}

// PID returns the 13-bit packet identifier.
func PID(b *Buffer) uint16 {
	return uint16(b[1]&pidHighMask)<<8 | uint16(b[2])
}

// SetContinuityCounter writes cc modulo 16 without touching the scrambling
// and presence bits of byte 3.
func SetContinuityCounter(b *Buffer, cc uint8) {
	setBits(&b[3], continuityMask, cc)
}

// ZeroContinuityCounter resets the continuity counter to 0.
func ZeroContinuityCounter(b *Buffer) { b[3] &^= continuityMask }

// ContinuityCounter returns the 4-bit continuity counter.
func ContinuityCounter(b *Buffer) uint8 { return b[3] & continuityMask }

// SetAdaptationField marks the adaptation field present and writes its
// length. A length of at least 1 clears every adaptation flag in byte 5; a
// length of at least 2 fills the rest of the field (bytes 6 through
// 4+length) with stuffing. Bytes after the declared field are left alone,
// so payload already written behind it survives. The length itself is not
// checked against MaxAdaptationFieldLength; the fill stops at the end of
// the packet either way.
func SetAdaptationField(b *Buffer, length uint8) {
	b[3] |= adaptationFieldMask
	b[4] = length
	if length == 0 {
		return
	}
	b[5] = 0x00
	end := HeaderSize + int(length)
	if end > PacketSize-1 {
		end = PacketSize - 1
	}
	for i := HeaderSizeAF; i <= end; i++ {
		b[i] = StuffingByte
	}
}

// HasAdaptationField reports whether the adaptation field indicator is set.
func HasAdaptationField(b *Buffer) bool { return b[3]&adaptationFieldMask != 0 }

// AdaptationField returns the adaptation field length byte. It is only
// meaningful when HasAdaptationField is true.
func AdaptationField(b *Buffer) uint8 { return b[4] }

// SetScrambling writes the 2-bit transport scrambling control. Higher bits
// of mode are dropped.
func SetScrambling(b *Buffer, mode uint8) {
	setBits(&b[3], scramblingMask, mode<<scramblingShift)
}

// Scrambling returns the 2-bit transport scrambling control.
func Scrambling(b *Buffer) uint8 {
	return (b[3] & scramblingMask) >> scramblingShift
}

// SetDiscontinuity sets the discontinuity indicator.
func SetDiscontinuity(b *Buffer) { b[5] |= discontinuityMask }

// ClearDiscontinuity clears the discontinuity indicator.
func ClearDiscontinuity(b *Buffer) { b[5] &^= discontinuityMask }

// HasDiscontinuity reports whether the discontinuity indicator is set.
func HasDiscontinuity(b *Buffer) bool { return b[5]&discontinuityMask != 0 }

// SetRandomAccess sets the random access indicator.
func SetRandomAccess(b *Buffer) { b[5] |= randomAccessMask }

// HasRandomAccess reports whether the random access indicator is set.
func HasRandomAccess(b *Buffer) bool { return b[5]&randomAccessMask != 0 }

// SetStreamPriority sets the elementary stream priority indicator.
func SetStreamPriority(b *Buffer) { b[5] |= streamPriorityMask }

// HasStreamPriority reports whether the elementary stream priority
// indicator is set.
func HasStreamPriority(b *Buffer) bool { return b[5]&streamPriorityMask != 0 }

// SetPCR sets the PCR flag and writes the 33-bit PCR base (90 kHz).
// Bits above 33 are dropped. The six reserved bits are written as ones and
// the extension bit stored in byte 10 is kept, so SetPCR and SetPCRExt can
// be called in either order.
func SetPCR(b *Buffer, base uint64) {
	base &= pcrBaseMask
	b[5] |= pcrFlagMask
	b[6] = byte(base >> 25)
	b[7] = byte(base >> 17)
	b[8] = byte(base >> 9)
	b[9] = byte(base >> 1)
	b[10] = byte(base<<7)&pcrBaseLowMask | pcrReservedBits | b[10]&pcrExtHighMask
}

// HasPCR reports whether the PCR flag is set. Only meaningful when the
// packet has an adaptation field of length 1 or more.
func HasPCR(b *Buffer) bool { return b[5]&pcrFlagMask != 0 }

// PCR returns the 33-bit PCR base.
func PCR(b *Buffer) uint64 {
	return uint64(b[6])<<25 |
		uint64(b[7])<<17 |
		uint64(b[8])<<9 |
		uint64(b[9])<<1 |
		uint64(b[10])>>7
}

// SetPCRExt writes the 9-bit PCR extension (27 MHz). Bits above 9 are
// dropped; the base bit and reserved bits of byte 10 are kept.
func SetPCRExt(b *Buffer, ext uint16) {
	setBits(&b[10], pcrExtHighMask, byte(ext>>8))
	b[11] = byte(ext)
}

// PCRExt returns the 9-bit PCR extension.
func PCRExt(b *Buffer) uint16 {
	return uint16(b[10]&pcrExtHighMask)<<8 | uint16(b[11])
}

// SetPCR27 writes a full 27 MHz programme clock value as base*300+ext,
// setting the PCR flag. v is reduced modulo PCRMax first.
func SetPCR27(b *Buffer, v uint64) {
	v %= PCRMax
	SetPCR(b, v/pcrExtDiv)
	SetPCRExt(b, uint16(v%pcrExtDiv))
}

// PCR27 returns the programme clock in 27 MHz ticks (base*300 + ext).
func PCR27(b *Buffer) uint64 {
	return PCR(b)*pcrExtDiv + uint64(PCRExt(b))
}
