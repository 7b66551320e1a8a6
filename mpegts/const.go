package mpegts

// Packet geometry.
const (
	PacketSize    = 188
	HeaderSize    = 4
	HeaderSizeAF  = 6
	HeaderSizePCR = 12
	PayloadSize   = PacketSize - HeaderSize
)

const (
	SyncByte     = 0x47
	StuffingByte = 0xFF

	MaxPID  = 0x1FFF
	NullPID = MaxPID

	// MaxAdaptationFieldLength is the largest adaptation field that fits
	// after the 4-byte header and the length byte itself.
	MaxAdaptationFieldLength = PacketSize - HeaderSize - 1

	SectionMaxSize = 0x1000
)

// PCR clock. PCRMax is the wrap point of the 27 MHz programme clock
// (2^33 * 300).
const (
	PCRMax  uint64 = 2576980377600
	PCRRate        = 27_000_000

	pcrBaseMask uint64 = 1<<33 - 1
	pcrExtDiv          = 300
)

// Scrambling modes. Only the 2-bit value is carried; ISO/IEC 13818-1 leaves
// the meaning of 1-3 to the conditional access system, these follow common
// DVB usage.
const (
	ScramblingClear uint8 = 0
	ScramblingEven  uint8 = 2
	ScramblingOdd   uint8 = 3
)

// Byte 1.
const (
	transportErrorMask    = 0x80
	unitStartMask         = 0x40
	transportPriorityMask = 0x20
	pidHighMask           = 0x1F
)

// Byte 3.
const (
	scramblingMask      = 0xC0
	scramblingShift     = 6
	adaptationFieldMask = 0x20
	payloadMask         = 0x10
	continuityMask      = 0x0F
)

// Byte 5, adaptation field flags.
const (
	discontinuityMask  = 0x80
	randomAccessMask   = 0x40
	streamPriorityMask = 0x20
	pcrFlagMask        = 0x10
)

// Byte 10 of a PCR: base bit 0, six reserved bits, extension bit 8.
const (
	pcrBaseLowMask  = 0x80
	pcrReservedBits = 0x7E
	pcrExtHighMask  = 0x01
)
