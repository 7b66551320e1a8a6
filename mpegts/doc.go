// Package mpegts encodes and decodes the fixed 188-byte MPEG-2 transport
// stream packet header in place.
//
// The field codec is a set of functions over a caller-owned [Buffer]. Every
// setter is read-modify-write: it changes only the bits of its own field, so
// setters on different fields can be called in any order. Getters never
// validate; reading the PCR of a packet whose adaptation field or PCR flag is
// unset returns whatever bytes happen to be there.
//
// [Packet] wraps a single Buffer and exposes the same operations as methods
// that can be chained:
//
//	p := mpegts.NullPacket()
//	p.SetPID(0x100).SetUnitStart().SetContinuityCounter(3)
package mpegts
