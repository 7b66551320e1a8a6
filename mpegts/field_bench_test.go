package mpegts

import "testing"

func BenchmarkHeaderRoundTrip(b *testing.B) {
	buf := NullBuffer()
	var sink uint64
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SetPID(&buf, uint16(i))
		SetContinuityCounter(&buf, uint8(i))
		SetUnitStart(&buf)
		sink += uint64(PID(&buf)) + uint64(ContinuityCounter(&buf))
	}
	_ = sink
}

func BenchmarkPCR27(b *testing.B) {
	buf := NullBuffer()
	SetAdaptationField(&buf, 7)
	var sink uint64
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SetPCR27(&buf, uint64(i)*1001)
		sink += PCR27(&buf)
	}
	_ = sink
}
