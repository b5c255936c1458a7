package analysis

import (
	"testing"
)

// Benchmarks for one monitoring tick's worth of analysis on a full 17 keypoint skeleton.

// BenchmarkCompare_Correct exercises the path where every region is within tolerance.
func BenchmarkCompare_Correct(b *testing.B) {
	cfg := DefaultConfig()
	reference := standingFrame(b, 0, 0, 0.9)
	current := standingFrame(b, 3, -2, 0.9)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = cfg.Compare(&reference, current)
	}
}

// BenchmarkCompare_Deviating exercises both regions producing a correction.
func BenchmarkCompare_Deviating(b *testing.B) {
	cfg := DefaultConfig()
	reference := standingFrame(b, 0, 0, 0.9)
	current := standingFrame(b, 0, 45, 0.9)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = cfg.Compare(&reference, current)
	}
}

// BenchmarkCompare_LowConfidence exercises the gate dropping every keypoint.
func BenchmarkCompare_LowConfidence(b *testing.B) {
	cfg := DefaultConfig()
	reference := standingFrame(b, 0, 0, 0.9)
	current := standingFrame(b, 0, 45, 0.3)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = cfg.Compare(&reference, current)
	}
}
