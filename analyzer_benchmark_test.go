package facs

import (
	"testing"
)

func Benchmark_AnalyzeFrame(b *testing.B) {
	analyzer := NewAnalyzer()
	lm, err := NewLandmarkSet(happyPoints())
	if err != nil {
		b.Fatalf("could not build the landmark fixture: %v", err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		analyzer.AnalyzeFrame(lm)
	}
}

func Benchmark_AnalyzeBatch(b *testing.B) {
	fixtures := [][]Point{neutralPoints(), happyPoints(), surprisePoints(), sadPoints()}
	sets := make([]*LandmarkSet, 0, 64)
	for i := 0; i < 64; i++ {
		lm, err := NewLandmarkSet(fixtures[i%len(fixtures)])
		if err != nil {
			b.Fatalf("could not build the landmark fixture: %v", err)
		}
		sets = append(sets, lm)
	}
	analyzer := NewAnalyzer()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		analyzer.AnalyzeBatch(sets)
	}
}

func Benchmark_DetectAll(b *testing.B) {
	lm, err := NewLandmarkSet(surprisePoints())
	if err != nil {
		b.Fatalf("could not build the landmark fixture: %v", err)
	}
	feats := ExtractFeatures(lm, ComputeAlignment(lm))
	detector := NewDetector()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		detector.DetectAll(lm, feats)
	}
}
