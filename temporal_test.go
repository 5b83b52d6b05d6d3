package facs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func auFrame(conf, raw float64, detected bool) map[int]AUResult {
	return map[int]AUResult{
		12: {AU: 12, Detected: detected, Confidence: conf, RawScore: raw, Intensity: Marked},
	}
}

func TestSmoother_SteadyStateIsIdentity(t *testing.T) {
	assert := assert.New(t)

	s := NewSmoother(3)
	var out map[int]AUResult
	for i := 0; i < 5; i++ {
		out = s.Smooth(auFrame(0.75, 0.5, true))
	}

	r := out[12]
	assert.InDelta(0.75, r.Confidence, 1e-12)
	assert.InDelta(0.5, r.RawScore, 1e-12)
	assert.True(r.Detected)
	assert.Equal(Marked, r.Intensity)
}

func TestSmoother_AveragesOverWindow(t *testing.T) {
	assert := assert.New(t)

	s := NewSmoother(3)
	s.Smooth(auFrame(0.8, 0.6, true))
	out := s.Smooth(auFrame(0.2, 0, false))

	r := out[12]
	assert.InDelta(0.5, r.Confidence, 1e-12)
	assert.InDelta(0.3, r.RawScore, 1e-12)

	// The detected flag and intensity always reflect the current
	// frame, not the average.
	assert.False(r.Detected)
}

func TestSmoother_WindowSlides(t *testing.T) {
	s := NewSmoother(2)
	s.Smooth(auFrame(1, 1, true))
	s.Smooth(auFrame(0.5, 0.5, true))
	out := s.Smooth(auFrame(0.5, 0.5, true))

	// The first frame has been evicted, so the mean settles at 0.5.
	assert.InDelta(t, 0.5, out[12].RawScore, 1e-12)
	assert.InDelta(t, 0.5, out[12].Confidence, 1e-12)
}

func TestSmoother_ResetClearsHistory(t *testing.T) {
	assert := assert.New(t)

	s := NewSmoother(3)
	s.Smooth(auFrame(0.8, 0.6, true))
	s.Reset()

	out := s.Smooth(auFrame(0.2, 0.1, false))
	assert.InDelta(0.2, out[12].Confidence, 1e-12)
	assert.InDelta(0.1, out[12].RawScore, 1e-12)
}

func TestSmoother_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultSmoothingWindow, NewSmoother(0).window)
	assert.Equal(t, DefaultSmoothingWindow, NewSmoother(-4).window)
	assert.Equal(t, 7, NewSmoother(7).window)
}

func TestSmoother_UnitsJoiningMidStream(t *testing.T) {
	s := NewSmoother(3)
	s.Smooth(map[int]AUResult{6: {AU: 6, Confidence: 0.5, RawScore: 0.25}})

	// AU12 only appears in the second frame; its mean covers the
	// frames that actually carried it.
	out := s.Smooth(map[int]AUResult{
		6:  {AU: 6, Confidence: 0.5, RawScore: 0.25},
		12: {AU: 12, Confidence: 0.9, RawScore: 0.75},
	})

	assert.InDelta(t, 0.9, out[12].Confidence, 1e-12)
	assert.InDelta(t, 0.75, out[12].RawScore, 1e-12)
	assert.InDelta(t, 0.5, out[6].Confidence, 1e-12)
}
