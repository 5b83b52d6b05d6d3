package facs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignment_LevelFace(t *testing.T) {
	assert := assert.New(t)

	a := ComputeAlignment(mustLandmarks(t, neutralPoints()))
	assert.InDelta(0, a.Roll, 1e-9)
	assert.InDelta(0, a.Yaw, 1e-9)
	assert.InDelta(faceED, a.EyeDistance, 1e-9)
	assert.InDelta(faceCX, a.Center.X, 1e-9)
	assert.InDelta(faceCY, a.Center.Y, 1e-9)
}

func TestAlignment_RecoversRoll(t *testing.T) {
	assert := assert.New(t)

	for _, deg := range []float64{-25, -5, 10, 33} {
		lm := mustLandmarks(t, rotateFace(neutralPoints(), deg))
		a := ComputeAlignment(lm)
		assert.InDelta(deg, a.Roll, 1e-6)
		assert.InDelta(faceED, a.EyeDistance, 1e-6)
	}
}

func TestAlignment_YawFollowsNose(t *testing.T) {
	assert := assert.New(t)

	// Nose tip shifted by 0.15 eye distances reads as a 15 degree turn.
	pts := neutralPoints()
	facePoint(pts, 30, 0.15, 0.35)
	a := ComputeAlignment(mustLandmarks(t, pts))
	assert.InDelta(15, a.Yaw, 1e-9)

	// An extreme offset saturates at the clamp.
	facePoint(pts, 30, 0.60, 0.35)
	a = ComputeAlignment(mustLandmarks(t, pts))
	assert.InDelta(45, a.Yaw, 1e-9)
}

func TestAlignment_PitchStaysBounded(t *testing.T) {
	assert := assert.New(t)

	// The fixture mouth sits slightly closer to the nose than the
	// resting ratio assumes, which reads as a mild upward tilt.
	a := ComputeAlignment(mustLandmarks(t, neutralPoints()))
	assert.InDelta(-11, a.Pitch, 1e-9)

	pts := neutralPoints()
	facePoint(pts, 48, -0.22, 1.6)
	facePoint(pts, 54, 0.22, 1.6)
	a = ComputeAlignment(mustLandmarks(t, pts))
	assert.InDelta(30, a.Pitch, 1e-9)
}

func TestAlignment_NormalizeRoundTrip(t *testing.T) {
	lm := mustLandmarks(t, rotateFace(neutralPoints(), 17))
	a := ComputeAlignment(lm)

	back := a.Denormalize(a.Normalize(lm))
	for i := range lm {
		assert.InDelta(t, lm[i].X, back[i].X, 1e-9, "point %d x", i)
		assert.InDelta(t, lm[i].Y, back[i].Y, 1e-9, "point %d y", i)
	}
}

func TestAlignment_NormalizeCentersEyes(t *testing.T) {
	assert := assert.New(t)

	lm := mustLandmarks(t, rotateFace(neutralPoints(), -12))
	nb := ComputeAlignment(lm).Normalize(lm)

	// After alignment the eye corners return to their upright spots,
	// one eye distance apart and level with the origin.
	assert.InDelta(-0.70, nb[rightEyeOuter].X, 1e-9)
	assert.InDelta(0, nb[rightEyeOuter].Y, 1e-9)
	assert.InDelta(0.70, nb[leftEyeOuter].X, 1e-9)
	assert.InDelta(0, nb[leftEyeOuter].Y, 1e-9)
}
