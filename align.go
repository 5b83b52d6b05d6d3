package facs

import (
	"math"

	"github.com/edvanssen/facs/utils"
)

// Alignment captures the pose of a face relative to an upright frontal
// view: the in-plane roll of the head, rough yaw and pitch estimates,
// the midpoint between the eyes and the eye distance used as the scale
// reference for every normalized measurement.
type Alignment struct {
	Roll        float64 // head tilt in degrees, positive when the left eye sits lower
	Yaw         float64 // estimated horizontal turn in degrees
	Pitch       float64 // estimated vertical tilt in degrees
	Center      Point   // midpoint between the eye centers
	EyeDistance float64
}

// ComputeAlignment estimates the pose of a face from its landmarks.
// The roll is measured from the line connecting the two eye centers.
// Yaw and pitch are derived from the nose and mouth positions; they are
// coarse estimates meant to qualify a frame, not to reconstruct the
// head pose in 3D.
func ComputeAlignment(lm *LandmarkSet) Alignment {
	right := lm.rightEyeCenter()
	left := lm.leftEyeCenter()

	eyeDist := math.Max(right.Dist(left), minDistance)
	center := midpoint(right, left)
	roll := degrees(math.Atan2(left.Y-right.Y, left.X-right.X))

	// Turning the head shifts the nose tip away from the midline
	// between the eyes.
	nose := lm[noseTip]
	yaw := utils.Clamp((nose.X-center.X)/(eyeDist*0.3)*30, -45, 45)

	// Tilting the head up or down compresses or stretches the apparent
	// nose to mouth distance.
	mouthCenter := midpoint(lm[mouthRight], lm[mouthLeft])
	expected := eyeDist * 0.6
	pitch := utils.Clamp((mouthCenter.Y-nose.Y-expected)/expected*30, -30, 30)

	return Alignment{
		Roll:        roll,
		Yaw:         yaw,
		Pitch:       pitch,
		Center:      center,
		EyeDistance: eyeDist,
	}
}

// Normalize maps a landmark set into the aligned face frame: the eye
// midpoint moves to the origin, the roll is rotated out and all
// coordinates are divided by the eye distance.
func (a Alignment) Normalize(lm *LandmarkSet) *LandmarkSet {
	scale := a.EyeDistance
	if scale <= 0 {
		scale = 1
	}
	sin, cos := math.Sincos(radians(-a.Roll))

	var out LandmarkSet
	for i, p := range lm {
		x := p.X - a.Center.X
		y := p.Y - a.Center.Y
		out[i] = Point{
			X: (x*cos - y*sin) / scale,
			Y: (x*sin + y*cos) / scale,
		}
	}
	return &out
}

// Denormalize is the inverse of Normalize, mapping aligned landmarks
// back into image coordinates.
func (a Alignment) Denormalize(lm *LandmarkSet) *LandmarkSet {
	sin, cos := math.Sincos(radians(a.Roll))

	var out LandmarkSet
	for i, p := range lm {
		x := p.X * a.EyeDistance
		y := p.Y * a.EyeDistance
		out[i] = Point{
			X: x*cos - y*sin + a.Center.X,
			Y: x*sin + y*cos + a.Center.Y,
		}
	}
	return &out
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
func radians(deg float64) float64 { return deg * math.Pi / 180 }
