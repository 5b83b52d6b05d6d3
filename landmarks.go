package facs

import (
	"errors"
	"fmt"
	"math"
)

// NumLandmarks is the number of points in the standard 68 point face annotation.
const NumLandmarks = 68

// minDistance guards divisions on degenerate geometry, such as a landmark
// set whose eye centers collapse into a single point.
const minDistance = 1e-6

// Landmark indices into the 68 point annotation scheme. Only the points
// referenced directly by the scoring functions are named here.
const (
	rightBrowOuter = 17
	rightBrowInner = 21
	leftBrowInner  = 22
	leftBrowOuter  = 26

	noseBridgeTop = 27
	noseTip       = 30

	rightEyeOuter = 36
	rightEyeInner = 39
	leftEyeInner  = 42
	leftEyeOuter  = 45

	mouthRight        = 48
	mouthTopCenter    = 51
	mouthLeft         = 54
	mouthBottomCenter = 57

	innerMouthTopCenter    = 62
	innerMouthBottomCenter = 66
)

// ErrInvalidLandmarks is returned when a frame does not carry a usable set
// of 68 finite landmark points.
var ErrInvalidLandmarks = errors.New("invalid landmark set")

// Point is a single landmark position in image coordinates. The Y axis
// grows downwards, following the usual image convention.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two points.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// midpoint returns the point halfway between p and q.
func midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// LandmarkSet holds the 68 tracked points of a single face, indexed by the
// standard annotation order: jawline 0-16, brows 17-26, nose 27-35,
// right eye 36-41, left eye 42-47, outer lips 48-59 and inner lips 60-67.
type LandmarkSet [NumLandmarks]Point

// NewLandmarkSet validates a detector output and converts it into a
// LandmarkSet. It requires exactly 68 points, all of them finite.
func NewLandmarkSet(points []Point) (*LandmarkSet, error) {
	if len(points) != NumLandmarks {
		return nil, fmt.Errorf("%w: expected %d points, got %d", ErrInvalidLandmarks, NumLandmarks, len(points))
	}
	var lm LandmarkSet
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, fmt.Errorf("%w: point %d is not finite", ErrInvalidLandmarks, i)
		}
		lm[i] = p
	}
	return &lm, nil
}

// centroid returns the mean position of the points in the range [from, to).
func (lm *LandmarkSet) centroid(from, to int) Point {
	var sx, sy float64
	for i := from; i < to; i++ {
		sx += lm[i].X
		sy += lm[i].Y
	}
	n := float64(to - from)
	return Point{X: sx / n, Y: sy / n}
}

func (lm *LandmarkSet) rightEyeCenter() Point { return lm.centroid(36, 42) }
func (lm *LandmarkSet) leftEyeCenter() Point  { return lm.centroid(42, 48) }

// EyeDistance returns the distance between the two eye centers. The value
// is the scale reference for every normalized measurement, so it is
// clamped to a small positive minimum.
func (lm *LandmarkSet) EyeDistance() float64 {
	return math.Max(lm.rightEyeCenter().Dist(lm.leftEyeCenter()), minDistance)
}

// LandmarkName returns the descriptive name of a landmark index, or an
// empty string when the index is out of range.
func LandmarkName(i int) string {
	if i < 0 || i >= NumLandmarks {
		return ""
	}
	return landmarkNames[i]
}

var landmarkNames = [NumLandmarks]string{
	// Jawline, running from the right side of the face to the left.
	"jaw_right_1", "jaw_right_2", "jaw_right_3", "jaw_right_4",
	"jaw_right_5", "jaw_right_6", "jaw_right_7", "jaw_right_8",
	"chin", "jaw_left_8", "jaw_left_7", "jaw_left_6",
	"jaw_left_5", "jaw_left_4", "jaw_left_3", "jaw_left_2",
	"jaw_left_1",

	// Right eyebrow (17-21) and left eyebrow (22-26).
	"right_eyebrow_outer", "right_eyebrow_2", "right_eyebrow_3",
	"right_eyebrow_4", "right_eyebrow_inner",
	"left_eyebrow_inner", "left_eyebrow_2", "left_eyebrow_3",
	"left_eyebrow_4", "left_eyebrow_outer",

	// Nose bridge and base (27-35).
	"nose_bridge_1", "nose_bridge_2", "nose_bridge_3", "nose_tip",
	"nose_right_2", "nose_right_1", "nose_bottom",
	"nose_left_1", "nose_left_2",

	// Right eye (36-41) and left eye (42-47).
	"right_eye_outer", "right_eye_top_outer", "right_eye_top_inner",
	"right_eye_inner", "right_eye_bottom_inner", "right_eye_bottom_outer",
	"left_eye_inner", "left_eye_top_inner", "left_eye_top_outer",
	"left_eye_outer", "left_eye_bottom_outer", "left_eye_bottom_inner",

	// Outer lips (48-59).
	"mouth_right", "mouth_top_right_2", "mouth_top_right_1",
	"mouth_top_center", "mouth_top_left_1", "mouth_top_left_2",
	"mouth_left", "mouth_bottom_left_2", "mouth_bottom_left_1",
	"mouth_bottom_center", "mouth_bottom_right_1", "mouth_bottom_right_2",

	// Inner lips (60-67).
	"inner_mouth_right", "inner_mouth_top_right", "inner_mouth_top_center",
	"inner_mouth_top_left", "inner_mouth_left", "inner_mouth_bottom_left",
	"inner_mouth_bottom_center", "inner_mouth_bottom_right",
}
