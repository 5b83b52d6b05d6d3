package facs

import "math"

// FeatureSet holds the scalar geometry extracted from one face: eye
// aspect ratios, mouth and brow distances, corner angles and the head
// pose. Distances are measured on the roll corrected landmarks and
// scaled back to image units, so consumers divide by the eye distance
// to obtain pose invariant ratios. Lookups tolerate missing keys.
type FeatureSet map[string]float64

// Get returns the value of a feature, falling back to def when the key
// is absent.
func (f FeatureSet) Get(key string, def float64) float64 {
	if v, ok := f[key]; ok {
		return v
	}
	return def
}

// ExtractFeatures computes the distance and angle features of a face
// under the given alignment.
func ExtractFeatures(lm *LandmarkSet, a Alignment) FeatureSet {
	nb := a.Normalize(lm)
	scale := a.EyeDistance

	// Eye openness, averaged over the two top-bottom lid pairs.
	rightEyeHeight := (nb[37].Dist(nb[41]) + nb[38].Dist(nb[40])) / 2
	rightEyeWidth := nb[rightEyeOuter].Dist(nb[rightEyeInner])
	leftEyeHeight := (nb[43].Dist(nb[47]) + nb[44].Dist(nb[46])) / 2
	leftEyeWidth := nb[leftEyeInner].Dist(nb[leftEyeOuter])

	mouthWidth := nb[mouthRight].Dist(nb[mouthLeft])
	mouthHeightOuter := nb[mouthTopCenter].Dist(nb[mouthBottomCenter])
	mouthHeightInner := nb[innerMouthTopCenter].Dist(nb[innerMouthBottomCenter])

	browDistance := nb[rightBrowInner].Dist(nb[leftBrowInner])

	f := FeatureSet{
		"right_eye_aspect_ratio": rightEyeHeight / math.Max(rightEyeWidth, minDistance),
		"left_eye_aspect_ratio":  leftEyeHeight / math.Max(leftEyeWidth, minDistance),
		"right_eye_height":       rightEyeHeight * scale,
		"left_eye_height":        leftEyeHeight * scale,
		"right_eye_width":        rightEyeWidth * scale,
		"left_eye_width":         leftEyeWidth * scale,
		"mouth_width":            mouthWidth * scale,
		"mouth_height_outer":     mouthHeightOuter * scale,
		"mouth_height_inner":     mouthHeightInner * scale,
		"mouth_aspect_ratio":     mouthHeightOuter / math.Max(mouthWidth, minDistance),
		"brow_distance":          browDistance * scale,
		"eye_distance":           scale,
	}

	// Brow and mouth corner angles, measured in the roll corrected frame.
	f["right_brow_angle"] = degrees(math.Atan2(
		nb[rightBrowOuter].Y-nb[rightBrowInner].Y,
		nb[rightBrowOuter].X-nb[rightBrowInner].X))
	f["left_brow_angle"] = degrees(math.Atan2(
		nb[leftBrowOuter].Y-nb[leftBrowInner].Y,
		nb[leftBrowOuter].X-nb[leftBrowInner].X))

	mouthCenterY := (nb[mouthTopCenter].Y + nb[mouthBottomCenter].Y) / 2
	f["right_mouth_angle"] = degrees(math.Atan2(
		nb[mouthRight].Y-mouthCenterY,
		nb[mouthRight].X-nb[mouthTopCenter].X))
	f["left_mouth_angle"] = degrees(math.Atan2(
		nb[mouthLeft].Y-mouthCenterY,
		nb[mouthLeft].X-nb[mouthTopCenter].X))

	f["face_roll"] = a.Roll
	f["face_yaw"] = a.Yaw
	f["face_pitch"] = a.Pitch

	return f
}
