package facs

import (
	"math"

	"github.com/edvanssen/facs/utils"
)

// ScoreFunc computes the raw activation and the left-right asymmetry of
// a single action unit. It receives the raw landmarks of the frame, the
// extracted features and the eye distance to normalize against. The raw
// score is clipped to [0, 1]; the asymmetry is positive when the left
// side of the face is stronger and stays within [-1, 1].
type ScoreFunc func(lm *LandmarkSet, f FeatureSet, eyeDist float64) (raw, asym float64)

// defaultScorers returns the scoring functions of every action unit
// with a geometric detection rule. Units without a rule (AU10, AU17,
// AU20 and AU23) stay defined but score zero.
func defaultScorers() map[int]ScoreFunc {
	return map[int]ScoreFunc{
		1:  scoreInnerBrowRaiser,
		2:  scoreOuterBrowRaiser,
		4:  scoreBrowLowerer,
		5:  scoreUpperLidRaiser,
		6:  scoreCheekRaiser,
		7:  scoreLidTightener,
		9:  scoreNoseWrinkler,
		12: scoreLipCornerPuller,
		15: scoreLipCornerDepressor,
		25: scoreLipsPart,
		26: scoreJawDrop,
		43: scoreEyesClosed,
	}
}

// bilateralScore folds a left and a right measurement into one score.
// Each side is shifted by its resting baseline and divided by the
// activation scale before averaging.
func bilateralScore(rightVal, leftVal, baseline, scale float64) (float64, float64) {
	rightScore := math.Max(0, (rightVal-baseline)/scale)
	leftScore := math.Max(0, (leftVal-baseline)/scale)
	raw := math.Min((rightScore+leftScore)/2, 1)
	return raw, utils.Clamp(leftScore-rightScore, -1, 1)
}

// scoreInnerBrowRaiser measures AU1 from the vertical gap between the
// top of the nose bridge and the inner brow points.
func scoreInnerBrowRaiser(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightDist := (lm[noseBridgeTop].Y - lm[rightBrowInner].Y) / eyeDist
	leftDist := (lm[noseBridgeTop].Y - lm[leftBrowInner].Y) / eyeDist
	return bilateralScore(rightDist, leftDist, 0.18, 0.12)
}

// scoreOuterBrowRaiser measures AU2 from the gap between the outer eye
// corners and the outer brow points.
func scoreOuterBrowRaiser(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightDist := (lm[rightEyeOuter].Y - lm[rightBrowOuter].Y) / eyeDist
	leftDist := (lm[leftEyeOuter].Y - lm[leftBrowOuter].Y) / eyeDist
	return bilateralScore(rightDist, leftDist, 0.15, 0.1)
}

// scoreBrowLowerer measures AU4 from how far the inner brows have been
// drawn together.
func scoreBrowLowerer(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	browDist := f.Get("brow_distance", eyeDist*0.3) / eyeDist
	return utils.Clamp((0.35-browDist)/0.12, 0, 1), 0
}

// scoreUpperLidRaiser measures AU5 from eyes opened wider than their
// resting aspect ratio.
func scoreUpperLidRaiser(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightEAR := f.Get("right_eye_aspect_ratio", 0.25)
	leftEAR := f.Get("left_eye_aspect_ratio", 0.25)
	return bilateralScore(rightEAR, leftEAR, 0.28, 0.12)
}

// scoreCheekRaiser measures AU6 from the lower eyelids moving towards
// the mouth corners as the cheeks push up.
func scoreCheekRaiser(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightBottom := midpoint(lm[40], lm[41])
	leftBottom := midpoint(lm[46], lm[47])
	rightDist := rightBottom.Dist(lm[mouthRight]) / eyeDist
	leftDist := leftBottom.Dist(lm[mouthLeft]) / eyeDist

	rightScore := math.Max(0, (0.75-rightDist)/0.18)
	leftScore := math.Max(0, (0.75-leftDist)/0.18)
	return math.Min((rightScore+leftScore)/2, 1), utils.Clamp(leftScore-rightScore, -1, 1)
}

// scoreLidTightener measures AU7 from eyes narrowed below their resting
// aspect ratio.
func scoreLidTightener(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightEAR := f.Get("right_eye_aspect_ratio", 0.25)
	leftEAR := f.Get("left_eye_aspect_ratio", 0.25)

	rightScore := math.Max(0, (0.25-rightEAR)/0.1)
	leftScore := math.Max(0, (0.25-leftEAR)/0.1)
	return math.Min((rightScore+leftScore)/2, 1), utils.Clamp(leftScore-rightScore, -1, 1)
}

// scoreNoseWrinkler measures AU9 from the upper lip being pulled
// towards the nose tip.
func scoreNoseWrinkler(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	dist := lm[mouthTopCenter].Dist(lm[noseTip]) / eyeDist
	return utils.Clamp((0.35-dist)/0.12, 0, 1), 0
}

// scoreLipCornerPuller measures AU12 as a blend of mouth corner
// elevation against the upper lip and mouth widening. The elevation
// carries most of the weight; the width term alone cannot trigger a
// full smile.
func scoreLipCornerPuller(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightElev := (lm[mouthTopCenter].Y - lm[mouthRight].Y) / eyeDist
	leftElev := (lm[mouthTopCenter].Y - lm[mouthLeft].Y) / eyeDist
	mouthWidth := f.Get("mouth_width", eyeDist*0.5) / eyeDist

	widthScore := math.Max(0, (mouthWidth-0.48)/0.1) * 0.3
	rightScore := math.Max(0, (rightElev-0.02)/0.06)*0.7 + widthScore
	leftScore := math.Max(0, (leftElev-0.02)/0.06)*0.7 + widthScore
	return math.Min((rightScore+leftScore)/2, 1), utils.Clamp(leftScore-rightScore, -1, 1)
}

// scoreLipCornerDepressor measures AU15 from the mouth corners dropping
// below the lower lip center.
func scoreLipCornerDepressor(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightDep := (lm[mouthRight].Y - lm[mouthBottomCenter].Y) / eyeDist
	leftDep := (lm[mouthLeft].Y - lm[mouthBottomCenter].Y) / eyeDist
	return bilateralScore(rightDep, leftDep, 0, 0.05)
}

// scoreLipsPart measures AU25 from the inner lip opening.
func scoreLipsPart(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	height := f.Get("mouth_height_inner", 0) / eyeDist
	return utils.Clamp((height-0.02)/0.08, 0, 1), 0
}

// scoreJawDrop measures AU26 from the outer lip opening.
func scoreJawDrop(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	height := f.Get("mouth_height_outer", 0) / eyeDist
	return utils.Clamp((height-0.05)/0.12, 0, 1), 0
}

// scoreEyesClosed measures AU43 from both eyes dropping well under the
// open aspect ratio.
func scoreEyesClosed(lm *LandmarkSet, f FeatureSet, eyeDist float64) (float64, float64) {
	rightEAR := f.Get("right_eye_aspect_ratio", 0.25)
	leftEAR := f.Get("left_eye_aspect_ratio", 0.25)

	rightScore := math.Max(0, (0.2-rightEAR)/0.15)
	leftScore := math.Max(0, (0.2-leftEAR)/0.15)
	return math.Min((rightScore+leftScore)/2, 1), utils.Clamp(leftScore-rightScore, -1, 1)
}
