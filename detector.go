package facs

import "math"

// Threshold is the pair of cut points applied to one action unit's raw
// score: Low is the detection cutoff, High marks a strong activation.
type Threshold struct {
	Low  float64
	High float64
}

// defaultThreshold covers units without a tuned entry.
var defaultThreshold = Threshold{Low: 0.15, High: 0.4}

// defaultThresholds returns the tuned cut points per action unit. The
// eye related units sit higher because lid noise is common in tracked
// footage; AU43 in particular only fires on firmly closed eyes.
func defaultThresholds() map[int]Threshold {
	return map[int]Threshold{
		1:  {0.15, 0.4},
		2:  {0.15, 0.4},
		4:  {0.12, 0.35},
		5:  {0.2, 0.5},
		6:  {0.15, 0.4},
		7:  {0.15, 0.4},
		9:  {0.2, 0.5},
		12: {0.15, 0.45},
		15: {0.15, 0.4},
		25: {0.1, 0.35},
		26: {0.15, 0.45},
		43: {0.3, 0.7},
	}
}

// AUResult is the activation of one action unit in one frame.
type AUResult struct {
	AU         int
	Name       string
	Detected   bool
	Confidence float64
	Intensity  Intensity
	RawScore   float64
	Asymmetry  float64
}

// Detector turns the landmarks and features of a frame into per action
// unit activations. Every defined unit appears in the output; units
// without a registered scoring function report a zero score and are
// never detected.
type Detector struct {
	scorers    map[int]ScoreFunc
	thresholds map[int]Threshold
}

// NewDetector returns a Detector with the default scoring functions and
// thresholds installed.
func NewDetector() *Detector {
	return &Detector{
		scorers:    defaultScorers(),
		thresholds: defaultThresholds(),
	}
}

// Register installs or replaces the scoring function of one action unit.
func (d *Detector) Register(au int, fn ScoreFunc) {
	d.scorers[au] = fn
}

// DetectAll scores every defined action unit against one frame.
func (d *Detector) DetectAll(lm *LandmarkSet, f FeatureSet) map[int]AUResult {
	eyeDist := math.Max(f.Get("eye_distance", 1), minDistance)

	results := make(map[int]AUResult, len(definedAUs))
	for _, au := range definedAUs {
		var raw, asym float64
		if fn, ok := d.scorers[au]; ok {
			raw, asym = fn(lm, f, eyeDist)
		}
		results[au] = d.newResult(au, raw, asym)
	}
	return results
}

func (d *Detector) newResult(au int, raw, asym float64) AUResult {
	t := d.threshold(au)
	return AUResult{
		AU:         au,
		Name:       auDefinitions[au].Name,
		Detected:   raw >= t.Low,
		Confidence: scoreConfidence(raw, t),
		Intensity:  scoreIntensity(raw, t),
		RawScore:   raw,
		Asymmetry:  asym,
	}
}

func (d *Detector) threshold(au int) Threshold {
	if t, ok := d.thresholds[au]; ok {
		return t
	}
	return defaultThreshold
}

// scoreConfidence maps a raw score onto [0, 1] through three linear
// pieces: below Low the confidence climbs to 0.5, between the cut
// points it climbs to 0.8 and past High it saturates towards 1.
func scoreConfidence(raw float64, t Threshold) float64 {
	switch {
	case raw < t.Low:
		return raw / t.Low * 0.5
	case raw < t.High:
		return 0.5 + (raw-t.Low)/(t.High-t.Low)*0.3
	default:
		return math.Min(0.8+(raw-t.High)*0.4, 1)
	}
}

// scoreIntensity buckets a raw score into the FACS A-E scale relative
// to the unit's own cut points.
func scoreIntensity(raw float64, t Threshold) Intensity {
	switch {
	case raw < t.Low*0.5:
		return Absent
	case raw < t.Low:
		return Trace
	case raw < t.Low+(t.High-t.Low)*0.33:
		return Slight
	case raw < t.High:
		return Marked
	case raw < t.High*1.3:
		return Severe
	default:
		return Maximum
	}
}
