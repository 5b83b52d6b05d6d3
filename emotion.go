package facs

import (
	"math"
	"sort"
)

// unilateralAsymmetry is the minimum absolute asymmetry an action unit
// must show before it counts as one sided.
const unilateralAsymmetry = 0.3

// EmotionResult is one candidate emotion with its supporting evidence.
type EmotionResult struct {
	Emotion     string
	Confidence  float64
	Valence     float64
	Arousal     float64
	MatchedAUs  []int
	MissingAUs  []int
	Description string
}

// EmotionMapper ranks the prototype emotions against the detected
// action units of a frame.
type EmotionMapper struct {
	definitions []EmotionDefinition
}

// NewEmotionMapper returns a mapper over the built in emotion
// prototypes.
func NewEmotionMapper() *EmotionMapper {
	return &EmotionMapper{definitions: emotionDefinitions}
}

// Map evaluates every prototype emotion against the activations of a
// frame. The result is ordered by descending confidence, with ties
// broken by name; when nothing matches convincingly a neutral entry is
// placed in front, graded by how weak the best candidate is.
func (m *EmotionMapper) Map(aus map[int]AUResult, intensities map[int]IntensityResult) []EmotionResult {
	detected := make(map[int]bool, len(aus))
	for au, r := range aus {
		if r.Detected {
			detected[au] = true
		}
	}
	values := intensityValues(aus, intensities)

	emotions := make([]EmotionResult, 0, len(m.definitions))
	for _, def := range m.definitions {
		if r, ok := evaluateEmotion(def, detected, values, aus); ok {
			emotions = append(emotions, r)
		}
	}

	sort.Slice(emotions, func(i, j int) bool {
		if emotions[i].Confidence != emotions[j].Confidence {
			return emotions[i].Confidence > emotions[j].Confidence
		}
		return emotions[i].Emotion < emotions[j].Emotion
	})

	if len(emotions) == 0 || emotions[0].Confidence < 0.3 {
		var top float64
		if len(emotions) > 0 {
			top = emotions[0].Confidence
		}
		neutral := EmotionResult{
			Emotion:     "neutral",
			Confidence:  1 - top,
			Description: "Neutral",
		}
		emotions = append([]EmotionResult{neutral}, emotions...)
	}
	return emotions
}

// intensityValues picks the 0-5 grading of each unit, falling back to
// the scaled raw scores when no estimator output is available.
func intensityValues(aus map[int]AUResult, intensities map[int]IntensityResult) map[int]float64 {
	values := make(map[int]float64, len(aus))
	if len(intensities) > 0 {
		for au, r := range intensities {
			values[au] = r.Value
		}
		return values
	}
	for au, r := range aus {
		values[au] = r.RawScore * 5
	}
	return values
}

// evaluateEmotion scores one prototype against the detected unit set.
// At least half of the required units must be present; the optional
// units and the activation strength only refine the confidence.
func evaluateEmotion(def EmotionDefinition, detected map[int]bool, values map[int]float64, aus map[int]AUResult) (EmotionResult, bool) {
	if len(def.RequiredAUs) == 0 {
		return EmotionResult{}, false
	}

	var matched, missing []int
	for _, au := range def.RequiredAUs {
		if detected[au] {
			matched = append(matched, au)
		} else {
			missing = append(missing, au)
		}
	}
	ratio := float64(len(matched)) / float64(len(def.RequiredAUs))
	if ratio < 0.5 {
		return EmotionResult{}, false
	}

	// One sided expressions only qualify when at least one of their
	// required units actually fires asymmetrically. A symmetric smile
	// is happiness, not contempt.
	if def.Unilateral && !anyAsymmetric(matched, aus) {
		return EmotionResult{}, false
	}

	var matchedOptional []int
	for _, au := range def.OptionalAUs {
		if detected[au] {
			matchedOptional = append(matchedOptional, au)
		}
	}

	confidence := ratio * 0.7
	if len(def.OptionalAUs) > 0 {
		confidence += float64(len(matchedOptional)) / float64(len(def.OptionalAUs)) * 0.2
	}

	// Stronger activations earn a small bonus on top of the
	// structural match.
	all := append(append([]int{}, matched...), matchedOptional...)
	var sum float64
	for _, au := range all {
		sum += values[au]
	}
	confidence += 0.1 * (sum / float64(len(all))) / 5
	confidence = math.Min(confidence, 1)

	sort.Ints(all)
	return EmotionResult{
		Emotion:     def.Name,
		Confidence:  confidence,
		Valence:     def.Valence,
		Arousal:     def.Arousal,
		MatchedAUs:  all,
		MissingAUs:  missing,
		Description: def.Description,
	}, true
}

func anyAsymmetric(units []int, aus map[int]AUResult) bool {
	for _, au := range units {
		if math.Abs(aus[au].Asymmetry) >= unilateralAsymmetry {
			return true
		}
	}
	return false
}

// ValenceArousal folds a ranked emotion list into a single point on the
// circumplex plane, weighting each candidate by its confidence.
func ValenceArousal(emotions []EmotionResult) (valence, arousal float64) {
	var total float64
	for _, e := range emotions {
		total += e.Confidence
	}
	if total == 0 {
		return 0, 0
	}
	for _, e := range emotions {
		valence += e.Valence * e.Confidence
		arousal += e.Arousal * e.Confidence
	}
	return valence / total, arousal / total
}

// Blend reduces a ranked emotion list to the mixture of candidates at
// or above the confidence threshold, normalized so the shares sum to 1.
func Blend(emotions []EmotionResult, threshold float64) map[string]float64 {
	blend := make(map[string]float64)
	var total float64
	for _, e := range emotions {
		if e.Confidence >= threshold {
			blend[e.Emotion] = e.Confidence
			total += e.Confidence
		}
	}
	if total > 0 {
		for name, c := range blend {
			blend[name] = c / total
		}
	}
	return blend
}

// AsymmetricAU describes one unit firing visibly stronger on one side
// of the face.
type AsymmetricAU struct {
	AU        int
	Asymmetry float64
	Side      string // "left" when the asymmetry is positive
}

// AsymmetryReport summarizes the lateral imbalance of a frame. A
// strongly one sided lip corner movement hints at contempt.
type AsymmetryReport struct {
	AsymmetricAUs      []AsymmetricAU
	IsAsymmetric       bool
	ContemptLikelihood float64
	PossibleContempt   bool
}

// DetectAsymmetry flags the units whose activation leans clearly to one
// side and estimates how likely the frame shows a contempt expression.
func DetectAsymmetry(aus map[int]AUResult) AsymmetryReport {
	order := make([]int, 0, len(aus))
	for au := range aus {
		order = append(order, au)
	}
	sort.Ints(order)

	var report AsymmetryReport
	for _, au := range order {
		r := aus[au]
		if math.Abs(r.Asymmetry) > unilateralAsymmetry {
			side := "right"
			if r.Asymmetry > 0 {
				side = "left"
			}
			report.AsymmetricAUs = append(report.AsymmetricAUs, AsymmetricAU{
				AU:        au,
				Asymmetry: r.Asymmetry,
				Side:      side,
			})
		}
	}
	report.IsAsymmetric = len(report.AsymmetricAUs) > 0

	// The contempt smirk shows up on the lip corner units.
	for _, a := range report.AsymmetricAUs {
		if a.AU == 12 || a.AU == 14 {
			report.ContemptLikelihood = math.Max(report.ContemptLikelihood, math.Abs(a.Asymmetry))
		}
	}
	report.PossibleContempt = report.ContemptLikelihood > 0.4

	return report
}
