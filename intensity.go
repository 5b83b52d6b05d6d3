package facs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edvanssen/facs/utils"
)

// Intensity is the discrete FACS intensity scale. Absent means the unit
// is not engaged; Trace through Maximum correspond to the letters A-E.
type Intensity int

const (
	Absent Intensity = iota
	Trace
	Slight
	Marked
	Severe
	Maximum
)

// String returns the lowercase name of the intensity level.
func (i Intensity) String() string {
	switch i {
	case Absent:
		return "absent"
	case Trace:
		return "trace"
	case Slight:
		return "slight"
	case Marked:
		return "marked"
	case Severe:
		return "severe"
	case Maximum:
		return "maximum"
	}
	return "unknown"
}

// Letter returns the FACS letter of the intensity level, or "-" for an
// absent unit.
func (i Intensity) Letter() string {
	switch i {
	case Trace:
		return "A"
	case Slight:
		return "B"
	case Marked:
		return "C"
	case Severe:
		return "D"
	case Maximum:
		return "E"
	}
	return "-"
}

// IntensityResult grades one action unit on the continuous 0-5 scale
// alongside its discrete FACS letter. The detection confidence of the
// underlying activation is carried over unchanged.
type IntensityResult struct {
	AU         int
	Intensity  Intensity
	Value      float64 // continuous grade on [0, 5]
	Label      string  // FACS letter, "-" when absent
	Confidence float64
}

// IntensityEstimator converts detector activations into FACS grades.
// A per unit calibration factor compensates for scoring rules whose
// raw range runs systematically shallow or hot; units without an entry
// use a factor of 1.
type IntensityEstimator struct {
	calibration map[int]float64
}

// NewIntensityEstimator returns an estimator with the default
// calibration table.
func NewIntensityEstimator() *IntensityEstimator {
	return &IntensityEstimator{calibration: defaultCalibration()}
}

// defaultCalibration lists the units whose raw scores need a nudge
// before grading. AU4 saturates late relative to its narrow activation
// band, AU15's short scale overshoots on deep frowns and AU43 rarely
// reaches its nominal ceiling on tracked footage.
func defaultCalibration() map[int]float64 {
	return map[int]float64{
		4:  1.1,
		15: 0.9,
		43: 1.05,
	}
}

// Estimate grades a single activation. Undetected units grade as
// Absent with a zero value while keeping their detection confidence.
func (e *IntensityEstimator) Estimate(r AUResult) IntensityResult {
	if !r.Detected {
		return IntensityResult{
			AU:         r.AU,
			Intensity:  Absent,
			Label:      Absent.Letter(),
			Confidence: r.Confidence,
		}
	}

	factor, ok := e.calibration[r.AU]
	if !ok {
		factor = 1
	}
	value := utils.Clamp(r.RawScore*5*factor, 0, 5)
	level := gradeOf(value)

	return IntensityResult{
		AU:         r.AU,
		Intensity:  level,
		Value:      value,
		Label:      level.Letter(),
		Confidence: r.Confidence,
	}
}

// EstimateAll grades every activation of a frame.
func (e *IntensityEstimator) EstimateAll(results map[int]AUResult) map[int]IntensityResult {
	out := make(map[int]IntensityResult, len(results))
	for au, r := range results {
		out[au] = e.Estimate(r)
	}
	return out
}

// gradeOf buckets a continuous 0-5 value into the letter scale, with
// level boundaries at every half step.
func gradeOf(value float64) Intensity {
	switch {
	case value < 0.5:
		return Absent
	case value < 1.5:
		return Trace
	case value < 2.5:
		return Slight
	case value < 3.5:
		return Marked
	case value < 4.5:
		return Severe
	default:
		return Maximum
	}
}

// FACSCode formats graded units into the customary notation, such as
// "AU6B + AU12C", ordered by unit number. Units graded Absent are
// skipped; a frame with no active unit reads "Neutral".
func FACSCode(results map[int]IntensityResult) string {
	type entry struct {
		au    int
		label string
	}
	active := make([]entry, 0, len(results))
	for au, r := range results {
		if r.Intensity != Absent {
			active = append(active, entry{au, r.Label})
		}
	}
	if len(active) == 0 {
		return "Neutral"
	}
	sort.Slice(active, func(i, j int) bool { return active[i].au < active[j].au })

	parts := make([]string, len(active))
	for i, e := range active {
		parts[i] = fmt.Sprintf("AU%d%s", e.au, e.label)
	}
	return strings.Join(parts, " + ")
}
