package facs

import (
	"image"
	"sort"
	"time"
)

// FaceData carries the geometry extracted from a single frame: the
// bounding rectangle reported by the upstream face detector, the raw
// landmark set and the measurements derived from it.
type FaceData struct {
	Rect      image.Rectangle
	Landmarks *LandmarkSet
	Features  FeatureSet
	Alignment Alignment
}

// AnalysisResult is the complete outcome of analyzing one frame.
// A frame without a usable face yields a result with a nil Face,
// a "Neutral" code and zero valence and arousal.
type AnalysisResult struct {
	Timestamp   time.Time
	Face        *FaceData
	AUs         map[int]AUResult
	Intensities map[int]IntensityResult
	Emotions    []EmotionResult
	FACSCode    string
	Valence     float64
	Arousal     float64
	Asymmetry   AsymmetryReport
	Elapsed     time.Duration
}

// Valid reports whether the frame produced a usable landmark set.
func (r *AnalysisResult) Valid() bool {
	return r.Face != nil && r.Face.Landmarks != nil
}

// DominantEmotion returns the highest ranked emotion, or nil when the
// frame produced none.
func (r *AnalysisResult) DominantEmotion() *EmotionResult {
	if len(r.Emotions) == 0 {
		return nil
	}
	return &r.Emotions[0]
}

// ActiveAUs returns the detected action units in ascending AU order.
func (r *AnalysisResult) ActiveAUs() []AUResult {
	var active []AUResult
	for _, res := range r.AUs {
		if res.Detected {
			active = append(active, res)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].AU < active[j].AU
	})
	return active
}

// EmotionScore is one ranked emotion in a result summary.
type EmotionScore struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// ActiveAU is one detected action unit in a result summary.
type ActiveAU struct {
	AU         int     `json:"au"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Intensity  string  `json:"intensity"`
}

// ResultSummary is the compact, serialization friendly view of an
// analysis result: the FACS code, the top ranked emotions and the
// detected action units with their intensity letters.
type ResultSummary struct {
	Timestamp    time.Time      `json:"timestamp"`
	Valid        bool           `json:"is_valid"`
	FACSCode     string         `json:"facs_code"`
	Dominant     string         `json:"dominant_emotion,omitempty"`
	Emotions     []EmotionScore `json:"emotions"`
	Valence      float64        `json:"valence"`
	Arousal      float64        `json:"arousal"`
	ActiveAUs    []ActiveAU     `json:"active_aus"`
	ProcessingMS float64        `json:"processing_time_ms"`
}

// maxSummaryEmotions caps the emotion list carried by a summary.
const maxSummaryEmotions = 5

// Summarize flattens the result into its serialization friendly view.
func (r *AnalysisResult) Summarize() ResultSummary {
	sum := ResultSummary{
		Timestamp:    r.Timestamp,
		Valid:        r.Valid(),
		FACSCode:     r.FACSCode,
		Valence:      r.Valence,
		Arousal:      r.Arousal,
		Emotions:     []EmotionScore{},
		ActiveAUs:    []ActiveAU{},
		ProcessingMS: float64(r.Elapsed) / float64(time.Millisecond),
	}
	if dom := r.DominantEmotion(); dom != nil {
		sum.Dominant = dom.Emotion
	}
	for i, em := range r.Emotions {
		if i == maxSummaryEmotions {
			break
		}
		sum.Emotions = append(sum.Emotions, EmotionScore{
			Emotion:    em.Emotion,
			Confidence: em.Confidence,
		})
	}
	for _, au := range r.ActiveAUs() {
		entry := ActiveAU{
			AU:         au.AU,
			Name:       au.Name,
			Confidence: au.Confidence,
		}
		if in, ok := r.Intensities[au.AU]; ok {
			entry.Intensity = in.Label
		}
		sum.ActiveAUs = append(sum.ActiveAUs, entry)
	}
	return sum
}
