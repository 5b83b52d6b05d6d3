package facs

import (
	"time"
)

// FrameAnalyzer analyzes a single frame worth of landmark points.
type FrameAnalyzer interface {
	AnalyzePoints(points []Point) *AnalysisResult
}

// Analyzer runs the full per frame pipeline: alignment, feature
// extraction, action unit detection, intensity grading and emotion
// ranking. The zero value is not usable; construct one with
// NewAnalyzer and adjust the exported fields before first use.
type Analyzer struct {
	Detector  *Detector
	Estimator *IntensityEstimator
	Mapper    *EmotionMapper

	// Smoother, when set, averages action unit scores over a sliding
	// window before grading. Streaming callers reset it when the
	// analysis mode changes.
	Smoother *Smoother

	// MinConfidence demotes detections below this confidence to not
	// detected before grading. Zero keeps every detection.
	MinConfidence float64
}

// NewAnalyzer returns an analyzer with the default detector, intensity
// estimator and emotion mapper, no smoothing and no confidence floor.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Detector:  NewDetector(),
		Estimator: NewIntensityEstimator(),
		Mapper:    NewEmotionMapper(),
	}
}

var _ FrameAnalyzer = (*Analyzer)(nil)

// AnalyzePoints validates the raw detector output and analyzes it.
// Frames that do not form a usable landmark set degrade to an invalid
// result instead of an error, so a no face frame never stops a stream.
func (a *Analyzer) AnalyzePoints(points []Point) *AnalysisResult {
	start := time.Now()
	lm, err := NewLandmarkSet(points)
	if err != nil {
		return &AnalysisResult{
			Timestamp: start,
			FACSCode:  "Neutral",
			Elapsed:   time.Since(start),
		}
	}
	return a.analyzeFrom(lm, start)
}

// AnalyzeFrame analyzes one validated landmark set.
func (a *Analyzer) AnalyzeFrame(lm *LandmarkSet) *AnalysisResult {
	return a.analyzeFrom(lm, time.Now())
}

func (a *Analyzer) analyzeFrom(lm *LandmarkSet, start time.Time) *AnalysisResult {
	return a.analyze(lm, ComputeAlignment(lm), a.Smoother, start)
}

func (a *Analyzer) analyze(lm *LandmarkSet, align Alignment, sm *Smoother, start time.Time) *AnalysisResult {
	feats := ExtractFeatures(lm, align)

	aus := a.Detector.DetectAll(lm, feats)
	if sm != nil {
		aus = sm.Smooth(aus)
	}
	if a.MinConfidence > 0 {
		for au, r := range aus {
			if r.Detected && r.Confidence < a.MinConfidence {
				r.Detected = false
				aus[au] = r
			}
		}
	}

	intensities := a.Estimator.EstimateAll(aus)
	emotions := a.Mapper.Map(aus, intensities)
	valence, arousal := ValenceArousal(emotions)

	return &AnalysisResult{
		Timestamp: start,
		Face: &FaceData{
			Landmarks: lm,
			Features:  feats,
			Alignment: align,
		},
		AUs:         aus,
		Intensities: intensities,
		Emotions:    emotions,
		FACSCode:    FACSCode(intensities),
		Valence:     valence,
		Arousal:     arousal,
		Asymmetry:   DetectAsymmetry(aus),
		Elapsed:     time.Since(start),
	}
}

// Reset clears any temporal state, such as the smoothing window.
func (a *Analyzer) Reset() {
	if a.Smoother != nil {
		a.Smoother.Reset()
	}
}
