package facs

// DefaultSmoothingWindow is the number of frames averaged by a
// Smoother when no explicit window size is configured.
const DefaultSmoothingWindow = 3

// Smoother averages action unit scores over a sliding window of recent
// frames, damping single frame jitter in streaming analysis. Only the
// confidence and raw score are averaged; the detected flag and the
// intensity of the current frame pass through untouched, so smoothing
// a constant signal is the identity.
//
// A Smoother carries per stream state and is not safe for concurrent
// use; every pipeline worker owns its own instance.
type Smoother struct {
	window  int
	history []map[int]AUResult
}

// NewSmoother returns a smoother over the given window size. Sizes
// below 1 fall back to DefaultSmoothingWindow.
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = DefaultSmoothingWindow
	}
	return &Smoother{window: window}
}

// Smooth absorbs the activations of one frame and returns them with
// confidence and raw score replaced by their means over the window.
func (s *Smoother) Smooth(aus map[int]AUResult) map[int]AUResult {
	s.history = append(s.history, aus)
	if len(s.history) > s.window {
		s.history = s.history[1:]
	}

	out := make(map[int]AUResult, len(aus))
	for au, r := range aus {
		var sumConf, sumRaw float64
		var n int
		for _, past := range s.history {
			if pr, ok := past[au]; ok {
				sumConf += pr.Confidence
				sumRaw += pr.RawScore
				n++
			}
		}
		r.Confidence = sumConf / float64(n)
		r.RawScore = sumRaw / float64(n)
		out[au] = r
	}
	return out
}

// Reset clears the window. Mode switches reset the smoother so stale
// scores from the previous configuration cannot bleed into the next.
func (s *Smoother) Reset() {
	s.history = nil
}
