package facs

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// RecordVersion is the result record schema version produced and
// accepted by this package.
const RecordVersion = 1

// ErrRecordVersion is returned when a decoded record carries a schema
// version this package does not understand.
var ErrRecordVersion = errors.New("unsupported result record version")

// AURecord is the wire form of one scored action unit.
type AURecord struct {
	AU         int     `msgpack:"au"`
	Name       string  `msgpack:"name"`
	Detected   bool    `msgpack:"detected"`
	Confidence float64 `msgpack:"confidence"`
	RawScore   float64 `msgpack:"raw_score"`
	Asymmetry  float64 `msgpack:"asymmetry"`
	Intensity  int     `msgpack:"intensity"`
	Label      string  `msgpack:"intensity_label"`
	Value      float64 `msgpack:"intensity_value"`
}

// EmotionRecord is the wire form of one ranked emotion.
type EmotionRecord struct {
	Emotion    string  `msgpack:"emotion"`
	Confidence float64 `msgpack:"confidence"`
	Valence    float64 `msgpack:"valence"`
	Arousal    float64 `msgpack:"arousal"`
}

// ResultRecord is the versioned wire form of one analyzed frame. The
// schema is deliberately flat, plain integers, floats and strings that
// any msgpack decoder can read without sharing Go types, so results
// can cross process and language boundaries.
type ResultRecord struct {
	Version   int             `msgpack:"version"`
	Session   string          `msgpack:"session"`
	FrameID   uint64          `msgpack:"frame_id"`
	Timestamp time.Time       `msgpack:"timestamp"`
	Valid     bool            `msgpack:"is_valid"`
	FACSCode  string          `msgpack:"facs_code"`
	Dominant  string          `msgpack:"dominant_emotion"`
	Valence   float64         `msgpack:"valence"`
	Arousal   float64         `msgpack:"arousal"`
	AUs       []AURecord      `msgpack:"aus"`
	Emotions  []EmotionRecord `msgpack:"emotions"`
	ElapsedMS float64         `msgpack:"processing_time_ms"`
}

// NewResultRecord flattens an analysis result into its wire form. The
// action units are ordered by ascending AU number, so repeated encodes
// of the same result are byte identical.
func NewResultRecord(session string, frameID uint64, res *AnalysisResult) *ResultRecord {
	rec := &ResultRecord{
		Version:   RecordVersion,
		Session:   session,
		FrameID:   frameID,
		Timestamp: res.Timestamp,
		Valid:     res.Valid(),
		FACSCode:  res.FACSCode,
		Valence:   res.Valence,
		Arousal:   res.Arousal,
		ElapsedMS: float64(res.Elapsed) / float64(time.Millisecond),
	}
	if dom := res.DominantEmotion(); dom != nil {
		rec.Dominant = dom.Emotion
	}

	aus := make([]int, 0, len(res.AUs))
	for au := range res.AUs {
		aus = append(aus, au)
	}
	sort.Ints(aus)
	for _, au := range aus {
		r := res.AUs[au]
		entry := AURecord{
			AU:         r.AU,
			Name:       r.Name,
			Detected:   r.Detected,
			Confidence: r.Confidence,
			RawScore:   r.RawScore,
			Asymmetry:  r.Asymmetry,
			Intensity:  int(r.Intensity),
			Label:      r.Intensity.Letter(),
		}
		if in, ok := res.Intensities[au]; ok {
			entry.Intensity = int(in.Intensity)
			entry.Label = in.Label
			entry.Value = in.Value
		}
		rec.AUs = append(rec.AUs, entry)
	}

	for _, em := range res.Emotions {
		rec.Emotions = append(rec.Emotions, EmotionRecord{
			Emotion:    em.Emotion,
			Confidence: em.Confidence,
			Valence:    em.Valence,
			Arousal:    em.Arousal,
		})
	}
	return rec
}

// MarshalBinary encodes the record as msgpack.
func (r *ResultRecord) MarshalBinary() ([]byte, error) {
	// plain has no methods, so msgpack encodes the struct fields
	// instead of dispatching back into MarshalBinary.
	type plain ResultRecord
	return msgpack.Marshal((*plain)(r))
}

// UnmarshalBinary decodes a msgpack record, rejecting schema versions
// this package does not understand.
func (r *ResultRecord) UnmarshalBinary(data []byte) error {
	// plain has no methods, so msgpack decodes the struct fields
	// instead of dispatching back into UnmarshalBinary.
	type plain ResultRecord
	if err := msgpack.Unmarshal(data, (*plain)(r)); err != nil {
		return fmt.Errorf("decoding result record: %w", err)
	}
	if r.Version != RecordVersion {
		return fmt.Errorf("%w: %d", ErrRecordVersion, r.Version)
	}
	return nil
}
