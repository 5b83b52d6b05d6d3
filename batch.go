package facs

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"

	"github.com/edvanssen/facs/utils"
)

// LandmarkBatch packs the landmarks of many frames into one dense
// (frames, landmarks, xy) tensor, so per frame measurements can be
// computed column by column instead of face by face.
type LandmarkBatch struct {
	data *tensor.Dense
	n    int
}

// NewLandmarkBatch copies the given landmark sets into a batch. The
// sets must already be validated; batch scoring assumes finite
// coordinates throughout.
func NewLandmarkBatch(sets []*LandmarkSet) *LandmarkBatch {
	if len(sets) == 0 {
		return &LandmarkBatch{}
	}
	backing := make([]float64, len(sets)*NumLandmarks*2)
	for i, lm := range sets {
		base := i * NumLandmarks * 2
		for j, p := range lm {
			backing[base+2*j] = p.X
			backing[base+2*j+1] = p.Y
		}
	}
	return &LandmarkBatch{
		data: tensor.New(tensor.WithShape(len(sets), NumLandmarks, 2), tensor.WithBacking(backing)),
		n:    len(sets),
	}
}

// Len returns the number of frames in the batch.
func (b *LandmarkBatch) Len() int { return b.n }

// At reconstructs the landmark set of a single frame.
func (b *LandmarkBatch) At(i int) *LandmarkSet {
	raw := b.data.Data().([]float64)
	base := i * NumLandmarks * 2
	var lm LandmarkSet
	for j := range lm {
		lm[j] = Point{X: raw[base+2*j], Y: raw[base+2*j+1]}
	}
	return &lm
}

// column copies the x (axis 0) or y (axis 1) coordinates of one
// landmark across every frame.
func (b *LandmarkBatch) column(idx, axis int) []float64 {
	raw := b.data.Data().([]float64)
	col := make([]float64, b.n)
	for i := range col {
		col[i] = raw[(i*NumLandmarks+idx)*2+axis]
	}
	return col
}

// centroidColumns returns the per frame centroid of the landmarks in
// the range [from, to) as separate x and y columns.
func (b *LandmarkBatch) centroidColumns(from, to int) (xs, ys []float64) {
	xs = make([]float64, b.n)
	ys = make([]float64, b.n)
	for i := from; i < to; i++ {
		floats.Add(xs, b.column(i, 0))
		floats.Add(ys, b.column(i, 1))
	}
	n := float64(to - from)
	for i := range xs {
		xs[i] /= n
		ys[i] /= n
	}
	return xs, ys
}

// EyeDistances returns the inter ocular distance of every frame,
// clamped to the same minimum as the scalar path.
func (b *LandmarkBatch) EyeDistances() []float64 {
	if b.n == 0 {
		return nil
	}
	rxs, rys := b.centroidColumns(36, 42)
	lxs, lys := b.centroidColumns(42, 48)
	floats.Sub(lxs, rxs)
	floats.Sub(lys, rys)

	out := make([]float64, b.n)
	for i := range out {
		out[i] = math.Max(math.Hypot(lxs[i], lys[i]), minDistance)
	}
	return out
}

// Alignments computes the pose of every frame, mirroring
// ComputeAlignment frame for frame over shared coordinate columns.
func (b *LandmarkBatch) Alignments() []Alignment {
	if b.n == 0 {
		return nil
	}
	rxs, rys := b.centroidColumns(36, 42)
	lxs, lys := b.centroidColumns(42, 48)
	noseXs := b.column(noseTip, 0)
	noseYs := b.column(noseTip, 1)
	mouthRYs := b.column(mouthRight, 1)
	mouthLYs := b.column(mouthLeft, 1)

	out := make([]Alignment, b.n)
	for i := range out {
		dx := lxs[i] - rxs[i]
		dy := lys[i] - rys[i]
		eyeDist := math.Max(math.Hypot(dx, dy), minDistance)
		center := Point{X: (rxs[i] + lxs[i]) / 2, Y: (rys[i] + lys[i]) / 2}

		yaw := utils.Clamp((noseXs[i]-center.X)/(eyeDist*0.3)*30, -45, 45)

		mouthY := (mouthRYs[i] + mouthLYs[i]) / 2
		expected := eyeDist * 0.6
		pitch := utils.Clamp((mouthY-noseYs[i]-expected)/expected*30, -30, 30)

		out[i] = Alignment{
			Roll:        degrees(math.Atan2(dy, dx)),
			Yaw:         yaw,
			Pitch:       pitch,
			Center:      center,
			EyeDistance: eyeDist,
		}
	}
	return out
}

// AnalyzeBatch scores a corpus of validated landmark sets in one call.
// The frames share the packed batch and its precomputed pose columns,
// but every frame runs through the same strategy table as
// AnalyzeFrame, so batch and scalar scores agree. Temporal smoothing
// never applies to batch scoring.
func (a *Analyzer) AnalyzeBatch(sets []*LandmarkSet) []*AnalysisResult {
	batch := NewLandmarkBatch(sets)
	if batch.Len() == 0 {
		return nil
	}
	aligns := batch.Alignments()

	results := make([]*AnalysisResult, batch.Len())
	for i := range results {
		results[i] = a.analyze(batch.At(i), aligns[i], nil, time.Now())
	}
	return results
}
