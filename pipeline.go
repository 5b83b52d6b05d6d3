package facs

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Mode selects the latency and accuracy trade off of streaming
// analysis. Unknown mode names fall back to real time.
type Mode string

// The streaming analysis modes.
const (
	ModeRealtime Mode = "realtime"
	ModeBalanced Mode = "balanced"
	ModeAccurate Mode = "accurate"
)

// ModeConfig is the concrete tuning a mode stands for.
type ModeConfig struct {
	// Scale resizes frames before landmark detection. Values below 1
	// trade landmark precision for speed.
	Scale float64

	// MinConfidence demotes detections below this confidence.
	MinConfidence float64

	// Smoothing enables the temporal filter.
	Smoothing bool
}

// Config returns the tuning of the mode.
func (m Mode) Config() ModeConfig {
	switch m {
	case ModeBalanced:
		return ModeConfig{Scale: 1.0, MinConfidence: 0.3}
	case ModeAccurate:
		return ModeConfig{Scale: 1.0, MinConfidence: 0.2}
	default:
		return ModeConfig{Scale: 0.5, MinConfidence: 0.4, Smoothing: true}
	}
}

// ParseMode maps a mode name to a Mode, falling back to real time for
// names it does not recognize.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeBalanced:
		return ModeBalanced
	case ModeAccurate:
		return ModeAccurate
	default:
		return ModeRealtime
	}
}

// ApplyMode configures an analyzer for a streaming mode and clears any
// temporal state carried over from the previous one.
func ApplyMode(a *Analyzer, m Mode, window int) {
	cfg := m.Config()
	a.MinConfidence = cfg.MinConfidence
	if !cfg.Smoothing {
		a.Smoother = nil
		return
	}
	if a.Smoother == nil {
		a.Smoother = NewSmoother(window)
	} else {
		a.Smoother.Reset()
	}
}

// LandmarkSource produces the face landmarks of one frame.
// Implementations usually wrap an external face and landmark detector.
// The boolean is false when the frame contains no usable face.
//
// A pipeline creates one source per worker, so implementations only
// need to be safe for use from a single goroutine.
type LandmarkSource interface {
	Detect(img image.Image) ([]Point, image.Rectangle, bool)
}

// FrameResult pairs an analysis result with the frame it belongs to.
type FrameResult struct {
	FrameID uint64
	Result  *AnalysisResult
}

// frame is one unit of pipeline work.
type frame struct {
	id  uint64
	img image.Image
}

// DefaultQueueSize bounds the frame and result queues of a pipeline.
const DefaultQueueSize = 4

// stopTimeout is how long Stop waits for busy workers to drain.
const stopTimeout = 2 * time.Second

// PipelineConfig configures a streaming pipeline.
type PipelineConfig struct {
	// Mode selects the latency and accuracy trade off.
	Mode Mode

	// Workers is the number of analysis goroutines. Defaults to 2.
	Workers int

	// QueueSize bounds the frame and result queues. Defaults to
	// DefaultQueueSize.
	QueueSize int

	// Window is the smoothing window used when the mode smooths.
	Window int

	// NewSource builds the landmark source of one worker. Required.
	NewSource func() LandmarkSource

	// NewAnalyzer builds the analyzer of one worker. Defaults to
	// NewAnalyzer from this package.
	NewAnalyzer func() *Analyzer
}

// Pipeline analyzes a stream of frames on a pool of workers. Both the
// frame and the result queue are bounded: when a producer outpaces the
// consumers the oldest entry is dropped, so the pipeline always works
// on the most recent frames instead of falling behind.
type Pipeline struct {
	cfg     PipelineConfig
	workers int
	session string

	frames  chan *frame
	results chan *FrameResult

	startMu  sync.Mutex
	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
	stopErr  error

	latestMu      sync.Mutex
	lastDelivered uint64

	nextFrame       atomic.Uint64
	framesSubmitted atomic.Uint64
	framesDropped   atomic.Uint64
	framesProcessed atomic.Uint64
	resultsDropped  atomic.Uint64
	staleResults    atomic.Uint64
	workerPanics    atomic.Uint64

	fps *FPSCounter
}

// NewPipeline builds a pipeline from the given configuration. The
// pipeline accepts frames immediately; call Start to begin processing
// them.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	workers := cfg.Workers
	if workers < 1 {
		workers = 2
	}
	queue := cfg.QueueSize
	if queue < 1 {
		queue = DefaultQueueSize
	}
	if cfg.NewAnalyzer == nil {
		cfg.NewAnalyzer = NewAnalyzer
	}
	return &Pipeline{
		cfg:     cfg,
		workers: workers,
		session: uuid.NewString(),
		frames:  make(chan *frame, queue),
		results: make(chan *FrameResult, queue),
		fps:     NewFPSCounter(0),
	}
}

// Session returns the unique identifier of this pipeline instance.
func (p *Pipeline) Session() string { return p.session }

// Start launches the worker pool. The context bounds the lifetime of
// the workers; canceling it is equivalent to calling Stop.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.cfg.NewSource == nil {
		return errors.New("pipeline needs a landmark source")
	}

	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.cancel != nil {
		return errors.New("pipeline already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	p.group = g
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return p.worker(gctx)
		})
	}
	return nil
}

// SubmitFrame queues one frame for analysis and returns its id. Frame
// ids start at 1 and grow monotonically. When the queue is full the
// oldest queued frame is discarded to make room, so a slow consumer
// sees the freshest frames rather than a growing backlog.
func (p *Pipeline) SubmitFrame(img image.Image) uint64 {
	id := p.nextFrame.Add(1)
	p.framesSubmitted.Add(1)

	f := &frame{id: id, img: img}
	for {
		select {
		case p.frames <- f:
			return id
		default:
		}
		select {
		case <-p.frames:
			p.framesDropped.Add(1)
		default:
		}
	}
}

// LatestResult drains every buffered result and returns the freshest
// one, or nil when nothing new arrived since the previous call.
// Results older than the last delivered frame are counted as stale and
// discarded, so callers never observe time moving backwards.
func (p *Pipeline) LatestResult() *FrameResult {
	p.latestMu.Lock()
	defer p.latestMu.Unlock()

	var latest *FrameResult
	for {
		var r *FrameResult
		select {
		case r = <-p.results:
		default:
			if latest != nil && latest.FrameID > p.lastDelivered {
				p.lastDelivered = latest.FrameID
				return latest
			}
			if latest != nil {
				p.staleResults.Add(1)
			}
			return nil
		}
		if latest == nil || r.FrameID > latest.FrameID {
			if latest != nil {
				p.staleResults.Add(1)
			}
			latest = r
		} else {
			p.staleResults.Add(1)
		}
	}
}

// Process submits one frame and returns the freshest result available
// at that moment, which usually belongs to an earlier frame, or nil
// when no result is ready yet. It is the convenience wrapper for
// callers running a capture loop.
func (p *Pipeline) Process(img image.Image) *FrameResult {
	p.SubmitFrame(img)
	return p.LatestResult()
}

// Stop shuts the pipeline down and waits for the workers to finish
// their current frame. Workers still busy after a grace period are
// abandoned and reported through the returned error. Stop is
// idempotent.
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() {
		p.startMu.Lock()
		cancel, group := p.cancel, p.group
		p.startMu.Unlock()
		if cancel == nil {
			return
		}
		cancel()

		done := make(chan struct{})
		go func() {
			p.stopErr = group.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(stopTimeout):
			p.stopErr = errors.New("pipeline workers did not stop within the grace period")
		}
	})
	return p.stopErr
}

func (p *Pipeline) worker(ctx context.Context) error {
	analyzer := p.cfg.NewAnalyzer()
	ApplyMode(analyzer, p.cfg.Mode, p.cfg.Window)
	source := p.cfg.NewSource()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-p.frames:
			p.process(analyzer, source, f)
		}
	}
}

// process analyzes one frame. A panic inside the analysis of a single
// frame is contained here: the frame is lost, the panic counted, and
// the worker moves on to the next frame.
func (p *Pipeline) process(analyzer *Analyzer, source LandmarkSource, f *frame) {
	defer func() {
		if r := recover(); r != nil {
			p.workerPanics.Add(1)
		}
	}()

	img := f.img
	scale := p.cfg.Mode.Config().Scale
	if scale > 0 && scale < 1 {
		bounds := img.Bounds()
		width := int(float64(bounds.Dx())*scale + 0.5)
		img = imaging.Resize(img, width, 0, imaging.Linear)
	} else {
		scale = 1
	}

	points, rect, ok := source.Detect(img)
	if ok && scale != 1 {
		inv := 1 / scale
		for i := range points {
			points[i].X *= inv
			points[i].Y *= inv
		}
		rect = scaleRect(rect, inv)
	}
	if !ok {
		points = nil
	}

	res := analyzer.AnalyzePoints(points)
	if res.Valid() {
		res.Face.Rect = rect
	}

	p.pushResult(&FrameResult{FrameID: f.id, Result: res})
	p.framesProcessed.Add(1)
	p.fps.Tick()
}

// pushResult inserts a result, discarding the oldest buffered one when
// the queue is full.
func (p *Pipeline) pushResult(r *FrameResult) {
	for {
		select {
		case p.results <- r:
			return
		default:
		}
		select {
		case <-p.results:
			p.resultsDropped.Add(1)
		default:
		}
	}
}

// scaleRect maps a detection rectangle back to full resolution.
func scaleRect(r image.Rectangle, factor float64) image.Rectangle {
	return image.Rect(
		int(float64(r.Min.X)*factor+0.5),
		int(float64(r.Min.Y)*factor+0.5),
		int(float64(r.Max.X)*factor+0.5),
		int(float64(r.Max.Y)*factor+0.5),
	)
}

// PipelineStats is a point in time snapshot of the pipeline counters.
type PipelineStats struct {
	Session         string
	Mode            Mode
	Workers         int
	FramesSubmitted uint64
	FramesDropped   uint64
	FramesProcessed uint64
	ResultsDropped  uint64
	StaleResults    uint64
	WorkerPanics    uint64
	FPS             float64
}

// Stats snapshots the pipeline counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Session:         p.session,
		Mode:            p.cfg.Mode,
		Workers:         p.workers,
		FramesSubmitted: p.framesSubmitted.Load(),
		FramesDropped:   p.framesDropped.Load(),
		FramesProcessed: p.framesProcessed.Load(),
		ResultsDropped:  p.resultsDropped.Load(),
		StaleResults:    p.staleResults.Load(),
		WorkerPanics:    p.workerPanics.Load(),
		FPS:             p.fps.FPS(),
	}
}

// FPSCounter estimates throughput from the spacing of recent ticks.
// It is safe for concurrent use.
type FPSCounter struct {
	mu     sync.Mutex
	window int
	ticks  []time.Time
}

// NewFPSCounter returns a counter averaging over the last window
// ticks. Windows below 2 fall back to 30.
func NewFPSCounter(window int) *FPSCounter {
	if window < 2 {
		window = 30
	}
	return &FPSCounter{window: window}
}

// Tick records one processed frame.
func (c *FPSCounter) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, time.Now())
	if len(c.ticks) > c.window {
		c.ticks = c.ticks[1:]
	}
}

// FPS returns the mean rate over the window, or 0 when fewer than two
// frames have been recorded.
func (c *FPSCounter) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ticks) < 2 {
		return 0
	}
	elapsed := c.ticks[len(c.ticks)-1].Sub(c.ticks[0]).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(len(c.ticks)-1) / elapsed
}
