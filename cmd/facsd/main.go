package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvanssen/facs"
	"github.com/edvanssen/facs/utils"
	"github.com/google/uuid"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐
├┤ ├─┤│  └─┐
└  ┴ ┴└─┘└─┘

Facial action unit detection and emotion inference engine.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// maxWorkers sets the maximum number of concurrently running pipeline workers.
const maxWorkers = 16

// The supported output formats.
const (
	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

// Version indicates the current build version.
var Version string

// spinner used to instantiate and call the progress indicator.
var spinner *utils.Spinner

var (
	// Flags
	source  = flag.String("in", pipeName, "Source landmark corpus (JSONL file, URL or - for stdin)")
	output  = flag.String("out", pipeName, "Destination of the analysis output")
	format  = flag.String("format", formatJSON, "Output format: json or msgpack")
	mode    = flag.String("mode", string(facs.ModeRealtime), "Analysis mode: realtime, balanced or accurate")
	workers = flag.Int("workers", 2, "Number of pipeline workers")
	window  = flag.Int("window", facs.DefaultSmoothingWindow, "Temporal smoothing window in frames")
	batch   = flag.Bool("batch", false, "Score the whole corpus in one batched call")
	demo    = flag.Int("demo", 0, "Stream N synthetic frames through the pipeline instead of reading a corpus")
	bgFrame = flag.String("bg", "", "Background frame image used by the demo stream")
	preview = flag.String("preview", "", "Save an annotated demo frame to this image file")
	stats   = flag.Bool("stats", false, "Print the pipeline statistics on exit")
)

// frameLine is one corpus entry: the 68 landmark points of one frame.
type frameLine struct {
	Frame     uint64      `json:"frame"`
	Landmarks [][]float64 `json:"landmarks"`
}

// emitter serializes analysis results to the selected output format.
type emitter struct {
	w       io.Writer
	format  string
	session string
	enc     *json.Encoder
	count   int
}

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, fmt.Sprintf(HelpBanner, Version))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *format != formatJSON && *format != formatMsgpack {
		log.Fatalf(utils.DecorateText(fmt.Sprintf("%s output format not supported\n", *format), utils.ErrorMessage))
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ FACS", utils.StatusMessage),
		utils.DecorateText("is analyzing the stream...", utils.DefaultMessage))
	spinner = utils.NewSpinner(spinnerText, time.Millisecond*200, true)
	defer spinner.RestoreCursor()

	// A directory source replays every corpus file inside it over a
	// pool of workers, one output file per corpus.
	if *demo == 0 && *source != pipeName && !utils.IsValidUrl(*source) {
		if fs, err := os.Stat(*source); err == nil && fs.Mode().IsDir() {
			runDirReplay()
			return
		}
	}
	*workers = utils.Clamp(*workers, 1, maxWorkers)

	dst, err := openDest(*output, *format)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to open the output destination: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}
	defer dst.Close()

	em := &emitter{
		w:       dst,
		format:  *format,
		session: uuid.NewString(),
		enc:     json.NewEncoder(dst),
	}

	now := time.Now()
	if *demo > 0 {
		err = runDemo(em, *demo)
	} else {
		err = runReplay(em)
	}
	if err != nil {
		log.Fatalf(
			utils.DecorateText("\nError analyzing the stream: %v\n", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	fmt.Fprintf(os.Stderr, "\nAnalyzed %s frames in: %s\n",
		utils.DecorateText(fmt.Sprintf("%d", em.count), utils.SuccessMessage),
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// runReplay scores a landmark corpus frame by frame, or in one batched
// call when the batch flag is set.
func runReplay(em *emitter) error {
	src, err := openSource(*source)
	if err != nil {
		return err
	}
	defer src.Close()

	analyzer := facs.NewAnalyzer()
	facs.ApplyMode(analyzer, facs.ParseMode(*mode), *window)

	spinner.Start()
	defer spinner.Stop()

	if *batch {
		return replayBatch(src, em, analyzer)
	}
	return replayStream(src, em, analyzer)
}

// replayStream scores one corpus stream line by line.
func replayStream(src io.Reader, em *emitter, analyzer *facs.Analyzer) error {
	scanner := bufio.NewScanner(src)
	var id uint64
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fl frameLine
		if err := json.Unmarshal(line, &fl); err != nil {
			return fmt.Errorf("corpus line %d: %w", id+1, err)
		}
		id++
		frameID := fl.Frame
		if frameID == 0 {
			frameID = id
		}
		res := analyzer.AnalyzePoints(toPoints(fl.Landmarks))
		if err := em.emit(frameID, res); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// replayBatch reads the whole corpus up front and scores it in one
// call. Lines that do not form a valid landmark set keep their slot in
// the output as invalid results.
func replayBatch(src io.Reader, em *emitter, analyzer *facs.Analyzer) error {
	var lines []frameLine
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fl frameLine
		if err := json.Unmarshal(line, &fl); err != nil {
			return fmt.Errorf("corpus line %d: %w", len(lines)+1, err)
		}
		lines = append(lines, fl)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	results := make([]*facs.AnalysisResult, len(lines))
	var sets []*facs.LandmarkSet
	var valid []int
	for i, fl := range lines {
		lm, err := facs.NewLandmarkSet(toPoints(fl.Landmarks))
		if err != nil {
			results[i] = analyzer.AnalyzePoints(nil)
			continue
		}
		sets = append(sets, lm)
		valid = append(valid, i)
	}
	for i, res := range analyzer.AnalyzeBatch(sets) {
		results[valid[i]] = res
	}

	for i, res := range results {
		frameID := lines[i].Frame
		if frameID == 0 {
			frameID = uint64(i + 1)
		}
		if err := em.emit(frameID, res); err != nil {
			return err
		}
	}
	return nil
}

// runDemo streams synthetic frames through the parallel pipeline and
// emits whatever results are fresh at each step.
func runDemo(em *emitter, frames int) error {
	bg, err := demoBackground(*bgFrame)
	if err != nil {
		return err
	}

	pipe := facs.NewPipeline(facs.PipelineConfig{
		Mode:    facs.ParseMode(*mode),
		Workers: *workers,
		Window:  *window,
		NewSource: func() facs.LandmarkSource {
			return newSyntheticSource(bg.Bounds())
		},
	})
	em.session = pipe.Session()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := pipe.Start(ctx); err != nil {
		return err
	}

	spinner.Start()
	defer spinner.Stop()

	for i := 0; i < frames; i++ {
		if ctx.Err() != nil {
			break
		}
		if res := pipe.Process(bg); res != nil {
			if err := em.emit(res.FrameID, res.Result); err != nil {
				return err
			}
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Give the workers a moment to drain the tail of the stream.
	time.Sleep(100 * time.Millisecond)
	if res := pipe.LatestResult(); res != nil {
		if err := em.emit(res.FrameID, res.Result); err != nil {
			return err
		}
	}
	if err := pipe.Stop(); err != nil {
		return err
	}

	if *preview != "" {
		if err := writePreview(*preview, bg); err != nil {
			return err
		}
	}
	if *stats {
		printStats(pipe.Stats())
	}
	return nil
}

// demoBackground loads the demo frame, or builds a plain gray one.
func demoBackground(path string) (image.Image, error) {
	if path == "" {
		bg := image.NewNRGBA(image.Rect(0, 0, 640, 480))
		gray := image.NewUniform(color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff})
		draw.Draw(bg, bg.Bounds(), gray, image.Point{}, draw.Src)
		return bg, nil
	}
	return facs.DecodeFrame(path)
}

// writePreview saves one annotated frame with a strong smile, so the
// overlay is easy to inspect.
func writePreview(path string, bg image.Image) error {
	src := newSyntheticSource(bg.Bounds())
	src.smile = 0.8
	points, rect, _ := src.Detect(bg)

	lm, err := facs.NewLandmarkSet(points)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("unable to create the preview file: %v", err)
	}
	defer out.Close()

	return facs.EncodeFrame(out, facs.DrawLandmarks(bg, lm, rect))
}

func printStats(st facs.PipelineStats) {
	fmt.Fprintf(os.Stderr, "\nSession %s (%s, %d workers)\n", st.Session, st.Mode, st.Workers)
	fmt.Fprintf(os.Stderr, "  submitted: %d, processed: %d, dropped: %d\n",
		st.FramesSubmitted, st.FramesProcessed, st.FramesDropped)
	fmt.Fprintf(os.Stderr, "  stale results: %d, worker panics: %d, fps: %.1f\n",
		st.StaleResults, st.WorkerPanics, st.FPS)
}

// emit writes one analyzed frame in the selected format.
func (e *emitter) emit(frameID uint64, res *facs.AnalysisResult) error {
	e.count++
	if e.format == formatMsgpack {
		rec := facs.NewResultRecord(e.session, frameID, res)
		data, err := rec.MarshalBinary()
		if err != nil {
			return err
		}
		_, err = e.w.Write(data)
		return err
	}
	return e.enc.Encode(res.Summarize())
}

// openSource opens the landmark corpus, be it a URL, a pipe or a file.
func openSource(in string) (io.ReadCloser, error) {
	if utils.IsValidUrl(in) {
		src, err := utils.DownloadFile(in)
		if err != nil {
			return nil, err
		}
		return &tempFile{File: src}, nil
	}
	if in == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return io.NopCloser(os.Stdin), nil
	}
	src, err := os.Open(in)
	if err != nil {
		return nil, fmt.Errorf("unable to open the source file: %v", err)
	}
	return src, nil
}

// openDest opens the output destination. Binary output to a terminal
// is refused.
func openDest(out, format string) (io.WriteCloser, error) {
	if out == pipeName {
		if format == formatMsgpack && term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("msgpack output needs a pipe or a file, not a terminal")
		}
		return nopWriteCloser{os.Stdout}, nil
	}
	dst, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to create the destination file: %v", err)
	}
	return dst, nil
}

// tempFile removes the underlying downloaded file on close.
type tempFile struct {
	*os.File
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	os.Remove(t.Name())
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// toPoints converts corpus coordinate pairs to landmark points.
// Malformed pairs are passed through as zero points and caught by the
// landmark validation.
func toPoints(coords [][]float64) []facs.Point {
	points := make([]facs.Point, len(coords))
	for i, c := range coords {
		if len(c) >= 2 {
			points[i] = facs.Point{X: c[0], Y: c[1]}
		}
	}
	return points
}

// syntheticSource synthesizes the landmarks of a face whose expression
// oscillates between neutral and a broad smile. It stands in for a
// real landmark detector in the demo stream.
type syntheticSource struct {
	bounds image.Rectangle
	tick   int
	smile  float64
}

func newSyntheticSource(bounds image.Rectangle) *syntheticSource {
	return &syntheticSource{bounds: bounds}
}

func (s *syntheticSource) Detect(img image.Image) ([]facs.Point, image.Rectangle, bool) {
	s.tick++
	smile := s.smile
	if smile == 0 {
		smile = (math.Sin(float64(s.tick)/8) + 1) / 2
	}

	b := s.bounds
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2
	ed := float64(b.Dx()) / 6
	points := syntheticFace(cx, cy, ed, smile)

	half := int(ed * 1.6)
	rect := image.Rect(int(cx)-half, int(cy)-half, int(cx)+half, int(cy)+half)
	return points, rect, true
}

// syntheticFace builds a plausible 68 point face centered on (cx, cy)
// with the given eye distance. The smile parameter pulls the mouth
// corners up and out and narrows the lower lids, between 0 and 1.
func syntheticFace(cx, cy, ed float64, smile float64) []facs.Point {
	pts := make([]facs.Point, facs.NumLandmarks)
	set := func(i int, dx, dy float64) {
		pts[i] = facs.Point{X: cx + dx*ed, Y: cy + dy*ed}
	}

	// Jawline 0-16, a flat arc from right to left.
	for i := 0; i <= 16; i++ {
		t := float64(i)/16*2 - 1
		set(i, t*1.4, 0.55+0.9*(1-t*t*0.4))
	}

	// Brows 17-26.
	for i := 0; i <= 4; i++ {
		t := float64(i) / 4
		set(17+i, -1.0+t*0.75, -0.62-0.08*math.Sin(t*math.Pi))
		set(22+i, 0.25+t*0.75, -0.70+0.08*(1-math.Cos(t*math.Pi)))
	}

	// Nose bridge 27-30 and base 31-35.
	for i := 0; i <= 3; i++ {
		set(27+i, 0, -0.35+float64(i)*0.25)
	}
	for i := 0; i <= 4; i++ {
		set(31+i, -0.16+float64(i)*0.08, 0.52)
	}

	// Eyes 36-47: outer, two top, inner, two bottom per eye. The lower
	// lid rises slightly with the smile.
	lid := 0.02 * smile
	eye := func(base int, ecx float64) {
		set(base, ecx-0.22, 0)
		set(base+1, ecx-0.10, -0.07)
		set(base+2, ecx+0.02, -0.07)
		set(base+3, ecx+0.22, 0)
		set(base+4, ecx+0.02, 0.07-lid)
		set(base+5, ecx-0.10, 0.07-lid)
	}
	eye(36, -0.5)
	eye(42, 0.5)

	// Mouth 48-67. The corners travel up and out with the smile.
	stretch := 0.10 * smile
	raise := 0.12 * smile
	set(48, -0.30-stretch, 0.80-raise)
	set(49, -0.20, 0.76)
	set(50, -0.08, 0.73)
	set(51, 0, 0.73)
	set(52, 0.08, 0.73)
	set(53, 0.20, 0.76)
	set(54, 0.30+stretch, 0.80-raise)
	set(55, 0.20, 0.86)
	set(56, 0.08, 0.89)
	set(57, 0, 0.90)
	set(58, -0.08, 0.89)
	set(59, -0.20, 0.86)

	set(60, -0.24-stretch, 0.80-raise*0.8)
	set(61, -0.08, 0.78)
	set(62, 0, 0.78)
	set(63, 0.08, 0.78)
	set(64, 0.24+stretch, 0.80-raise*0.8)
	set(65, 0.08, 0.83)
	set(66, 0, 0.84)
	set(67, -0.08, 0.83)

	return pts
}
