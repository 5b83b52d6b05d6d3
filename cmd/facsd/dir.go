package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/edvanssen/facs"
	"github.com/edvanssen/facs/utils"
	"github.com/google/uuid"
)

// corpusExtensions lists the supported corpus file extensions.
var corpusExtensions = []string{".jsonl", ".ndjson", ".json"}

// corpusOps bundles the analysis options shared by the replay workers.
type corpusOps struct {
	mode   facs.Mode
	window int
	format string
}

// corpusResult holds the relevant information about one replayed corpus.
type corpusResult struct {
	path   string
	frames int
	err    error
}

// runDirReplay walks the source directory and replays every corpus
// file found inside over a pool of workers. Each corpus is scored by
// its own analyzer under a fresh session and written to the output
// directory under the same base name.
func runDirReplay() {
	if *output == pipeName {
		log.Fatalf(utils.DecorateText("a directory source needs -out pointing to a directory\n", utils.ErrorMessage))
	}
	if _, err := os.Stat(*output); err != nil {
		if err = os.Mkdir(*output, 0755); err != nil {
			log.Fatalf(
				utils.DecorateText("Unable to create the output directory: %v\n", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
	}

	op := &corpusOps{
		mode:   facs.ParseMode(*mode),
		window: *window,
		format: *format,
	}
	// Limit the concurrently running workers to maxWorkers.
	count := *workers
	if count <= 0 || count > maxWorkers {
		count = runtime.NumCPU()
	}

	now := time.Now()

	// Process the corpus files from the source directory concurrently.
	ch := make(chan corpusResult)
	done := make(chan interface{})
	defer close(done)

	paths, errc := walkCorpora(done, *source, corpusExtensions)

	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func() {
			defer wg.Done()
			op.consume(*output, ch, done, paths)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	spinner.Start()

	var frames, corpora int
	for res := range ch {
		printCorpusStatus(res)
		frames += res.frames
		corpora++
	}
	spinner.Stop()

	if err := <-errc; err != nil {
		log.Fatalf(
			utils.DecorateText("\nError walking the corpus directory: %v\n", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	fmt.Fprintf(os.Stderr, "\nAnalyzed %s frames from %s corpora in: %s\n",
		utils.DecorateText(fmt.Sprintf("%d", frames), utils.SuccessMessage),
		utils.DecorateText(fmt.Sprintf("%d", corpora), utils.SuccessMessage),
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// consume reads path names from the paths channel and replays each
// corpus against a worker local analyzer. The smoothing history is
// cleared between corpora so one stream never bleeds into the next.
func (op *corpusOps) consume(
	dest string,
	res chan<- corpusResult,
	done <-chan interface{},
	paths <-chan string,
) {
	analyzer := facs.NewAnalyzer()
	facs.ApplyMode(analyzer, op.mode, op.window)

	for src := range paths {
		frames, err := op.replayOne(analyzer, src, dest)
		analyzer.Reset()

		select {
		case <-done:
			return
		case res <- corpusResult{
			path:   src,
			frames: frames,
			err:    err,
		}:
		}
	}
}

// replayOne scores a single corpus file into the destination directory.
func (op *corpusOps) replayOne(analyzer *facs.Analyzer, srcPath, dest string) (int, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("unable to open the corpus file: %v", err)
	}
	defer src.Close()

	base := filepath.Base(srcPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + outExtension(op.format)
	dst, err := os.OpenFile(filepath.Join(dest, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("unable to create the destination file: %v", err)
	}
	defer dst.Close()

	em := &emitter{
		w:       dst,
		format:  op.format,
		session: uuid.NewString(),
		enc:     json.NewEncoder(dst),
	}
	if err := replayStream(src, em, analyzer); err != nil {
		// Remove the partial output file in case of an error.
		os.Remove(dst.Name())
		return em.count, err
	}
	return em.count, nil
}

// printCorpusStatus displays the relevant information about one
// replayed corpus.
func printCorpusStatus(res corpusResult) {
	if res.err != nil {
		log.Fatalf(
			utils.DecorateText("\nError analyzing the corpus: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", res.err.Error()), utils.DefaultMessage),
		)
	}
	fmt.Fprintf(os.Stderr, "\n%s frames analyzed from: %s %s\n",
		utils.DecorateText(fmt.Sprintf("%d", res.frames), utils.SuccessMessage),
		utils.DecorateText(filepath.Base(res.path), utils.SuccessMessage),
		utils.DefaultColor,
	)
}

// walkCorpora starts a new goroutine to walk the specified directory
// tree in recursive manner and sends the path of each corpus file to a
// new channel. It finishes in case the done channel is getting closed.
func walkCorpora(
	done <-chan interface{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !f.Mode().IsRegular() {
				return nil
			}
			if !isCorpusExtension(filepath.Ext(f.Name()), srcExts) {
				return nil
			}

			select {
			case <-done:
				return errors.New("corpus walk cancelled")
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// isCorpusExtension checks for the supported corpus extensions.
func isCorpusExtension(ext string, extensions []string) bool {
	for _, ex := range extensions {
		if ex == ext {
			return true
		}
	}
	return false
}

// outExtension returns the output file extension for the selected
// format.
func outExtension(format string) string {
	if format == formatMsgpack {
		return ".msgpack"
	}
	return ".json"
}
