package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/bucketsync/pkg/models"
)

// getUpdateInterval returns the progress update interval based on OS
// Windows terminals have higher latency with ANSI sequences, so we use a longer interval
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// terminalWidth returns the width of w, or 0 when it is not a terminal
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// ProgressFormatter draws a single byte progress bar over all transfers
type ProgressFormatter struct {
	writer    io.Writer
	bar       *pb.ProgressBar
	startTime time.Time

	mu sync.Mutex
	// seen holds the bytes already added to the bar, per source
	seen   map[string]int64
	failed int
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter(w io.Writer) *ProgressFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &ProgressFormatter{
		writer: w,
		seen:   make(map[string]int64),
	}
}

// Start creates the bar for the transfer phase
func (f *ProgressFormatter) Start(totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.startTime = time.Now()
	fmt.Fprintf(f.writer, "Transferring %d files with %d workers\n", totalFiles, maxWorkers)

	bar := pb.New64(totalBytes).
		SetTemplate(pb.Full).
		SetWriter(f.writer).
		SetRefreshRate(getUpdateInterval()).
		Set(pb.Bytes, true).
		Set(pb.Static, !IsTerminal(f.writer))
	if width := terminalWidth(f.writer); width > 0 {
		bar.SetWidth(width)
	}
	f.bar = bar.Start()

	return nil
}

// Progress moves the bar by the bytes read since the last update of a file
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case EventFileProgress, EventFileComplete:
		if delta := update.BytesWritten - f.seen[update.FilePath]; delta > 0 {
			f.bar.Add64(delta)
			f.seen[update.FilePath] = update.BytesWritten
		}
		if update.Type == EventFileComplete {
			delete(f.seen, update.FilePath)
		}

	case EventFileError:
		// Give back what the failed file had counted
		if n := f.seen[update.FilePath]; n > 0 {
			f.bar.Add64(-n)
		}
		delete(f.seen, update.FilePath)
		f.failed++
	}

	return nil
}

// Plan prints the dry-run diff; there is nothing to draw
func (f *ProgressFormatter) Plan(plan *models.SyncPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writePlan(f.writer, plan)
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
		fmt.Fprintf(f.writer, "Elapsed: %s, %d failed\n", formatDuration(time.Since(f.startTime)), f.failed)
	}

	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, werr := fmt.Fprintf(f.writer, "\nError: %v\n", err)
	return werr
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
