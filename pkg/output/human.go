package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/bucketsync/pkg/models"
)

// HumanFormatter prints one line per transferred key and a summary
type HumanFormatter struct {
	writer     io.Writer
	totalFiles int
	totalBytes int64

	mu sync.Mutex
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	if w == nil {
		w = io.Discard
	}
	return &HumanFormatter{writer: w}
}

// Start announces the transfer phase
func (f *HumanFormatter) Start(totalFiles int, totalBytes int64, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totalFiles = totalFiles
	f.totalBytes = totalBytes

	_, err := fmt.Fprintf(f.writer, "Starting sync: %d files, %s total (%d workers)\n",
		totalFiles, formatBytes(totalBytes), maxWorkers)
	return err
}

// Progress reports progress during sync
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case EventFileComplete:
		fmt.Fprintf(f.writer, "[%d/%d] ✓ %s (%s)\n",
			update.CurrentFile, f.totalFiles,
			update.FilePath, formatBytes(update.BytesWritten))

	case EventFileError:
		fmt.Fprintf(f.writer, "[%d/%d] ✗ %s: %v\n",
			update.CurrentFile, f.totalFiles,
			update.FilePath, update.Error)
	}

	return nil
}

// Plan prints what a sync would do
func (f *HumanFormatter) Plan(plan *models.SyncPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writePlan(f.writer, plan)
}

// Complete displays the summary
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, werr := fmt.Fprintf(f.writer, "Error: %v\n", err)
	return werr
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// writePlan lists each group of a dry run
func writePlan(w io.Writer, plan *models.SyncPlan) error {
	fmt.Fprintf(w, "Dry run: %d source files, %d destination files\n\n", plan.SourceCount, plan.DestCount)

	groups := []struct {
		title   string
		entries []models.ComparisonEntry
		sized   bool
	}{
		{"Would delete", plan.Stale, false},
		{"Would update", plan.Modified, true},
		{"Would copy", plan.New, true},
	}

	for _, g := range groups {
		if len(g.entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d):\n", g.title, len(g.entries))
		for _, e := range g.entries {
			if g.sized {
				fmt.Fprintf(w, "  %s (%s)\n", e.Key, formatBytes(e.Size))
			} else {
				fmt.Fprintf(w, "  %s\n", e.Key)
			}
		}
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "Unchanged: %d, to transfer: %d files (%s)\n",
		len(plan.Unchanged), plan.TransferCount(), formatBytes(plan.TotalBytes()))
	return err
}

func writeSummary(w io.Writer, report *models.SyncReport) error {
	stats := report.Stats

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Sync completed in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Scanned:\n")
	fmt.Fprintf(w, "    Source:         %d files\n", stats.SourceFiles)
	fmt.Fprintf(w, "    Destination:    %d files\n", stats.DestFiles)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Operations:\n")
	fmt.Fprintf(w, "    Files copied:       %d\n", stats.FilesCopied)
	fmt.Fprintf(w, "    Files updated:      %d\n", stats.FilesUpdated)
	fmt.Fprintf(w, "    Files unchanged:    %d\n", stats.FilesUnchanged)
	fmt.Fprintf(w, "    Files deleted:      %d\n", stats.FilesDeleted)
	fmt.Fprintf(w, "    Files errored:      %d\n", stats.FilesErrored)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Transfer:\n")
	fmt.Fprintf(w, "    Data:           %s\n", formatBytes(stats.BytesTransferred))

	if report.Duration.Seconds() > 0 && stats.BytesTransferred > 0 {
		avgSpeed := float64(stats.BytesTransferred) / report.Duration.Seconds()
		fmt.Fprintf(w, "    Average speed:  %s/s\n", formatBytes(int64(avgSpeed)))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", report.Status)

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", e.Operation, e.FilePath, e.Error)
		}
	}

	return nil
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Minutes())/60, int(d.Minutes())%60)
}
