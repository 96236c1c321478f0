package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/bucketsync/pkg/models"
)

// Progress event types
const (
	EventFileStart    = "file_start"
	EventFileProgress = "file_progress"
	EventFileComplete = "file_complete"
	EventFileError    = "file_error"
)

// ProgressUpdate represents a progress notification during sync
type ProgressUpdate struct {
	Type         string
	FilePath     string
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter defines the interface for sync output.
// Progress may be called from several workers at once.
type Formatter interface {
	// Start announces the transfer phase.
	// maxWorkers indicates the number of parallel workers for display purposes
	Start(totalFiles int, totalBytes int64, maxWorkers int) error

	// Progress reports progress during sync
	Progress(update ProgressUpdate) error

	// Plan renders the diff of a dry run
	Plan(plan *models.SyncPlan) error

	// Complete finalizes output and displays summary
	Complete(report *models.SyncReport) error

	// Error reports an error during sync
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter registered under name, writing to w
func New(name string, w io.Writer) (Formatter, error) {
	switch name {
	case "human":
		return NewHumanFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "progress":
		return NewProgressFormatter(w), nil
	case "none":
		return NewNullFormatter(), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}
