package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/bucketsync/pkg/models"
)

// JSONFormatter collects events and writes a single JSON document when the
// sync completes, for automation and scripting
type JSONFormatter struct {
	writer io.Writer
	events []JSONEvent

	mu sync.Mutex
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONStartData represents the data for a start event
type JSONStartData struct {
	TotalFiles int   `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
	Workers    int   `json:"workers"`
}

// JSONFileData represents file-related event data
type JSONFileData struct {
	Path         string `json:"path"`
	BytesWritten int64  `json:"bytes_written,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JSONReportData is the document written on completion
type JSONReportData struct {
	OperationID string          `json:"operation_id"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
	ExitCode    int             `json:"exit_code"`
	Duration    string          `json:"duration"`
	DurationMs  int64           `json:"duration_ms"`
	Stats       JSONStatsData   `json:"stats"`
	Errors      []JSONErrorData `json:"errors,omitempty"`
	Events      []JSONEvent     `json:"events,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	SourceFiles      int   `json:"source_files"`
	DestFiles        int   `json:"dest_files"`
	FilesCopied      int   `json:"files_copied"`
	FilesUpdated     int   `json:"files_updated"`
	FilesUnchanged   int   `json:"files_unchanged"`
	FilesDeleted     int   `json:"files_deleted"`
	FilesErrored     int   `json:"files_errored"`
	BytesTransferred int64 `json:"bytes_transferred"`
	AverageSpeed     int64 `json:"average_speed_bytes_per_sec,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path      string `json:"path"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// JSONPlanData is the document written for a dry run
type JSONPlanData struct {
	DryRun      bool            `json:"dry_run"`
	SourceFiles int             `json:"source_files"`
	DestFiles   int             `json:"dest_files"`
	TotalBytes  int64           `json:"total_bytes"`
	New         []JSONEntryData `json:"new"`
	Modified    []JSONEntryData `json:"modified"`
	Stale       []JSONEntryData `json:"stale"`
	Unchanged   int             `json:"unchanged"`
}

// JSONEntryData is one key of a plan
type JSONEntryData struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = io.Discard
	}
	return &JSONFormatter{
		writer: w,
		events: make([]JSONEvent, 0),
	}
}

// Start records the start event
func (f *JSONFormatter) Start(totalFiles int, totalBytes int64, maxWorkers int) error {
	f.addEvent("start", JSONStartData{
		TotalFiles: totalFiles,
		TotalBytes: totalBytes,
		Workers:    maxWorkers,
	})
	return nil
}

// Progress records completed and failed files. Byte-level progress is dropped.
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	switch update.Type {
	case EventFileComplete:
		f.addEvent(update.Type, JSONFileData{
			Path:         update.FilePath,
			BytesWritten: update.BytesWritten,
		})
	case EventFileError:
		data := JSONFileData{Path: update.FilePath}
		if update.Error != nil {
			data.Error = update.Error.Error()
		}
		f.addEvent(update.Type, data)
	}
	return nil
}

// Plan writes the dry-run diff
func (f *JSONFormatter) Plan(plan *models.SyncPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.encode(JSONPlanData{
		DryRun:      true,
		SourceFiles: plan.SourceCount,
		DestFiles:   plan.DestCount,
		TotalBytes:  plan.TotalBytes(),
		New:         entryData(plan.New),
		Modified:    entryData(plan.Modified),
		Stale:       entryData(plan.Stale),
		Unchanged:   len(plan.Unchanged),
	})
}

// Complete writes the report with the collected events
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := report.Stats
	data := JSONReportData{
		OperationID: report.OperationID,
		Source:      report.SourcePath,
		Destination: report.DestPath,
		Status:      string(report.Status),
		ExitCode:    report.Status.ExitCode(),
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Stats: JSONStatsData{
			SourceFiles:      stats.SourceFiles,
			DestFiles:        stats.DestFiles,
			FilesCopied:      stats.FilesCopied,
			FilesUpdated:     stats.FilesUpdated,
			FilesUnchanged:   stats.FilesUnchanged,
			FilesDeleted:     stats.FilesDeleted,
			FilesErrored:     stats.FilesErrored,
			BytesTransferred: stats.BytesTransferred,
		},
		Events: f.events,
	}
	if secs := report.Duration.Seconds(); secs > 0 {
		data.Stats.AverageSpeed = int64(float64(stats.BytesTransferred) / secs)
	}
	for _, e := range report.Errors {
		data.Errors = append(data.Errors, JSONErrorData{
			Path:      e.FilePath,
			Operation: string(e.Operation),
			Error:     e.Error,
		})
	}

	return f.encode(data)
}

// Error writes an error document
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.encode(JSONEvent{
		Timestamp: time.Now(),
		Type:      "error",
		Data:      map[string]string{"message": err.Error()},
	})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) addEvent(eventType string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, JSONEvent{
		Timestamp: time.Now(),
		Type:      eventType,
		Data:      data,
	})
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func entryData(entries []models.ComparisonEntry) []JSONEntryData {
	out := make([]JSONEntryData, 0, len(entries))
	for _, e := range entries {
		out = append(out, JSONEntryData{
			Key:          e.Key,
			Size:         e.Size,
			LastModified: e.LastModified.UTC().Format(time.RFC3339),
		})
	}
	return out
}
