package models

import (
	"sync"
	"time"
)

// SyncReport represents the results of a sync operation
type SyncReport struct {
	// Operation details
	OperationID string
	SourcePath  string
	DestPath    string
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Plan is the diff the sync executed (or would execute on a dry run)
	Plan *SyncPlan

	// Statistics
	Stats Statistics

	// Outcomes holds one entry per transferred or deleted key
	Outcomes []TransferOutcome

	// Errors encountered
	Errors []SyncError

	// Overall status
	Status SyncStatus

	mu sync.Mutex
}

// Statistics holds sync operation metrics
type Statistics struct {
	SourceFiles int
	DestFiles   int

	FilesCopied    int // New on destination
	FilesUpdated   int // Modified, overwritten on destination
	FilesUnchanged int
	FilesDeleted   int // Stale, removed from destination
	FilesErrored   int

	BytesTransferred int64
}

// SyncStatus represents the overall result
type SyncStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess SyncStatus = "success"
	// StatusPartial indicates some operations failed
	StatusPartial SyncStatus = "partial"
	// StatusFailed indicates the sync operation failed
	StatusFailed SyncStatus = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled SyncStatus = "cancelled"
)

// SyncError represents an error during sync
type SyncError struct {
	FilePath  string
	Operation Action
	Error     string
	Timestamp time.Time
}

// Record adds a per-unit outcome and updates the counters.
// Safe for concurrent use by dispatcher workers.
func (r *SyncReport) Record(action Action, key string, outcome TransferOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Outcomes = append(r.Outcomes, outcome)

	if !outcome.Succeeded() {
		r.Stats.FilesErrored++
		msg := ""
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		r.Errors = append(r.Errors, SyncError{
			FilePath:  key,
			Operation: action,
			Error:     msg,
			Timestamp: time.Now(),
		})
		return
	}

	switch action {
	case ActionCopy:
		r.Stats.FilesCopied++
	case ActionUpdate:
		r.Stats.FilesUpdated++
	case ActionDelete:
		r.Stats.FilesDeleted++
	}
	r.Stats.BytesTransferred += outcome.Bytes
}

// Finish stamps the end time and derives the status
func (r *SyncReport) Finish(cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	switch {
	case cancelled:
		r.Status = StatusCancelled
	case r.Stats.FilesErrored > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSuccess
	}
}

// ExitCode returns the appropriate exit code for the sync status
func (s SyncStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
