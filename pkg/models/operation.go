package models

import (
	"time"
)

// SyncOperation describes one sync request after flags and config are merged
type SyncOperation struct {
	ID                 string
	SourcePath         string
	DestPath           string
	Concurrency        int
	PreserveTimestamps bool
	ExcludePatterns    []string
	DryRun             bool
	BandwidthLimit     int64 // bytes per second, 0 = unlimited
	CreatedAt          time.Time
}

// Validate checks if the operation configuration is valid
func (op *SyncOperation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.DestPath == "" {
		return &ValidationError{Field: "DestPath", Message: "destination path is required"}
	}
	if op.Concurrency < 1 {
		return &ValidationError{Field: "Concurrency", Message: "concurrency must be at least 1"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
