package output

import "github.com/sdejongh/bucketsync/pkg/models"

// NullFormatter discards everything
type NullFormatter struct{}

// NewNullFormatter creates a formatter that prints nothing
func NewNullFormatter() *NullFormatter {
	return &NullFormatter{}
}

func (NullFormatter) Start(int, int64, int) error { return nil }

func (NullFormatter) Progress(ProgressUpdate) error { return nil }

func (NullFormatter) Plan(*models.SyncPlan) error { return nil }

func (NullFormatter) Complete(*models.SyncReport) error { return nil }

func (NullFormatter) Error(error) error { return nil }

func (NullFormatter) Name() string { return "none" }
