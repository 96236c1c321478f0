package output

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// Spinner counts finished units of a copy or move. A disabled spinner
// only forwards the lines printed through it.
type Spinner struct {
	bar *progressbar.ProgressBar
}

// NewSpinner creates a unit spinner on w. It stays silent unless enabled.
func NewSpinner(w io.Writer, description string, enabled bool) *Spinner {
	if !enabled {
		return &Spinner{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	return &Spinner{bar: bar}
}

// Printf clears the spinner line, then writes one line to w
func (s *Spinner) Printf(w io.Writer, format string, args ...any) {
	if s.bar != nil {
		s.bar.Clear()
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Add counts one finished unit
func (s *Spinner) Add() {
	if s.bar != nil {
		s.bar.Add(1)
	}
}

// Finish removes the spinner
func (s *Spinner) Finish() {
	if s.bar != nil {
		s.bar.Finish()
	}
}
