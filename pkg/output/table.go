package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/sdejongh/bucketsync/pkg/storage"
)

// TimeLayout is how listings print modification times
const TimeLayout = "2006-01-02 15:04:05"

// Table is a column-aligned text table. Widths are display widths, so keys
// with wide characters stay aligned.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing cells are left empty.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a separator and every row
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	if err := t.writeLine(w, t.headers, widths); err != nil {
		return err
	}

	dashes := make([]string, len(widths))
	for i, width := range widths {
		dashes[i] = strings.Repeat("-", width)
	}
	if err := t.writeLine(w, dashes, widths); err != nil {
		return err
	}

	for _, row := range t.rows {
		if err := t.writeLine(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) writeLine(w io.Writer, cells []string, widths []int) error {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		// The last column is not padded to avoid trailing spaces
		if i == len(cells)-1 {
			padded[i] = cell
			continue
		}
		padded[i] = runewidth.FillRight(cell, widths[i])
	}
	_, err := fmt.Fprintln(w, strings.Join(padded, "  "))
	return err
}

// ObjectTable builds the ls table
func ObjectTable(objects []storage.ObjectInfo) *Table {
	t := NewTable("Modified on", "Size", "Storage class", "ETag", "Owner", "Name")
	for _, o := range objects {
		t.AddRow(
			formatTime(o.LastModified),
			strconv.FormatInt(o.Size, 10),
			o.StorageClass,
			o.ETag,
			o.Owner,
			o.Key,
		)
	}
	return t
}

// VersionTable builds the listversions table. Delete markers have no size.
func VersionTable(versions []storage.ObjectVersion) *Table {
	t := NewTable("Modified on", "Size", "Storage class", "ETag", "Owner", "Is latest", "Name")
	for _, v := range versions {
		size := strconv.FormatInt(v.Size, 10)
		if v.IsDeleteMarker {
			size = "(delete marker)"
		}
		t.AddRow(
			formatTime(v.LastModified),
			size,
			v.StorageClass,
			v.ETag,
			v.Owner,
			strconv.FormatBool(v.IsLatest),
			v.Key,
		)
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}
