package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

func samplePlan() *models.SyncPlan {
	modTime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.SyncPlan{
		New:         []models.ComparisonEntry{{Key: "a.txt", Size: 2048, LastModified: modTime}},
		Modified:    []models.ComparisonEntry{{Key: "b.txt", Size: 10, LastModified: modTime}},
		Unchanged:   []models.ComparisonEntry{{Key: "c.txt"}},
		Stale:       []models.ComparisonEntry{{Key: "old.txt"}},
		SourceCount: 3,
		DestCount:   3,
	}
}

func sampleReport() *models.SyncReport {
	report := &models.SyncReport{
		OperationID: "op-1",
		SourcePath:  "./src",
		DestPath:    "s3://bucket/dst",
		StartTime:   time.Now().Add(-2 * time.Second),
	}
	report.Stats.SourceFiles = 3
	report.Stats.DestFiles = 3
	report.Record(models.ActionCopy, "a.txt", models.NewOutcome(models.OutcomeCopy, "a", "b", 2048, nil))
	report.Record(models.ActionUpdate, "b.txt", models.NewOutcome(models.OutcomeCopy, "a", "b", 0, errors.New("boom")))
	report.Finish(false)
	return report
}

func TestNew(t *testing.T) {
	for _, name := range []string{"human", "json", "progress", "none"} {
		t.Run(name, func(t *testing.T) {
			f, err := New(name, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, name, f.Name())
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, err := New("xml", &bytes.Buffer{})
		assert.ErrorContains(t, err, `unknown output format "xml"`)
	})
}

func TestHumanFormatter(t *testing.T) {
	t.Run("ProgressLines", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewHumanFormatter(&buf)

		require.NoError(t, f.Start(2, 4096, 4))
		f.Progress(ProgressUpdate{Type: EventFileStart, FilePath: "s3://b/a.txt", CurrentFile: 1})
		f.Progress(ProgressUpdate{Type: EventFileComplete, FilePath: "s3://b/a.txt", BytesWritten: 2048, CurrentFile: 1})
		f.Progress(ProgressUpdate{Type: EventFileError, FilePath: "s3://b/b.txt", CurrentFile: 2, Error: errors.New("denied")})

		out := buf.String()
		assert.Contains(t, out, "Starting sync: 2 files, 4.0 KiB total (4 workers)")
		assert.Contains(t, out, "[1/2] ✓ s3://b/a.txt (2.0 KiB)")
		assert.Contains(t, out, "[2/2] ✗ s3://b/b.txt: denied")
		assert.Equal(t, 3, strings.Count(out, "\n"))
	})

	t.Run("Plan", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewHumanFormatter(&buf).Plan(samplePlan()))

		out := buf.String()
		assert.Contains(t, out, "Would delete (1):\n  old.txt\n")
		assert.Contains(t, out, "Would update (1):\n  b.txt (10 B)\n")
		assert.Contains(t, out, "Would copy (1):\n  a.txt (2.0 KiB)\n")
		assert.Contains(t, out, "Unchanged: 1, to transfer: 2 files (2.0 KiB)")
		assert.Less(t, strings.Index(out, "Would delete"), strings.Index(out, "Would copy"))
	})

	t.Run("Summary", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewHumanFormatter(&buf).Complete(sampleReport()))

		out := buf.String()
		assert.Contains(t, out, "Files copied:       1")
		assert.Contains(t, out, "Files errored:      1")
		assert.Contains(t, out, "Data:           2.0 KiB")
		assert.Contains(t, out, "Status: partial")
		assert.Contains(t, out, "update b.txt: boom")
	})

	t.Run("NilWriter", func(t *testing.T) {
		f := NewHumanFormatter(nil)
		assert.NoError(t, f.Start(1, 1, 1))
		assert.NoError(t, f.Error(errors.New("x")))
	})
}

func TestJSONFormatter(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewJSONFormatter(&buf)

		require.NoError(t, f.Start(2, 2058, 2))
		f.Progress(ProgressUpdate{Type: EventFileProgress, FilePath: "a", BytesWritten: 1})
		f.Progress(ProgressUpdate{Type: EventFileComplete, FilePath: "a", BytesWritten: 2048})
		f.Progress(ProgressUpdate{Type: EventFileError, FilePath: "b", Error: errors.New("boom")})
		assert.Zero(t, buf.Len(), "nothing is written before completion")

		require.NoError(t, f.Complete(sampleReport()))

		var doc JSONReportData
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "op-1", doc.OperationID)
		assert.Equal(t, "partial", doc.Status)
		assert.Equal(t, 1, doc.ExitCode)
		assert.Equal(t, 1, doc.Stats.FilesCopied)
		assert.Equal(t, int64(2048), doc.Stats.BytesTransferred)
		require.Len(t, doc.Errors, 1)
		assert.Equal(t, "b.txt", doc.Errors[0].Path)
		assert.Equal(t, "update", doc.Errors[0].Operation)

		var types []string
		for _, e := range doc.Events {
			types = append(types, e.Type)
		}
		assert.Equal(t, []string{"start", EventFileComplete, EventFileError}, types)
	})

	t.Run("Plan", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewJSONFormatter(&buf).Plan(samplePlan()))

		var doc JSONPlanData
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.True(t, doc.DryRun)
		assert.Equal(t, int64(2058), doc.TotalBytes)
		require.Len(t, doc.New, 1)
		assert.Equal(t, "a.txt", doc.New[0].Key)
		assert.Equal(t, "2024-06-01T12:00:00Z", doc.New[0].LastModified)
		assert.Equal(t, "old.txt", doc.Stale[0].Key)
		assert.Equal(t, 1, doc.Unchanged)
	})
}

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter(&buf)

	require.NoError(t, f.Start(2, 100, 2))
	f.Progress(ProgressUpdate{Type: EventFileProgress, FilePath: "a", BytesWritten: 30})
	f.Progress(ProgressUpdate{Type: EventFileProgress, FilePath: "b", BytesWritten: 20})
	f.Progress(ProgressUpdate{Type: EventFileComplete, FilePath: "a", BytesWritten: 50})
	f.Progress(ProgressUpdate{Type: EventFileError, FilePath: "b", Error: errors.New("x")})

	assert.Equal(t, int64(50), f.bar.Current(), "a counts fully, b is given back")
	assert.Empty(t, f.seen)
	assert.Equal(t, 1, f.failed)

	require.NoError(t, f.Complete(sampleReport()))
	assert.Nil(t, f.bar)
	assert.Contains(t, buf.String(), "Transferring 2 files with 2 workers")
	assert.Contains(t, buf.String(), "Status: partial")
}

func TestTable(t *testing.T) {
	t.Run("AlignsWideCharacters", func(t *testing.T) {
		table := NewTable("Name", "Size")
		table.AddRow("日本", "1")
		table.AddRow("abcde", "22")

		var buf bytes.Buffer
		require.NoError(t, table.Render(&buf))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Name   Size", lines[0])
		assert.Equal(t, "-----  ----", lines[1])
		assert.Equal(t, "日本   1", lines[2])
		assert.Equal(t, "abcde  22", lines[3])
	})

	t.Run("ShortRow", func(t *testing.T) {
		table := NewTable("A", "B", "C")
		table.AddRow("x")
		assert.Equal(t, 1, table.Len())

		var buf bytes.Buffer
		require.NoError(t, table.Render(&buf))
		assert.Equal(t, "x     ", strings.Split(buf.String(), "\n")[2])
	})

	t.Run("Objects", func(t *testing.T) {
		table := ObjectTable([]storage.ObjectInfo{
			{Key: "dir/a.txt", Size: 12, ETag: `"abc"`, StorageClass: "STANDARD", Owner: "alice"},
		})
		var buf bytes.Buffer
		require.NoError(t, table.Render(&buf))

		lines := strings.Split(buf.String(), "\n")
		assert.True(t, strings.HasPrefix(lines[0], "Modified on"))
		assert.True(t, strings.HasSuffix(lines[0], "Name"))
		assert.Contains(t, lines[2], `12    STANDARD       "abc"  alice  dir/a.txt`)
	})

	t.Run("Versions", func(t *testing.T) {
		table := VersionTable([]storage.ObjectVersion{
			{Key: "a", VersionID: "2", IsLatest: true, IsDeleteMarker: true},
			{Key: "a", VersionID: "1", Size: 3},
		})
		var buf bytes.Buffer
		require.NoError(t, table.Render(&buf))

		out := buf.String()
		assert.Contains(t, out, "Is latest")
		assert.Contains(t, out, "(delete marker)")
		assert.Contains(t, out, "true")
		assert.Contains(t, out, "false")
	})
}

func TestSpinnerDisabled(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "copying", false)
	s.Add()
	s.Printf(&buf, "Successfully copied %s to %s", "a", "b")
	s.Finish()

	assert.Equal(t, "Successfully copied a to b\n", buf.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{10 * 1024 * 1024, "10.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
