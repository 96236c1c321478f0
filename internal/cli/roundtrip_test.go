package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bucketsync/pkg/output"
)

var (
	uploadTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	oldEdit    = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newEdit    = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

// syncJSON runs sync with JSON output and decodes the report
func (ta *testApp) syncJSON(t *testing.T, args ...string) output.JSONReportData {
	t.Helper()
	code := ta.run(append([]string{"sync", "-o", "json"}, args...)...)
	require.Equal(t, 0, code, ta.errOut.String())

	var report output.JSONReportData
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &report))
	return report
}

func writeAt(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	writeFile(t, path, content)
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestBackupAndRestore(t *testing.T) {
	ta := newTestApp(t)
	ta.store.Now = func() time.Time { return uploadTime }

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	writeAt(t, filepath.Join(src, "index.html"), "<html>", oldEdit)
	writeAt(t, filepath.Join(src, "css", "site.css"), "body{}", oldEdit)
	writeAt(t, filepath.Join(src, "img", "logo.svg"), "<svg/>", oldEdit)

	t.Run("InitialUpload", func(t *testing.T) {
		report := ta.syncJSON(t, src, "s3://bucket/backup/")

		assert.Equal(t, 3, report.Stats.FilesCopied)
		assert.Equal(t, 0, report.Stats.DestFiles)
		assert.Equal(t, []string{"backup/css/site.css", "backup/img/logo.svg", "backup/index.html"}, ta.store.Keys("bucket"))
	})

	t.Run("SecondRunIsNoOp", func(t *testing.T) {
		report := ta.syncJSON(t, src, "s3://bucket/backup/")

		assert.Equal(t, 0, report.Stats.FilesCopied)
		assert.Equal(t, 3, report.Stats.FilesUnchanged)
		assert.Equal(t, int64(0), report.Stats.BytesTransferred)
	})

	t.Run("EditsAndRemovals", func(t *testing.T) {
		writeAt(t, filepath.Join(src, "index.html"), "<html>v2", newEdit)
		writeAt(t, filepath.Join(src, "about.html"), "about", oldEdit)
		require.NoError(t, os.Remove(filepath.Join(src, "img", "logo.svg")))

		report := ta.syncJSON(t, src, "s3://bucket/backup/")

		assert.Equal(t, 1, report.Stats.FilesCopied)
		assert.Equal(t, 1, report.Stats.FilesUpdated)
		assert.Equal(t, 1, report.Stats.FilesDeleted)
		assert.Equal(t, 1, report.Stats.FilesUnchanged)

		data, ok := ta.store.Object("bucket", "backup/index.html")
		require.True(t, ok)
		assert.Equal(t, "<html>v2", string(data))
		assert.Equal(t, []string{"backup/about.html", "backup/css/site.css", "backup/index.html"}, ta.store.Keys("bucket"))
	})

	restore := filepath.Join(tmp, "restore") + string(filepath.Separator)

	t.Run("Restore", func(t *testing.T) {
		report := ta.syncJSON(t, "s3://bucket/backup/", restore, "--preserve-timestamps")

		assert.Equal(t, 3, report.Stats.FilesCopied)
		for _, name := range []string{"about.html", "css/site.css", "index.html"} {
			want, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(name)))
			require.NoError(t, err)
			got, err := os.ReadFile(filepath.Join(restore, filepath.FromSlash(name)))
			require.NoError(t, err, name)
			assert.Equal(t, string(want), string(got), name)
		}
	})

	t.Run("RestoreAgainIsNoOp", func(t *testing.T) {
		report := ta.syncJSON(t, "s3://bucket/backup/", restore)

		assert.Equal(t, 0, report.Stats.FilesCopied)
		assert.Equal(t, 0, report.Stats.FilesUpdated)
		assert.Equal(t, 3, report.Stats.FilesUnchanged)
	})

	t.Run("LocalMirror", func(t *testing.T) {
		mirror := filepath.Join(tmp, "mirror") + string(filepath.Separator)
		writeAt(t, filepath.Join(mirror, "orphan.txt"), "x", oldEdit)

		report := ta.syncJSON(t, restore, mirror)

		assert.Equal(t, 3, report.Stats.FilesCopied)
		assert.Equal(t, 1, report.Stats.FilesDeleted)
		assert.NoFileExists(t, filepath.Join(mirror, "orphan.txt"))
		assert.FileExists(t, filepath.Join(mirror, "css", "site.css"))
	})
}

func TestPreservedTimestampsRoundTrip(t *testing.T) {
	ta := newTestApp(t)
	ta.store.Now = func() time.Time { return uploadTime }

	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	writeAt(t, filepath.Join(src, "notes.txt"), "notes", oldEdit)
	writeAt(t, filepath.Join(src, "docs", "plan.md"), "# plan", newEdit)

	t.Run("UploadRecordsMtime", func(t *testing.T) {
		report := ta.syncJSON(t, src, "s3://bucket/keep/", "--preserve-timestamps")

		assert.Equal(t, 2, report.Stats.FilesCopied)
		assert.Equal(t, strconv.FormatInt(oldEdit.Unix(), 10), ta.store.Metadata("bucket", "keep/notes.txt")["mtime"])
		assert.Equal(t, strconv.FormatInt(newEdit.Unix(), 10), ta.store.Metadata("bucket", "keep/docs/plan.md")["mtime"])
	})

	t.Run("DownloadRestoresMtime", func(t *testing.T) {
		restore := filepath.Join(tmp, "restore") + string(filepath.Separator)
		report := ta.syncJSON(t, "s3://bucket/keep/", restore, "--preserve-timestamps")
		assert.Equal(t, 2, report.Stats.FilesCopied)

		for name, want := range map[string]time.Time{"notes.txt": oldEdit, "docs/plan.md": newEdit} {
			info, err := os.Stat(filepath.Join(restore, filepath.FromSlash(name)))
			require.NoError(t, err, name)
			assert.Equal(t, want.Unix(), info.ModTime().Unix(), name)
		}
	})

	t.Run("WithoutFlagUsesLastModified", func(t *testing.T) {
		restore := filepath.Join(tmp, "plain") + string(filepath.Separator)
		ta.syncJSON(t, "s3://bucket/keep/", restore)

		info, err := os.Stat(filepath.Join(restore, "notes.txt"))
		require.NoError(t, err)
		assert.NotEqual(t, oldEdit.Unix(), info.ModTime().Unix())
	})
}
