package resource

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bucketsync/pkg/models"
)

func TestRemoteCombine(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"s3", "x/", "/y", ""}, "s3/x/y"},
		{[]string{"", "file.txt"}, "file.txt"},
		{[]string{"dir/", "file.txt"}, "dir/file.txt"},
		{[]string{"/leading", "trailing/"}, "leading/trailing"},
		{[]string{`win\`, `\name`}, "win/name"},
		{[]string{"a", "", "", "b"}, "a/b"},
	}

	for _, tt := range tests {
		got, err := RemotePaths.Combine(tt.parts...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Combine(%q)", tt.parts)
	}
}

func TestCombineRequiresAComponent(t *testing.T) {
	for _, j := range []Joiner{LocalPaths, RemotePaths} {
		_, err := j.Combine()
		assert.ErrorIs(t, err, models.ErrArgumentOutOfRange)

		_, err = j.Combine("", "")
		assert.ErrorIs(t, err, models.ErrArgumentOutOfRange)
	}
}

func TestLocalCombine(t *testing.T) {
	root := t.TempDir()

	got, err := LocalPaths.Combine(root, "sub/", "file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "file.txt"), got)

	rel, err := LocalPaths.Combine("a", "b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("a", "b"), rel)
}

func TestCombineThenFileName(t *testing.T) {
	cases := [][]string{
		{"a", "b", "c"},
		{"", "only"},
		{"x", "y/", ""},
		{"dir/", "/name.ext"},
	}

	for _, parts := range cases {
		joined, err := RemotePaths.Combine(parts...)
		require.NoError(t, err)

		last := ""
		for _, p := range parts {
			if p != "" {
				last = p
			}
		}
		want := RemotePaths.FileName(trimSeparators(last))
		assert.Equal(t, want, RemotePaths.FileName(joined), "parts %q", parts)
	}
}

func trimSeparators(s string) string {
	for len(s) > 0 && (s[0] == '/' || s[0] == '\\') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == '/' || s[len(s)-1] == '\\') {
		s = s[:len(s)-1]
	}
	return s
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "file.txt", RemotePaths.FileName("a/b/file.txt"))
	assert.Equal(t, "file.txt", RemotePaths.FileName("file.txt"))
	assert.Equal(t, "", RemotePaths.FileName("dir/"))
	assert.Equal(t, "file.txt", LocalPaths.FileName(filepath.Join("a", "file.txt")))
}

func TestDirectoryName(t *testing.T) {
	assert.Equal(t, "b", RemotePaths.DirectoryName("a/b/file.txt"))
	assert.Equal(t, "", RemotePaths.DirectoryName("file.txt"))

	root := t.TempDir()
	assert.Equal(t, filepath.Base(root), LocalPaths.DirectoryName(filepath.Join(root, "file.txt")))
}
