package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a local file
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	Permissions  uint32
	RelativePath string // '/' separated, relative to the listed root
}

// Backend is the local filesystem capability set used by transfers
type Backend interface {
	// List returns the regular files under root. Entries that cannot be
	// read, symlinks and special files are skipped rather than failing
	// the listing.
	List(ctx context.Context, root string, recursive bool) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file, creating parent directories.
	// If metadata carries a ModTime it is applied after the copy.
	Write(ctx context.Context, path string, reader io.Reader, metadata *FileInfo) (int64, error)

	// Delete removes a single file
	Delete(ctx context.Context, path string) error

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)
}
