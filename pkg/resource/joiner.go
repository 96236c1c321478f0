package resource

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/sdejongh/bucketsync/pkg/models"
)

// separators trimmed from the ends of every component, whichever side
const separators = `/\`

// Joiner combines and splits paths for one side of a transfer
type Joiner interface {
	// Combine joins the non-empty parts with the side's separator
	Combine(parts ...string) (string, error)
	// FileName returns the last element of p
	FileName(p string) string
	// DirectoryName returns the name of p's parent directory
	DirectoryName(p string) string
}

var (
	// LocalPaths joins host filesystem paths
	LocalPaths Joiner = localJoiner{}
	// RemotePaths joins object keys
	RemotePaths Joiner = remoteJoiner{}
)

type localJoiner struct{}

func (localJoiner) Combine(parts ...string) (string, error) {
	return combine(string(filepath.Separator), true, parts)
}

func (localJoiner) FileName(p string) string {
	return filepath.Base(p)
}

func (localJoiner) DirectoryName(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return filepath.Base(filepath.Dir(abs))
}

type remoteJoiner struct{}

func (remoteJoiner) Combine(parts ...string) (string, error) {
	return combine("/", false, parts)
}

func (remoteJoiner) FileName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (remoteJoiner) DirectoryName(p string) string {
	dir := path.Dir(strings.TrimSuffix(p, "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

func combine(sep string, keepRoot bool, parts []string) (string, error) {
	var b strings.Builder
	written := false

	for _, part := range parts {
		if part == "" {
			continue
		}

		trimmed := strings.Trim(part, separators)
		if b.Len() == 0 && keepRoot && strings.ContainsAny(part[:1], separators) {
			b.WriteString(sep)
		}
		if trimmed == "" {
			continue
		}

		if written {
			b.WriteString(sep)
		}
		b.WriteString(trimmed)
		written = true
	}

	if b.Len() == 0 {
		return "", models.NewArgumentError(models.ErrArgumentOutOfRange, strings.Join(parts, ","))
	}
	return b.String(), nil
}
