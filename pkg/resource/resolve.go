// Package resource parses the path syntax shared by every command.
//
// A path starting with s3:// (any case) addresses a remote bucket, anything
// else is a host filesystem path. Both may end in '*' to expand to several
// files, which is only valid as a source.
package resource

import (
	"os"
	"strings"

	"github.com/sdejongh/bucketsync/pkg/models"
)

const scheme = "s3://"

// Wildcard marks an Expand resource
const Wildcard = "*"

// Location says which namespace a path lives in
type Location int

const (
	Local Location = iota
	Remote
)

func (l Location) String() string {
	if l == Remote {
		return "remote"
	}
	return "local"
}

// Kind classifies what a path points at
type Kind int

const (
	File Kind = iota
	Directory
	Expand
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case Expand:
		return "expand"
	default:
		return "file"
	}
}

// Descriptor is a resolved path
type Descriptor struct {
	Location Location
	Bucket   string
	Resource string
	Kind     Kind
}

// IsBucketRoot reports whether d names a whole bucket
func (d Descriptor) IsBucketRoot() bool {
	return d.Location == Remote && d.Resource == "" && d.Kind == Directory
}

// String renders d back into the path syntax
func (d Descriptor) String() string {
	if d.Location == Local {
		return d.Resource
	}
	return scheme + d.Bucket + "/" + d.Resource
}

// ObjectURL formats bucket and key as an s3:// URL
func ObjectURL(bucket, key string) string {
	return scheme + bucket + "/" + key
}

// IsRemote reports whether path uses the s3:// syntax
func IsRemote(path string) bool {
	return len(path) >= len(scheme) && strings.EqualFold(path[:len(scheme)], scheme)
}

// Resolve parses path into a Descriptor. Local paths are probed on disk;
// a path that does not exist yet is a Directory when it ends in a
// separator and a File otherwise.
func Resolve(path string) (Descriptor, error) {
	if path == "" {
		return Descriptor{}, models.NewArgumentError(models.ErrInvalidPath, path)
	}

	if IsRemote(path) {
		return resolveRemote(path)
	}
	return resolveLocal(path), nil
}

func resolveLocal(path string) Descriptor {
	d := Descriptor{Location: Local, Resource: path}

	if strings.Contains(path, Wildcard) {
		d.Kind = Expand
		return d
	}

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			d.Kind = Directory
		} else {
			d.Kind = File
		}
		return d
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, `\`) {
		d.Kind = Directory
	} else {
		d.Kind = File
	}
	return d
}

func resolveRemote(path string) (Descriptor, error) {
	rest := path[len(scheme):]
	d := Descriptor{Location: Remote}

	bucket, res, found := strings.Cut(rest, "/")
	if bucket == "" {
		return Descriptor{}, models.NewArgumentError(models.ErrBucketRequired, path)
	}
	d.Bucket = bucket

	if !found {
		d.Kind = Directory
		return d, nil
	}

	switch {
	case strings.HasSuffix(res, Wildcard):
		d.Kind = Expand
		res = strings.TrimRight(res, Wildcard)
	case res == "" || strings.HasSuffix(res, "/"):
		d.Kind = Directory
	default:
		d.Kind = File
	}
	d.Resource = res
	return d, nil
}
