package transfer

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/resource"
)

// unit is one file-to-file transfer
type unit struct {
	src resource.Descriptor
	dst resource.Descriptor
}

// Copy transfers source to destination. Argument errors are returned before
// anything is transferred. The returned sequence runs one unit per step and
// yields its outcome; a failed unit does not stop the others. A listing
// failure is yielded as an error and ends the sequence.
func (o *Orchestrator) Copy(ctx context.Context, source, destination string) (iter.Seq2[models.TransferOutcome, error], error) {
	units, err := o.units(ctx, source, destination)
	if err != nil {
		return nil, err
	}

	return func(yield func(models.TransferOutcome, error) bool) {
		for u, err := range units {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(models.TransferOutcome{}, err)
				return
			}
			if !yield(o.TransferFile(ctx, u.src, u.dst), nil) {
				return
			}
		}
	}, nil
}

// units resolves both endpoints and expands the source into file units
func (o *Orchestrator) units(ctx context.Context, source, destination string) (iter.Seq2[unit, error], error) {
	src, err := resource.Resolve(source)
	if err != nil {
		return nil, err
	}
	dst, err := resource.Resolve(destination)
	if err != nil {
		return nil, err
	}
	if dst.Kind == resource.Expand {
		return nil, models.NewArgumentError(models.ErrOperationNotSupported, destination)
	}

	switch {
	case src.Location == resource.Local && dst.Location == resource.Remote:
		return o.uploadUnits(ctx, src, dst)
	case src.Location == resource.Remote && dst.Location == resource.Local:
		return o.downloadUnits(ctx, src, dst)
	}

	return nil, models.NewArgumentError(models.ErrOperationNotSupported, fmt.Sprintf("%s -> %s", source, destination))
}

func (o *Orchestrator) uploadUnits(ctx context.Context, src, dst resource.Descriptor) (iter.Seq2[unit, error], error) {
	switch {
	case src.Kind == resource.File && dst.Kind == resource.File:
		return single(unit{src: src, dst: dst}), nil

	case src.Kind == resource.File && dst.Kind == resource.Directory:
		key, err := resource.RemotePaths.Combine(dst.Resource, resource.LocalPaths.FileName(src.Resource))
		if err != nil {
			return nil, err
		}
		return single(unit{src: src, dst: remoteFile(dst.Bucket, key)}), nil

	case src.Kind == resource.Directory && dst.Kind == resource.Directory:
		return func(yield func(unit, error) bool) {
			files, err := o.fs.List(ctx, src.Resource, false)
			if err != nil {
				yield(unit{}, err)
				return
			}
			for _, f := range files {
				key, err := resource.RemotePaths.Combine(
					dst.Resource,
					resource.LocalPaths.DirectoryName(f.Path),
					resource.LocalPaths.FileName(f.Path),
				)
				if err != nil {
					yield(unit{}, err)
					return
				}
				if !yield(unit{src: localFile(f.Path), dst: remoteFile(dst.Bucket, key)}, nil) {
					return
				}
			}
		}, nil

	case src.Kind == resource.Expand && dst.Kind == resource.Directory:
		dir, pattern := filepath.Split(src.Resource)
		if dir == "" {
			dir = "."
		}
		if strings.ContainsAny(dir, "*") {
			return nil, models.NewArgumentError(models.ErrOperationNotSupported, src.Resource)
		}
		matcher, err := glob.Compile(pattern)
		if err != nil {
			return nil, models.NewArgumentError(models.ErrInvalidPath, src.Resource)
		}

		return func(yield func(unit, error) bool) {
			files, err := o.fs.List(ctx, dir, false)
			if err != nil {
				yield(unit{}, err)
				return
			}
			for _, f := range files {
				name := resource.LocalPaths.FileName(f.Path)
				if !matcher.Match(name) || o.exclude.Match(f.RelativePath) {
					continue
				}
				key, err := resource.RemotePaths.Combine(dst.Resource, name)
				if err != nil {
					yield(unit{}, err)
					return
				}
				if !yield(unit{src: localFile(f.Path), dst: remoteFile(dst.Bucket, key)}, nil) {
					return
				}
			}
		}, nil
	}

	return nil, models.NewArgumentError(models.ErrOperationNotSupported, fmt.Sprintf("%s -> %s", src, dst))
}

func (o *Orchestrator) downloadUnits(ctx context.Context, src, dst resource.Descriptor) (iter.Seq2[unit, error], error) {
	switch {
	case src.Kind == resource.File && dst.Kind == resource.File:
		return single(unit{src: src, dst: dst}), nil

	case src.Kind == resource.File && dst.Kind == resource.Directory:
		path, err := resource.LocalPaths.Combine(dst.Resource, resource.RemotePaths.FileName(src.Resource))
		if err != nil {
			return nil, err
		}
		return single(unit{src: src, dst: localFile(path)}), nil

	case src.Kind == resource.Directory && dst.Kind == resource.Directory:
		return o.listedUnits(ctx, src.Bucket, src.Resource, src.Resource, dst.Resource, false), nil

	case src.Kind == resource.Expand && dst.Kind == resource.Directory:
		base := ""
		if i := strings.LastIndex(src.Resource, "/"); i >= 0 {
			base = src.Resource[:i+1]
		}
		return o.listedUnits(ctx, src.Bucket, src.Resource, base, dst.Resource, true), nil
	}

	return nil, models.NewArgumentError(models.ErrOperationNotSupported, fmt.Sprintf("%s -> %s", src, dst))
}

// listedUnits pages the keys under prefix and maps each one below root,
// keeping its path relative to base
func (o *Orchestrator) listedUnits(ctx context.Context, bucket, prefix, base, root string, filter bool) iter.Seq2[unit, error] {
	return func(yield func(unit, error) bool) {
		for obj, err := range o.store.ListObjects(ctx, bucket, prefix, false) {
			if err != nil {
				yield(unit{}, err)
				return
			}
			// Folder placeholders have no content to download
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}

			rel := strings.TrimPrefix(obj.Key, base)
			if filter && o.exclude.Match(rel) {
				continue
			}

			path, err := resource.LocalPaths.Combine(root, filepath.FromSlash(rel))
			if err != nil {
				yield(unit{}, err)
				return
			}
			if !yield(unit{src: remoteFile(bucket, obj.Key), dst: localFile(path)}, nil) {
				return
			}
		}
	}
}

func single(u unit) iter.Seq2[unit, error] {
	return func(yield func(unit, error) bool) {
		yield(u, nil)
	}
}

func localFile(path string) resource.Descriptor {
	return resource.Descriptor{Location: resource.Local, Resource: path, Kind: resource.File}
}

func remoteFile(bucket, key string) resource.Descriptor {
	return resource.Descriptor{Location: resource.Remote, Bucket: bucket, Resource: key, Kind: resource.File}
}
