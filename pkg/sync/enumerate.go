package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/storage"
	"github.com/sdejongh/bucketsync/pkg/transfer"
)

// enumerate lists every file below a directory descriptor as comparison
// entries. Excluded keys are dropped. With allowMissing, a missing local
// directory is an empty tree, so a sync can create it; otherwise it fails.
func enumerate(ctx context.Context, o *transfer.Orchestrator, tree resource.Descriptor, exclude *resource.ExcludeSet, allowMissing bool) ([]models.ComparisonEntry, error) {
	if tree.Location == resource.Remote {
		return enumerateRemote(ctx, o.Store(), tree.Bucket, tree.Resource, exclude)
	}
	return enumerateLocal(ctx, o.Backend(), tree.Resource, exclude, allowMissing)
}

func enumerateLocal(ctx context.Context, backend storage.Backend, root string, exclude *resource.ExcludeSet, allowMissing bool) ([]models.ComparisonEntry, error) {
	if _, err := backend.Stat(ctx, root); errors.Is(err, fs.ErrNotExist) {
		if allowMissing {
			return nil, nil
		}
		return nil, models.NewArgumentError(fmt.Errorf("%w: %w", models.ErrMustBeDirectory, err), root)
	}

	files, err := backend.List(ctx, root, true)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ComparisonEntry, 0, len(files))
	for _, f := range files {
		if exclude.Match(f.RelativePath) {
			continue
		}
		entries = append(entries, models.ComparisonEntry{
			Key:            f.RelativePath,
			FullIdentifier: f.Path,
			LastModified:   f.ModTime,
			Size:           f.Size,
		})
	}
	return entries, nil
}

func enumerateRemote(ctx context.Context, store storage.ObjectStore, bucket, prefix string, exclude *resource.ExcludeSet) ([]models.ComparisonEntry, error) {
	var entries []models.ComparisonEntry
	for obj, err := range store.ListObjects(ctx, bucket, prefix, false) {
		if err != nil {
			return nil, err
		}
		// Folder placeholders
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		key := strings.TrimPrefix(obj.Key, prefix)
		if key == "" || exclude.Match(key) {
			continue
		}
		entries = append(entries, models.ComparisonEntry{
			Key:            key,
			FullIdentifier: obj.Key,
			LastModified:   obj.LastModified,
			Size:           obj.Size,
		})
	}
	return entries, nil
}
