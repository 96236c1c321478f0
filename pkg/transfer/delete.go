package transfer

import (
	"context"
	"iter"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

// Delete removes a remote object, or every object under a prefix. With
// includeVersions, the versions and delete markers under the prefix are
// removed as well. Deleting a whole bucket requires force.
//
// The sequence yields the keys the store refused to delete. A failed
// listing or single-object delete is yielded as an error and ends it.
func (o *Orchestrator) Delete(ctx context.Context, path string, includeVersions, force bool) (iter.Seq2[storage.DeleteError, error], error) {
	d, err := resolveRemote(path)
	if err != nil {
		return nil, err
	}

	if d.Kind == resource.File {
		return func(yield func(storage.DeleteError, error) bool) {
			if err := o.store.DeleteObject(ctx, d.Bucket, d.Resource); err != nil {
				yield(storage.DeleteError{}, err)
			}
		}, nil
	}

	if d.Resource == "" && !force {
		return nil, models.NewArgumentError(models.ErrForceRequired, path)
	}

	return o.deletePrefix(ctx, d.Bucket, d.Resource, includeVersions), nil
}

// Empty deletes every object version and delete marker in bucket. The
// bucket may be given as a name or as s3://name.
func (o *Orchestrator) Empty(ctx context.Context, bucket string, force bool) (iter.Seq2[storage.DeleteError, error], error) {
	name := bucket
	if resource.IsRemote(bucket) {
		d, err := resource.Resolve(bucket)
		if err != nil {
			return nil, err
		}
		name = d.Bucket
	}
	if name == "" {
		return nil, models.NewArgumentError(models.ErrInvalidPath, bucket)
	}
	if !force {
		return nil, models.NewArgumentError(models.ErrForceRequired, bucket)
	}

	return o.deletePrefix(ctx, name, "", true), nil
}

// deletePrefix lists under prefix and deletes in batches as the listing
// goes, so memory stays bounded by one batch
func (o *Orchestrator) deletePrefix(ctx context.Context, bucket, prefix string, includeVersions bool) iter.Seq2[storage.DeleteError, error] {
	return func(yield func(storage.DeleteError, error) bool) {
		batch := make([]storage.ObjectID, 0, storage.MaxDeleteBatch)

		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			failures, err := o.store.DeleteObjects(ctx, bucket, batch)
			batch = batch[:0]
			for _, f := range failures {
				if !yield(f, nil) {
					return false
				}
			}
			if err != nil {
				yield(storage.DeleteError{}, err)
				return false
			}
			return true
		}

		add := func(id storage.ObjectID) bool {
			batch = append(batch, id)
			if len(batch) == storage.MaxDeleteBatch {
				return flush()
			}
			return true
		}

		if includeVersions {
			for v, err := range o.store.ListObjectVersions(ctx, bucket, prefix) {
				if err != nil {
					yield(storage.DeleteError{}, err)
					return
				}
				if !add(storage.ObjectID{Key: v.Key, VersionID: v.VersionID}) {
					return
				}
			}
		} else {
			for obj, err := range o.store.ListObjects(ctx, bucket, prefix, false) {
				if err != nil {
					yield(storage.DeleteError{}, err)
					return
				}
				if !add(storage.ObjectID{Key: obj.Key}) {
					return
				}
			}
		}

		flush()
	}
}
